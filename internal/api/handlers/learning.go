package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/api/middleware"
	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/service"
	"github.com/go-chi/chi/v5"
)

type Weights interface {
	Active(ctx context.Context) (*domain.WeightVersion, error)
	List(ctx context.Context, limit int) ([]domain.WeightVersion, error)
	Get(ctx context.Context, version int) (*domain.WeightVersion, error)
	Propose(ctx context.Context, wv *domain.WeightVersion) error
	Activate(ctx context.Context, version int, by string) (*domain.WeightVersion, error)
	Reject(ctx context.Context, version int, by string) (*domain.WeightVersion, error)
}

type LearningRunner interface {
	Run(ctx context.Context) (*domain.LearningRun, error)
}

type ConsensusRunner interface {
	Run(ctx context.Context) (*service.ConsensusRun, error)
	Clusters(ctx context.Context, category string) ([]domain.ConsensusCluster, error)
}

// LearningHandler exposes the batch jobs and the weight-version gate. Runs
// triggered here are synchronous.
type LearningHandler struct {
	weights   Weights
	learning  LearningRunner
	consensus ConsensusRunner
}

func NewLearningHandler(weights Weights, learning LearningRunner, consensus ConsensusRunner) *LearningHandler {
	return &LearningHandler{weights: weights, learning: learning, consensus: consensus}
}

func (h *LearningHandler) RunLearning(w http.ResponseWriter, r *http.Request) {
	run, err := h.learning.Run(r.Context())
	if err != nil {
		writeServiceError(w, err, "learning run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *LearningHandler) RunConsensus(w http.ResponseWriter, r *http.Request) {
	run, err := h.consensus.Run(r.Context())
	if err != nil {
		writeServiceError(w, err, "consensus run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *LearningHandler) Clusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := h.consensus.Clusters(r.Context(), strings.TrimSpace(r.URL.Query().Get("category")))
	if err != nil {
		writeServiceError(w, err, "failed to list clusters")
		return
	}
	if clusters == nil {
		clusters = []domain.ConsensusCluster{}
	}
	writeJSON(w, http.StatusOK, clusters)
}

func (h *LearningHandler) ListWeights(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit", 50)
	if !ok {
		return
	}
	versions, err := h.weights.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err, "failed to list weights")
		return
	}
	if versions == nil {
		versions = []domain.WeightVersion{}
	}
	writeJSON(w, http.StatusOK, versions)
}

func (h *LearningHandler) ActiveWeights(w http.ResponseWriter, r *http.Request) {
	wv, err := h.weights.Active(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to get active weights")
		return
	}
	writeJSON(w, http.StatusOK, wv)
}

func (h *LearningHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	version, ok := versionParam(w, r)
	if !ok {
		return
	}
	wv, err := h.weights.Get(r.Context(), version)
	if err != nil {
		writeServiceError(w, err, "failed to get weights")
		return
	}
	writeJSON(w, http.StatusOK, wv)
}

type proposeWeightsRequest struct {
	Weights domain.WeightSet `json:"weights"`
	Reason  string           `json:"reason"`
}

func (h *LearningHandler) ProposeWeights(w http.ResponseWriter, r *http.Request) {
	var req proposeWeightsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	wv := &domain.WeightVersion{
		Weights: req.Weights,
		Source:  domain.WeightSourceOperator,
		Reason:  req.Reason,
	}
	if err := h.weights.Propose(r.Context(), wv); err != nil {
		writeServiceError(w, err, "failed to propose weights")
		return
	}
	writeJSON(w, http.StatusCreated, wv)
}

type weightDecisionRequest struct {
	By string `json:"by"`
}

func (h *LearningHandler) ActivateWeights(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.weights.Activate, "failed to activate weights")
}

func (h *LearningHandler) RejectWeights(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.weights.Reject, "failed to reject weights")
}

func (h *LearningHandler) decide(w http.ResponseWriter, r *http.Request, fn func(context.Context, int, string) (*domain.WeightVersion, error), fallback string) {
	version, ok := versionParam(w, r)
	if !ok {
		return
	}
	var req weightDecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	by := strings.TrimSpace(req.By)
	if by == "" {
		by = middleware.CallerFromContext(r.Context())
	}
	wv, err := fn(r.Context(), version, by)
	if err != nil {
		writeServiceError(w, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, wv)
}

func versionParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || v <= 0 {
		writeError(w, http.StatusBadRequest, "invalid weight version")
		return 0, false
	}
	return v, true
}
