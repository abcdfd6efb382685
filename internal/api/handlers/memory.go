package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/service"
	"github.com/google/uuid"
)

type Ingester interface {
	Ingest(ctx context.Context, id uuid.UUID, in service.IngestInput) (*service.IngestResult, error)
}

type Advisor interface {
	ShouldActOn(ctx context.Context, memoryID uuid.UUID, risk string, sctx *domain.ScoringContext) (*domain.DecisionGuidance, error)
}

type Searcher interface {
	Search(ctx context.Context, q service.SearchQuery) ([]service.SearchResult, error)
}

type MemoryContradictions interface {
	ListForMemory(ctx context.Context, memoryID uuid.UUID) ([]domain.Contradiction, error)
}

// MemoryHandler serves the per-memory read paths and the ingest hook.
type MemoryHandler struct {
	ingest         Ingester
	scores         service.ScoreReader
	advisor        Advisor
	search         Searcher
	contradictions MemoryContradictions
}

func NewMemoryHandler(ingest Ingester, scores service.ScoreReader, advisor Advisor, search Searcher, contradictions MemoryContradictions) *MemoryHandler {
	return &MemoryHandler{
		ingest:         ingest,
		scores:         scores,
		advisor:        advisor,
		search:         search,
		contradictions: contradictions,
	}
}

func (h *MemoryHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory")
	if !ok {
		return
	}
	var req service.IngestInput
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.ingest.Ingest(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "failed to ingest memory")
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (h *MemoryHandler) Confidence(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory")
	if !ok {
		return
	}
	sc, err := h.scores.GetConfidence(r.Context(), id, scoringContext(r))
	if err != nil {
		writeServiceError(w, err, "failed to get confidence")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *MemoryHandler) Decision(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory")
	if !ok {
		return
	}
	risk := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("risk")))
	g, err := h.advisor.ShouldActOn(r.Context(), id, risk, scoringContext(r))
	if err != nil {
		writeServiceError(w, err, "failed to evaluate decision")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, ok := intQuery(w, r, "limit", 0)
	if !ok {
		return
	}
	var minConfidence float64
	if raw := q.Get("min_confidence"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_confidence")
			return
		}
		minConfidence = v
	}

	results, err := h.search.Search(r.Context(), service.SearchQuery{
		Query:         q.Get("q"),
		Category:      strings.TrimSpace(q.Get("category")),
		MinConfidence: minConfidence,
		Limit:         limit,
		Context:       scoringContext(r),
	})
	if err != nil {
		writeServiceError(w, err, "failed to search memories")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (h *MemoryHandler) Contradictions(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory")
	if !ok {
		return
	}
	cs, err := h.contradictions.ListForMemory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to list contradictions")
		return
	}
	if cs == nil {
		cs = []domain.Contradiction{}
	}
	writeJSON(w, http.StatusOK, cs)
}
