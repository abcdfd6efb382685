package handlers

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/veritas/internal/api/middleware"
	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/service"
	"github.com/google/uuid"
)

type Contradictions interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Contradiction, error)
	List(ctx context.Context, status string, limit int) ([]domain.Contradiction, error)
	Resolve(ctx context.Context, id uuid.UUID, in service.ResolveInput) (*domain.Contradiction, error)
}

type ContradictionHandler struct {
	svc Contradictions
}

func NewContradictionHandler(svc Contradictions) *ContradictionHandler {
	return &ContradictionHandler{svc: svc}
}

func (h *ContradictionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit", 100)
	if !ok {
		return
	}
	cs, err := h.svc.List(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		writeServiceError(w, err, "failed to list contradictions")
		return
	}
	if cs == nil {
		cs = []domain.Contradiction{}
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *ContradictionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "contradiction")
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get contradiction")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ContradictionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "contradiction")
	if !ok {
		return
	}
	var req service.ResolveInput
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ResolvedBy == "" {
		req.ResolvedBy = middleware.CallerFromContext(r.Context())
	}

	c, err := h.svc.Resolve(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "failed to resolve contradiction")
		return
	}
	writeJSON(w, http.StatusOK, c)
}
