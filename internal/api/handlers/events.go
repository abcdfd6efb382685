package handlers

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/service"
	"github.com/google/uuid"
)

type Verifier interface {
	Verify(ctx context.Context, memoryID uuid.UUID, in service.VerifyInput) (*domain.Verification, bool, error)
	List(ctx context.Context, memoryID uuid.UUID) ([]domain.Verification, error)
}

type OutcomeReporter interface {
	Report(ctx context.Context, memoryID uuid.UUID, in service.UsageInput) (*domain.UsageOutcome, bool, error)
}

type Voter interface {
	Vote(ctx context.Context, memoryID uuid.UUID, in service.VoteInput) (*domain.FactVote, error)
	List(ctx context.Context, memoryID uuid.UUID) ([]domain.FactVote, error)
}

// EventHandler records verifications, usage outcomes and votes. Each accepted
// event schedules a recompute; the response does not wait for it.
type EventHandler struct {
	verifications Verifier
	outcomes      OutcomeReporter
	votes         Voter
}

func NewEventHandler(verifications Verifier, outcomes OutcomeReporter, votes Voter) *EventHandler {
	return &EventHandler{verifications: verifications, outcomes: outcomes, votes: votes}
}

type eventResponse struct {
	Event     any  `json:"event"`
	Duplicate bool `json:"duplicate"`
}

func (h *EventHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory")
	if !ok {
		return
	}
	var req service.VerifyInput
	if !decodeBody(w, r, &req) {
		return
	}

	v, created, err := h.verifications.Verify(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "failed to record verification")
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, eventResponse{Event: v, Duplicate: !created})
}

func (h *EventHandler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory")
	if !ok {
		return
	}
	vs, err := h.verifications.List(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to list verifications")
		return
	}
	if vs == nil {
		vs = []domain.Verification{}
	}
	writeJSON(w, http.StatusOK, vs)
}

func (h *EventHandler) ReportOutcome(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory")
	if !ok {
		return
	}
	var req service.UsageInput
	if !decodeBody(w, r, &req) {
		return
	}

	u, created, err := h.outcomes.Report(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "failed to record outcome")
		return
	}
	writeJSON(w, http.StatusAccepted, eventResponse{Event: u, Duplicate: !created})
}

func (h *EventHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory")
	if !ok {
		return
	}
	var req service.VoteInput
	if !decodeBody(w, r, &req) {
		return
	}

	v, err := h.votes.Vote(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "failed to record vote")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *EventHandler) ListVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "memory")
	if !ok {
		return
	}
	vs, err := h.votes.List(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to list votes")
		return
	}
	if vs == nil {
		vs = []domain.FactVote{}
	}
	writeJSON(w, http.StatusOK, vs)
}
