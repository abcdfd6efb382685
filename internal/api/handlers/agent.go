package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/go-chi/chi/v5"
)

type Agents interface {
	Register(ctx context.Context, p *domain.AgentProfile) error
	GetByID(ctx context.Context, agentID string) (*domain.AgentProfile, error)
}

type Credibility interface {
	Get(ctx context.Context, agentID, category string) (*domain.AgentCredibility, error)
	List(ctx context.Context, agentID string) ([]domain.AgentCredibility, error)
}

type AgentHandler struct {
	agents      Agents
	credibility Credibility
}

func NewAgentHandler(agents Agents, credibility Credibility) *AgentHandler {
	return &AgentHandler{agents: agents, credibility: credibility}
}

type registerAgentRequest struct {
	Role           string         `json:"role"`
	Specialization string         `json:"specialization"`
	Metadata       map[string]any `json:"metadata"`
}

func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	profile := &domain.AgentProfile{
		AgentID:        chi.URLParam(r, "id"),
		Role:           domain.AgentRole(strings.ToLower(strings.TrimSpace(req.Role))),
		Specialization: req.Specialization,
		Metadata:       req.Metadata,
	}
	if err := h.agents.Register(r.Context(), profile); err != nil {
		writeServiceError(w, err, "failed to register agent")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AgentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agents.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "failed to get agent")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// Credibility returns one category's record when ?category= is set, otherwise
// every category the agent has history in.
func (h *AgentHandler) Credibility(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "id")
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		cred, err := h.credibility.Get(r.Context(), agentID, category)
		if err != nil {
			writeServiceError(w, err, "failed to get credibility")
			return
		}
		writeJSON(w, http.StatusOK, cred)
		return
	}

	creds, err := h.credibility.List(r.Context(), agentID)
	if err != nil {
		writeServiceError(w, err, "failed to list credibility")
		return
	}
	if creds == nil {
		creds = []domain.AgentCredibility{}
	}
	writeJSON(w, http.StatusOK, creds)
}
