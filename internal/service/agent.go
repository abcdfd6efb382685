package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/store"
	"go.uber.org/zap"
)

var ErrAgentNotFound = errors.New("agent not found")

type AgentService struct {
	store  domain.AgentStore
	logger *zap.Logger
}

func NewAgentService(as domain.AgentStore, logger *zap.Logger) *AgentService {
	return &AgentService{store: as, logger: logger}
}

// Register creates or updates an agent profile.
func (s *AgentService) Register(ctx context.Context, p *domain.AgentProfile) error {
	p.AgentID = strings.TrimSpace(p.AgentID)
	if p.AgentID == "" {
		return domain.Invalid("agent_id", "is required")
	}
	if p.Role == "" {
		p.Role = domain.RoleAgent
	}
	if !domain.ValidAgentRole(string(p.Role)) {
		return domain.Invalid("role", "must be one of admin, senior, engineer, agent, guest")
	}
	p.Specialization = strings.ToLower(strings.TrimSpace(p.Specialization))
	if err := s.store.Upsert(ctx, p); err != nil {
		return err
	}
	s.logger.Debug("agent registered", zap.String("agent_id", p.AgentID), zap.String("role", string(p.Role)))
	return nil
}

func (s *AgentService) GetByID(ctx context.Context, agentID string) (*domain.AgentProfile, error) {
	p, err := s.store.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return p, nil
}
