package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/Harshitk-cp/veritas/internal/store"
	"go.uber.org/zap"
)

// CredibilityService keeps the per (agent, category) track record and turns it
// into source scores.
type CredibilityService struct {
	store  domain.CredibilityStore
	cfg    *scoring.Config
	logger *zap.Logger
	now    clock
}

func NewCredibilityService(cs domain.CredibilityStore, cfg *scoring.Config, logger *zap.Logger) *CredibilityService {
	return &CredibilityService{store: cs, cfg: cfg, logger: logger, now: utcNow}
}

func (s *CredibilityService) Contribution(ctx context.Context, agentID, category string) error {
	_, err := s.apply(ctx, agentID, category, domain.CredibilityDelta{Contributions: 1})
	return err
}

// RecordVerification credits or debits the memory's author. An outdated
// verdict counts neither way.
func (s *CredibilityService) RecordVerification(ctx context.Context, m *domain.MemoryRecord, t domain.VerificationType) error {
	var delta domain.CredibilityDelta
	switch t {
	case domain.VerificationConfirmed, domain.VerificationStillValid, domain.VerificationPartiallyValid:
		delta.Correct = 1
	case domain.VerificationIncorrect:
		delta.Incorrect = 1
	default:
		return nil
	}
	_, err := s.apply(ctx, m.CreatorID, m.Category, delta)
	return err
}

// RecordCorrection is charged to the author of a memory that lost a resolution.
func (s *CredibilityService) RecordCorrection(ctx context.Context, agentID, category string) error {
	_, err := s.apply(ctx, agentID, category, domain.CredibilityDelta{Corrections: 1})
	return err
}

func (s *CredibilityService) apply(ctx context.Context, agentID, category string, delta domain.CredibilityDelta) (*domain.AgentCredibility, error) {
	if agentID == "" || category == "" {
		return nil, nil
	}
	now := s.now()
	delta.At = now
	cred, err := s.store.Apply(ctx, agentID, category, delta)
	if err != nil {
		return nil, fmt.Errorf("apply credibility: %w", err)
	}
	score := s.cfg.AgentCredibility(cred, now)
	if err := s.store.UpdateScore(ctx, agentID, category, score); err != nil {
		return nil, fmt.Errorf("update credibility score: %w", err)
	}
	cred.CredibilityScore = score

	s.logger.Debug("credibility updated",
		zap.String("agent_id", agentID),
		zap.String("category", category),
		zap.Float64("score", score),
	)
	return cred, nil
}

// Get returns the aggregate for one category, or a zero aggregate at the
// unknown baseline when the agent has no history there.
func (s *CredibilityService) Get(ctx context.Context, agentID, category string) (*domain.AgentCredibility, error) {
	if agentID == "" {
		return nil, domain.Invalid("agent_id", "is required")
	}
	if category == "" {
		return nil, domain.Invalid("category", "is required")
	}
	cred, err := s.store.Get(ctx, agentID, category)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.AgentCredibility{
			AgentID:          agentID,
			Category:         category,
			CredibilityScore: s.cfg.Credibility.UnknownBaseline,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	cred.CredibilityScore = s.cfg.AgentCredibility(cred, s.now())
	return cred, nil
}

func (s *CredibilityService) List(ctx context.Context, agentID string) ([]domain.AgentCredibility, error) {
	if agentID == "" {
		return nil, domain.Invalid("agent_id", "is required")
	}
	creds, err := s.store.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range creds {
		creds[i].CredibilityScore = s.cfg.AgentCredibility(&creds[i], now)
	}
	return creds, nil
}

// SourceScore is the source credibility factor of a memory.
func (s *CredibilityService) SourceScore(ctx context.Context, m *domain.MemoryRecord) (float64, error) {
	cred, err := s.store.Get(ctx, m.CreatorID, m.Category)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	agent := s.cfg.AgentCredibility(cred, s.now())
	return s.cfg.SourceScore(agent, m.CreatorRole, m.SourceType), nil
}
