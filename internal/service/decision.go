package service

import (
	"context"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/google/uuid"
)

type DecisionService struct {
	scores ScoreReader
	cfg    *scoring.Config
}

func NewDecisionService(scores ScoreReader, cfg *scoring.Config) *DecisionService {
	return &DecisionService{scores: scores, cfg: cfg}
}

// ShouldActOn advises whether an action of the given risk may rely on the
// memory. An empty risk is treated as medium.
func (s *DecisionService) ShouldActOn(ctx context.Context, memoryID uuid.UUID, risk string, sctx *domain.ScoringContext) (*domain.DecisionGuidance, error) {
	if risk == "" {
		risk = string(domain.RiskMedium)
	}
	if !domain.ValidActionRisk(risk) {
		return nil, domain.Invalid("risk", "must be one of low, medium, high, critical")
	}
	sc, err := s.scores.GetConfidence(ctx, memoryID, sctx)
	if err != nil {
		return nil, err
	}
	g := s.cfg.Advise(sc, domain.ActionRisk(risk))
	return &g, nil
}
