package service

import (
	"context"
	"strings"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UsageInput struct {
	AgentID   string         `json:"agent_id"`
	Action    string         `json:"action"`
	Outcome   string         `json:"outcome"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// UsageService records what happened when agents acted on memories.
type UsageService struct {
	memories domain.MemoryStore
	usage    domain.UsageStore
	scores   ScoreReader
	enq      Enqueuer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      clock
}

func NewUsageService(st Stores, scores ScoreReader, enq Enqueuer, logger *zap.Logger) *UsageService {
	return &UsageService{
		memories: st.Memories,
		usage:    st.Usage,
		scores:   scores,
		enq:      enq,
		logger:   logger,
		metrics:  metrics.New(),
		now:      utcNow,
	}
}

// Report stores the outcome with a snapshot of the score the agent acted on.
// The snapshot is what the learning loop later calibrates.
func (s *UsageService) Report(ctx context.Context, memoryID uuid.UUID, in UsageInput) (*domain.UsageOutcome, bool, error) {
	in.AgentID = strings.TrimSpace(in.AgentID)
	if in.AgentID == "" {
		return nil, false, domain.Invalid("agent_id", "is required")
	}
	if !domain.ValidOutcomeType(in.Outcome) {
		return nil, false, domain.Invalid("outcome", "must be one of success, failure, partial, error")
	}
	at, err := eventTime(in.CreatedAt, s.now())
	if err != nil {
		return nil, false, err
	}
	if _, err := getMemory(ctx, s.memories, memoryID); err != nil {
		return nil, false, err
	}

	u := &domain.UsageOutcome{
		MemoryID:  memoryID,
		AgentID:   in.AgentID,
		Action:    strings.TrimSpace(in.Action),
		Outcome:   domain.OutcomeType(in.Outcome),
		Details:   in.Details,
		CreatedAt: at,
	}
	u.DedupKey = u.NaturalKey()

	if sc, err := s.scores.GetConfidence(ctx, memoryID, nil); err != nil {
		s.logger.Warn("no score snapshot for usage outcome", zap.String("memory_id", memoryID.String()), zap.Error(err))
	} else {
		score, factors := sc.FinalScore, sc.Factors
		u.ScoreAtUse = &score
		u.FactorsAtUse = &factors
	}

	created, err := s.usage.Create(ctx, u)
	if err != nil {
		return nil, false, err
	}
	if !created {
		s.metrics.EventsDuplicateTotal.WithLabelValues("usage").Inc()
		return u, false, nil
	}
	s.metrics.EventsRecordedTotal.WithLabelValues("usage").Inc()
	s.enq.Enqueue(memoryID)

	s.logger.Info("usage outcome recorded",
		zap.String("memory_id", memoryID.String()),
		zap.String("agent_id", u.AgentID),
		zap.String("outcome", string(u.Outcome)),
	)
	return u, true, nil
}
