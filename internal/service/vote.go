package service

import (
	"context"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VoteInput struct {
	AgentID    string  `json:"agent_id"`
	Vote       string  `json:"vote"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

type VoteService struct {
	memories domain.MemoryStore
	votes    domain.VoteStore
	clusters domain.ClusterStore
	enq      Enqueuer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      clock
}

func NewVoteService(st Stores, enq Enqueuer, logger *zap.Logger) *VoteService {
	return &VoteService{
		memories: st.Memories,
		votes:    st.Votes,
		clusters: st.Clusters,
		enq:      enq,
		logger:   logger,
		metrics:  metrics.New(),
		now:      utcNow,
	}
}

// Vote records or replaces the agent's vote on a memory.
func (s *VoteService) Vote(ctx context.Context, memoryID uuid.UUID, in VoteInput) (*domain.FactVote, error) {
	in.AgentID = strings.TrimSpace(in.AgentID)
	if in.AgentID == "" {
		return nil, domain.Invalid("agent_id", "is required")
	}
	if !domain.ValidVoteType(in.Vote) {
		return nil, domain.Invalid("vote", "must be one of agree, disagree, unsure")
	}
	if in.Confidence < 0 || in.Confidence > 1 {
		return nil, domain.Invalid("confidence", "must be between 0 and 1")
	}
	if _, err := getMemory(ctx, s.memories, memoryID); err != nil {
		return nil, err
	}

	v := &domain.FactVote{
		MemoryID:   memoryID,
		AgentID:    in.AgentID,
		Vote:       domain.VoteType(in.Vote),
		Confidence: in.Confidence,
		Reasoning:  strings.TrimSpace(in.Reasoning),
		UpdatedAt:  s.now(),
	}
	if err := s.votes.Upsert(ctx, v); err != nil {
		return nil, err
	}
	s.metrics.EventsRecordedTotal.WithLabelValues("vote").Inc()
	enqueueWithCluster(ctx, s.clusters, s.enq, memoryID, s.logger)

	s.logger.Info("vote recorded",
		zap.String("memory_id", memoryID.String()),
		zap.String("agent_id", v.AgentID),
		zap.String("vote", string(v.Vote)),
	)
	return v, nil
}

func (s *VoteService) List(ctx context.Context, memoryID uuid.UUID) ([]domain.FactVote, error) {
	if _, err := getMemory(ctx, s.memories, memoryID); err != nil {
		return nil, err
	}
	return s.votes.ListByMemory(ctx, memoryID)
}
