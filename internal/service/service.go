// Package service wires the scoring models to persistence, scheduling and
// notification. Handlers call services; services call domain store
// interfaces and never each other's stores directly.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stores groups the repositories the services read and write.
type Stores struct {
	Memories       domain.MemoryStore
	Scores         domain.ScoreStore
	Verifications  domain.VerificationStore
	Usage          domain.UsageStore
	Agents         domain.AgentStore
	Credibility    domain.CredibilityStore
	Clusters       domain.ClusterStore
	Contradictions domain.ContradictionStore
	Votes          domain.VoteStore
	Weights        domain.WeightStore
}

// Enqueuer schedules a debounced recompute of one memory's score.
type Enqueuer interface {
	Enqueue(id uuid.UUID)
}

// ScoreReader returns the current score of a memory, re-aggregated for sctx
// when it is non-empty.
type ScoreReader interface {
	GetConfidence(ctx context.Context, memoryID uuid.UUID, sctx *domain.ScoringContext) (*domain.ConfidenceScore, error)
}

type clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// maxClockSkew is how far ahead of the server clock a caller's timestamp may be.
const maxClockSkew = 5 * time.Minute

// eventTime defaults a zero timestamp to now and rejects future ones.
func eventTime(at, now time.Time) (time.Time, error) {
	if at.IsZero() {
		return now, nil
	}
	if at.After(now.Add(maxClockSkew)) {
		return time.Time{}, domain.Invalid("created_at", "must not be in the future")
	}
	return at.UTC(), nil
}

func getMemory(ctx context.Context, memories domain.MemoryStore, id uuid.UUID) (*domain.MemoryRecord, error) {
	if id == uuid.Nil {
		return nil, domain.Invalid("memory_id", "is required")
	}
	m, err := memories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrMemoryNotFound
		}
		return nil, err
	}
	return m, nil
}

// enqueueWithCluster schedules id and every memory sharing its consensus
// cluster, whose agreement level depends on id's evidence.
func enqueueWithCluster(ctx context.Context, clusters domain.ClusterStore, enq Enqueuer, id uuid.UUID, logger *zap.Logger) {
	enq.Enqueue(id)
	cluster, err := clusters.GetByMemoryID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("failed to load cluster for fan-out", zap.String("memory_id", id.String()), zap.Error(err))
		}
		return
	}
	for _, member := range cluster.MemoryIDs {
		if member != id {
			enq.Enqueue(member)
		}
	}
}
