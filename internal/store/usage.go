package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageStore struct {
	db *pgxpool.Pool
}

func NewUsageStore(db *pgxpool.Pool) *UsageStore {
	return &UsageStore{db: db}
}

func (s *UsageStore) Create(ctx context.Context, u *domain.UsageOutcome) (bool, error) {
	if u.DedupKey == "" {
		u.DedupKey = u.NaturalKey()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO usage_outcomes (memory_id, agent_id, action, outcome, details, score_at_use, factors_at_use, dedup_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (dedup_key) DO NOTHING
		 RETURNING id`,
		u.MemoryID, u.AgentID, u.Action, u.Outcome, u.Details, u.ScoreAtUse, u.FactorsAtUse, u.DedupKey, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert usage outcome: %w", err)
	}
	return true, nil
}

func (s *UsageStore) StatsSince(ctx context.Context, memoryID uuid.UUID, since time.Time) (domain.UsageStats, error) {
	var st domain.UsageStats
	err := s.db.QueryRow(ctx,
		`SELECT
		    COUNT(*) FILTER (WHERE outcome = 'success'),
		    COUNT(*) FILTER (WHERE outcome = 'failure'),
		    COUNT(*) FILTER (WHERE outcome = 'partial'),
		    COUNT(*) FILTER (WHERE outcome = 'error')
		 FROM usage_outcomes
		 WHERE memory_id = $1 AND created_at >= $2`,
		memoryID, since,
	).Scan(&st.Successes, &st.Failures, &st.Partials, &st.Errors)
	return st, err
}

// ListWithPredictionsSince returns outcomes that carry a factor snapshot, the
// only ones the learning loop can calibrate against.
func (s *UsageStore) ListWithPredictionsSince(ctx context.Context, since time.Time, limit int) ([]domain.UsageOutcome, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, memory_id, agent_id, action, outcome, details, score_at_use, factors_at_use, dedup_key, created_at
		 FROM usage_outcomes
		 WHERE factors_at_use IS NOT NULL AND created_at >= $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.UsageOutcome
	for rows.Next() {
		var u domain.UsageOutcome
		if err := rows.Scan(&u.ID, &u.MemoryID, &u.AgentID, &u.Action, &u.Outcome, &u.Details, &u.ScoreAtUse, &u.FactorsAtUse, &u.DedupKey, &u.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}
