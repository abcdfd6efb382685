package store

import (
	"context"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VoteStore struct {
	db *pgxpool.Pool
}

func NewVoteStore(db *pgxpool.Pool) *VoteStore {
	return &VoteStore{db: db}
}

// Upsert keeps one vote per (memory, agent); a repeat vote replaces the
// earlier one and keeps its creation time.
func (s *VoteStore) Upsert(ctx context.Context, v *domain.FactVote) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO fact_votes (memory_id, agent_id, vote, confidence, reasoning, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (memory_id, agent_id) DO UPDATE SET
		    vote = EXCLUDED.vote,
		    confidence = EXCLUDED.confidence,
		    reasoning = EXCLUDED.reasoning,
		    updated_at = EXCLUDED.updated_at
		 RETURNING created_at, updated_at`,
		v.MemoryID, v.AgentID, v.Vote, v.Confidence, v.Reasoning, v.UpdatedAt,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
}

func (s *VoteStore) ListByMemory(ctx context.Context, memoryID uuid.UUID) ([]domain.FactVote, error) {
	return s.list(ctx,
		`SELECT memory_id, agent_id, vote, confidence, reasoning, created_at, updated_at
		 FROM fact_votes WHERE memory_id = $1 ORDER BY agent_id`,
		memoryID,
	)
}

func (s *VoteStore) ListByMemories(ctx context.Context, memoryIDs []uuid.UUID) ([]domain.FactVote, error) {
	if len(memoryIDs) == 0 {
		return nil, nil
	}
	return s.list(ctx,
		`SELECT memory_id, agent_id, vote, confidence, reasoning, created_at, updated_at
		 FROM fact_votes WHERE memory_id = ANY($1) ORDER BY memory_id, agent_id`,
		memoryIDs,
	)
}

func (s *VoteStore) list(ctx context.Context, query string, args ...any) ([]domain.FactVote, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.FactVote
	for rows.Next() {
		var v domain.FactVote
		if err := rows.Scan(&v.MemoryID, &v.AgentID, &v.Vote, &v.Confidence, &v.Reasoning, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}
