package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScoreStore struct {
	db *pgxpool.Pool
}

func NewScoreStore(db *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{db: db}
}

func (s *ScoreStore) Get(ctx context.Context, memoryID uuid.UUID) (*domain.ConfidenceScore, error) {
	sc := &domain.ConfidenceScore{}
	err := s.db.QueryRow(ctx,
		`SELECT memory_id, final_score, level, recommendation, factors, weights, weights_version, version, calculated_at
		 FROM confidence_scores WHERE memory_id = $1`,
		memoryID,
	).Scan(&sc.MemoryID, &sc.FinalScore, &sc.Level, &sc.Recommendation, &sc.Factors, &sc.Weights, &sc.WeightsVersion, &sc.Version, &sc.CalculatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sc, nil
}

// Upsert writes sc only if the stored row is still at expectedVersion. A first
// write uses expectedVersion 0 and loses to any concurrent first write.
func (s *ScoreStore) Upsert(ctx context.Context, sc *domain.ConfidenceScore, expectedVersion int64) error {
	var tag pgconn.CommandTag
	var err error
	if expectedVersion == 0 {
		tag, err = s.db.Exec(ctx,
			`INSERT INTO confidence_scores (memory_id, final_score, level, recommendation, factors, weights, weights_version, version, calculated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8)
			 ON CONFLICT (memory_id) DO NOTHING`,
			sc.MemoryID, sc.FinalScore, sc.Level, sc.Recommendation, sc.Factors, sc.Weights, sc.WeightsVersion, sc.CalculatedAt,
		)
	} else {
		tag, err = s.db.Exec(ctx,
			`UPDATE confidence_scores
			 SET final_score = $2, level = $3, recommendation = $4, factors = $5, weights = $6,
			     weights_version = $7, calculated_at = $8, version = version + 1
			 WHERE memory_id = $1 AND version = $9`,
			sc.MemoryID, sc.FinalScore, sc.Level, sc.Recommendation, sc.Factors, sc.Weights, sc.WeightsVersion, sc.CalculatedAt, expectedVersion,
		)
	}
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	sc.Version = expectedVersion + 1
	return nil
}

func (s *ScoreStore) ListMemoryIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT memory_id FROM confidence_scores`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
