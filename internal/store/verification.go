package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VerificationStore struct {
	db *pgxpool.Pool
}

func NewVerificationStore(db *pgxpool.Pool) *VerificationStore {
	return &VerificationStore{db: db}
}

func (s *VerificationStore) Create(ctx context.Context, v *domain.Verification) (bool, error) {
	if v.DedupKey == "" {
		v.DedupKey = v.NaturalKey()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO verifications (memory_id, verifier_id, type, note, dedup_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (dedup_key) DO NOTHING
		 RETURNING id`,
		v.MemoryID, v.VerifierID, v.Type, v.Note, v.DedupKey, v.CreatedAt,
	).Scan(&v.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert verification: %w", err)
	}
	return true, nil
}

func (s *VerificationStore) ListByMemory(ctx context.Context, memoryID uuid.UUID) ([]domain.Verification, error) {
	return s.list(ctx,
		`SELECT id, memory_id, verifier_id, type, note, dedup_key, created_at
		 FROM verifications WHERE memory_id = $1
		 ORDER BY created_at ASC`,
		memoryID,
	)
}

func (s *VerificationStore) ListByMemories(ctx context.Context, memoryIDs []uuid.UUID) ([]domain.Verification, error) {
	if len(memoryIDs) == 0 {
		return nil, nil
	}
	return s.list(ctx,
		`SELECT id, memory_id, verifier_id, type, note, dedup_key, created_at
		 FROM verifications WHERE memory_id = ANY($1)
		 ORDER BY created_at ASC`,
		memoryIDs,
	)
}

func (s *VerificationStore) list(ctx context.Context, query string, args ...any) ([]domain.Verification, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Verification
	for rows.Next() {
		var v domain.Verification
		if err := rows.Scan(&v.ID, &v.MemoryID, &v.VerifierID, &v.Type, &v.Note, &v.DedupKey, &v.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}
