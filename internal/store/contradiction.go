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

const contradictionColumns = `id, memory_a, memory_b, type, severity, entity, attribute, value_a, value_b, status, attempts, next_attempt_at, resolution, detected_at`

type ContradictionStore struct {
	db *pgxpool.Pool
}

func NewContradictionStore(db *pgxpool.Pool) *ContradictionStore {
	return &ContradictionStore{db: db}
}

func scanContradiction(row pgx.Row) (*domain.Contradiction, error) {
	c := &domain.Contradiction{}
	err := row.Scan(&c.ID, &c.MemoryA, &c.MemoryB, &c.Type, &c.Severity, &c.Entity, &c.Attribute,
		&c.ValueA, &c.ValueB, &c.Status, &c.Attempts, &c.NextAttemptAt, &c.Resolution, &c.DetectedAt)
	return c, err
}

// Create inserts the pair once; a second detection of the same pair is a no-op.
func (s *ContradictionStore) Create(ctx context.Context, c *domain.Contradiction) (bool, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = domain.ContradictionOpen
	}
	tag, err := s.db.Exec(ctx,
		`INSERT INTO contradictions (`+contradictionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (memory_a, memory_b) DO NOTHING`,
		c.ID, c.MemoryA, c.MemoryB, c.Type, c.Severity, c.Entity, c.Attribute,
		c.ValueA, c.ValueB, c.Status, c.Attempts, c.NextAttemptAt, c.Resolution, c.DetectedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert contradiction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *ContradictionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contradiction, error) {
	c, err := scanContradiction(s.db.QueryRow(ctx,
		`SELECT `+contradictionColumns+` FROM contradictions WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ContradictionStore) ListByMemory(ctx context.Context, memoryID uuid.UUID) ([]domain.Contradiction, error) {
	return s.list(ctx,
		`SELECT `+contradictionColumns+` FROM contradictions
		 WHERE memory_a = $1 OR memory_b = $1
		 ORDER BY detected_at ASC`,
		memoryID,
	)
}

func (s *ContradictionStore) ListByStatus(ctx context.Context, status domain.ContradictionStatus, limit int) ([]domain.Contradiction, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.list(ctx,
		`SELECT `+contradictionColumns+` FROM contradictions
		 WHERE status = $1
		 ORDER BY detected_at DESC
		 LIMIT $2`,
		status, limit,
	)
}

// ListDue returns open contradictions whose next attempt time has passed.
func (s *ContradictionStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Contradiction, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.list(ctx,
		`SELECT `+contradictionColumns+` FROM contradictions
		 WHERE status = 'open' AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
		 ORDER BY detected_at ASC
		 LIMIT $2`,
		now, limit,
	)
}

func (s *ContradictionStore) list(ctx context.Context, query string, args ...any) ([]domain.Contradiction, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Contradiction
	for rows.Next() {
		c, err := scanContradiction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contradiction row: %w", err)
		}
		results = append(results, *c)
	}
	return results, rows.Err()
}

// Resolve closes a contradiction. It fails with ErrConflict if the
// contradiction was already resolved.
func (s *ContradictionStore) Resolve(ctx context.Context, id uuid.UUID, r *domain.Resolution) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE contradictions
		 SET status = 'resolved', resolution = $2, next_attempt_at = NULL
		 WHERE id = $1 AND status <> 'resolved'`,
		id, r,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *ContradictionStore) RecordAttempt(ctx context.Context, id uuid.UUID, status domain.ContradictionStatus, nextAttemptAt *time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE contradictions
		 SET attempts = attempts + 1, status = $2, next_attempt_at = $3
		 WHERE id = $1 AND status <> 'resolved'`,
		id, status, nextAttemptAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
