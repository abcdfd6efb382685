package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const weightColumns = `version, weights, status, source, reason, calibration_error, projected_error, sample_size, activated_by, created_at, activated_at`

type WeightStore struct {
	db *pgxpool.Pool
}

func NewWeightStore(db *pgxpool.Pool) *WeightStore {
	return &WeightStore{db: db}
}

func scanWeightVersion(row pgx.Row) (*domain.WeightVersion, error) {
	w := &domain.WeightVersion{}
	err := row.Scan(&w.Version, &w.Weights, &w.Status, &w.Source, &w.Reason, &w.CalibrationError,
		&w.ProjectedError, &w.SampleSize, &w.ActivatedBy, &w.CreatedAt, &w.ActivatedAt)
	return w, err
}

func (s *WeightStore) Create(ctx context.Context, w *domain.WeightVersion) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO weight_versions (weights, status, source, reason, calibration_error, projected_error, sample_size, activated_by, activated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING version, created_at`,
		w.Weights, w.Status, w.Source, w.Reason, w.CalibrationError, w.ProjectedError, w.SampleSize, w.ActivatedBy, w.ActivatedAt,
	).Scan(&w.Version, &w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert weight version: %w", err)
	}
	return nil
}

func (s *WeightStore) GetActive(ctx context.Context) (*domain.WeightVersion, error) {
	return s.get(ctx, `SELECT `+weightColumns+` FROM weight_versions WHERE status = 'active'`)
}

func (s *WeightStore) GetByVersion(ctx context.Context, version int) (*domain.WeightVersion, error) {
	return s.get(ctx, `SELECT `+weightColumns+` FROM weight_versions WHERE version = $1`, version)
}

func (s *WeightStore) get(ctx context.Context, query string, args ...any) (*domain.WeightVersion, error) {
	w, err := scanWeightVersion(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

func (s *WeightStore) List(ctx context.Context, limit int) ([]domain.WeightVersion, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+weightColumns+` FROM weight_versions ORDER BY version DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.WeightVersion
	for rows.Next() {
		w, err := scanWeightVersion(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *w)
	}
	return results, rows.Err()
}

// Activate makes version the single active weight set. Rejected versions
// cannot be activated.
func (s *WeightStore) Activate(ctx context.Context, version int, activatedBy string, at time.Time) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var status domain.WeightStatus
		err := tx.QueryRow(ctx,
			`SELECT status FROM weight_versions WHERE version = $1 FOR UPDATE`, version,
		).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		switch status {
		case domain.WeightStatusActive:
			return nil
		case domain.WeightStatusRejected:
			return ErrConflict
		}

		if _, err := tx.Exec(ctx,
			`UPDATE weight_versions SET status = 'superseded' WHERE status = 'active'`,
		); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE weight_versions SET status = 'active', activated_by = $2, activated_at = $3 WHERE version = $1`,
			version, activatedBy, at,
		)
		return err
	})
}

func (s *WeightStore) SetStatus(ctx context.Context, version int, status domain.WeightStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE weight_versions SET status = $2 WHERE version = $1`, version, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
