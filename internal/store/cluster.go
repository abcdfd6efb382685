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

const clusterColumns = `id, category, topic, memory_ids, agent_ids, specializations, independence_factor, agreement_level, updated_at`

type ClusterStore struct {
	db *pgxpool.Pool
}

func NewClusterStore(db *pgxpool.Pool) *ClusterStore {
	return &ClusterStore{db: db}
}

func scanCluster(row pgx.Row) (*domain.ConsensusCluster, error) {
	c := &domain.ConsensusCluster{}
	err := row.Scan(&c.ID, &c.Category, &c.Topic, &c.MemoryIDs, &c.AgentIDs, &c.Specializations,
		&c.IndependenceFactor, &c.AgreementLevel, &c.UpdatedAt)
	return c, err
}

func (s *ClusterStore) ReplaceCategory(ctx context.Context, category string, clusters []domain.ConsensusCluster) ([]uuid.UUID, error) {
	var previous []uuid.UUID
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`DELETE FROM consensus_clusters WHERE category = $1 RETURNING memory_ids`, category,
		)
		if err != nil {
			return err
		}
		for rows.Next() {
			var ids []uuid.UUID
			if err := rows.Scan(&ids); err != nil {
				rows.Close()
				return err
			}
			previous = append(previous, ids...)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, c := range clusters {
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			agents := c.AgentIDs
			if agents == nil {
				agents = []string{}
			}
			specs := c.Specializations
			if specs == nil {
				specs = []string{}
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO consensus_clusters (`+clusterColumns+`)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				c.ID, category, c.Topic, c.MemoryIDs, agents, specs, c.IndependenceFactor, c.AgreementLevel, c.UpdatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replace clusters for %s: %w", category, err)
	}
	return previous, nil
}

func (s *ClusterStore) ListByCategory(ctx context.Context, category string) ([]domain.ConsensusCluster, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+clusterColumns+` FROM consensus_clusters WHERE category = $1 ORDER BY agreement_level DESC`,
		category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ConsensusCluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *c)
	}
	return results, rows.Err()
}

func (s *ClusterStore) GetByMemoryID(ctx context.Context, memoryID uuid.UUID) (*domain.ConsensusCluster, error) {
	c, err := scanCluster(s.db.QueryRow(ctx,
		`SELECT `+clusterColumns+` FROM consensus_clusters WHERE $1 = ANY(memory_ids) LIMIT 1`,
		memoryID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}
