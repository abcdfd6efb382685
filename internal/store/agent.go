package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AgentStore struct {
	db *pgxpool.Pool
}

func NewAgentStore(db *pgxpool.Pool) *AgentStore {
	return &AgentStore{db: db}
}

// Upsert registers an agent or refreshes its role. An empty specialization or
// metadata keeps the stored value.
func (s *AgentStore) Upsert(ctx context.Context, p *domain.AgentProfile) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO agents (agent_id, role, specialization, metadata)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (agent_id) DO UPDATE SET
		    role = EXCLUDED.role,
		    specialization = COALESCE(NULLIF(EXCLUDED.specialization, ''), agents.specialization),
		    metadata = COALESCE(EXCLUDED.metadata, agents.metadata),
		    updated_at = NOW()
		 RETURNING specialization, first_seen_at, updated_at`,
		p.AgentID, p.Role, p.Specialization, p.Metadata,
	).Scan(&p.Specialization, &p.FirstSeenAt, &p.UpdatedAt)
}

func (s *AgentStore) GetByID(ctx context.Context, agentID string) (*domain.AgentProfile, error) {
	p := &domain.AgentProfile{}
	err := s.db.QueryRow(ctx,
		`SELECT agent_id, role, specialization, metadata, first_seen_at, updated_at
		 FROM agents WHERE agent_id = $1`,
		agentID,
	).Scan(&p.AgentID, &p.Role, &p.Specialization, &p.Metadata, &p.FirstSeenAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *AgentStore) GetByIDs(ctx context.Context, agentIDs []string) (map[string]domain.AgentProfile, error) {
	profiles := make(map[string]domain.AgentProfile, len(agentIDs))
	if len(agentIDs) == 0 {
		return profiles, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT agent_id, role, specialization, metadata, first_seen_at, updated_at
		 FROM agents WHERE agent_id = ANY($1)`,
		agentIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.AgentProfile
		if err := rows.Scan(&p.AgentID, &p.Role, &p.Specialization, &p.Metadata, &p.FirstSeenAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		profiles[p.AgentID] = p
	}
	return profiles, rows.Err()
}
