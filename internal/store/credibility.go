package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const credibilityColumns = `agent_id, category, contribution_count, verified_correct, verified_incorrect, corrections_issued, first_contribution_at, credibility_score, updated_at`

type CredibilityStore struct {
	db *pgxpool.Pool
}

func NewCredibilityStore(db *pgxpool.Pool) *CredibilityStore {
	return &CredibilityStore{db: db}
}

func scanCredibility(row pgx.Row) (*domain.AgentCredibility, error) {
	c := &domain.AgentCredibility{}
	err := row.Scan(&c.AgentID, &c.Category, &c.ContributionCount, &c.VerifiedCorrect, &c.VerifiedIncorrect,
		&c.CorrectionsIssued, &c.FirstContributionAt, &c.CredibilityScore, &c.UpdatedAt)
	return c, err
}

func (s *CredibilityStore) Get(ctx context.Context, agentID, category string) (*domain.AgentCredibility, error) {
	c, err := scanCredibility(s.db.QueryRow(ctx,
		`SELECT `+credibilityColumns+` FROM agent_credibility WHERE agent_id = $1 AND category = $2`,
		agentID, category,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *CredibilityStore) ListByAgent(ctx context.Context, agentID string) ([]domain.AgentCredibility, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+credibilityColumns+` FROM agent_credibility WHERE agent_id = $1 ORDER BY category`,
		agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.AgentCredibility
	for rows.Next() {
		c, err := scanCredibility(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *c)
	}
	return results, rows.Err()
}

// Apply adds delta in a single statement so concurrent events never lose counts.
func (s *CredibilityStore) Apply(ctx context.Context, agentID, category string, delta domain.CredibilityDelta) (*domain.AgentCredibility, error) {
	var firstContribution any
	if delta.Contributions > 0 {
		firstContribution = delta.At
	}
	c, err := scanCredibility(s.db.QueryRow(ctx,
		`INSERT INTO agent_credibility (agent_id, category, contribution_count, verified_correct, verified_incorrect, corrections_issued, first_contribution_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (agent_id, category) DO UPDATE SET
		    contribution_count = agent_credibility.contribution_count + EXCLUDED.contribution_count,
		    verified_correct = agent_credibility.verified_correct + EXCLUDED.verified_correct,
		    verified_incorrect = agent_credibility.verified_incorrect + EXCLUDED.verified_incorrect,
		    corrections_issued = agent_credibility.corrections_issued + EXCLUDED.corrections_issued,
		    first_contribution_at = COALESCE(agent_credibility.first_contribution_at, EXCLUDED.first_contribution_at),
		    updated_at = EXCLUDED.updated_at
		 RETURNING `+credibilityColumns,
		agentID, category, delta.Contributions, delta.Correct, delta.Incorrect, delta.Corrections, firstContribution, delta.At,
	))
	if err != nil {
		return nil, fmt.Errorf("apply credibility delta: %w", err)
	}
	return c, nil
}

func (s *CredibilityStore) UpdateScore(ctx context.Context, agentID, category string, score float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE agent_credibility SET credibility_score = $3 WHERE agent_id = $1 AND category = $2`,
		agentID, category, score,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
