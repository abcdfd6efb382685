package domain

import (
	"time"
)

// AgentProfile describes a contributing agent. Specialization feeds consensus
// diversity; FirstSeenAt feeds tenure.
type AgentProfile struct {
	AgentID        string         `json:"agent_id"`
	Role           AgentRole      `json:"role"`
	Specialization string         `json:"specialization,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	FirstSeenAt    time.Time      `json:"first_seen_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// AgentCredibility is the per (agent, category) track record.
type AgentCredibility struct {
	AgentID             string     `json:"agent_id"`
	Category            string     `json:"category"`
	ContributionCount   int        `json:"contribution_count"`
	VerifiedCorrect     int        `json:"verified_correct"`
	VerifiedIncorrect   int        `json:"verified_incorrect"`
	CorrectionsIssued   int        `json:"corrections_issued"`
	FirstContributionAt *time.Time `json:"first_contribution_at,omitempty"`
	CredibilityScore    float64    `json:"credibility_score"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// HasHistory is false for agents the engine has never seen act in a category.
func (c *AgentCredibility) HasHistory() bool {
	return c != nil && (c.ContributionCount > 0 || c.VerifiedCorrect > 0 || c.VerifiedIncorrect > 0 || c.CorrectionsIssued > 0)
}

// CredibilityDelta is an incremental update applied atomically by the store.
type CredibilityDelta struct {
	Contributions int
	Correct       int
	Incorrect     int
	Corrections   int
	At            time.Time
}
