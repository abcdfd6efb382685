package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConsensusCluster is a group of semantically similar memories in one category,
// treated as independent corroborating evidence. Rebuilt by the batch job.
type ConsensusCluster struct {
	ID                 uuid.UUID   `json:"id"`
	Category           string      `json:"category"`
	Topic              string      `json:"topic"`
	MemoryIDs          []uuid.UUID `json:"memory_ids"`
	AgentIDs           []string    `json:"agent_ids"`
	Specializations    []string    `json:"specializations"`
	IndependenceFactor float64     `json:"independence_factor"`
	AgreementLevel     float64     `json:"agreement_level"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type VoteType string

const (
	VoteAgree    VoteType = "agree"
	VoteDisagree VoteType = "disagree"
	VoteUnsure   VoteType = "unsure"
)

func ValidVoteType(v string) bool {
	switch VoteType(v) {
	case VoteAgree, VoteDisagree, VoteUnsure:
		return true
	}
	return false
}

// FactVote is unique per (memory, agent); a later vote replaces the earlier one.
type FactVote struct {
	MemoryID   uuid.UUID `json:"memory_id"`
	AgentID    string    `json:"agent_id"`
	Vote       VoteType  `json:"vote"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
