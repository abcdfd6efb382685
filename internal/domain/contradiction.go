package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContradictionType string

const (
	ContradictionSemantic ContradictionType = "semantic"
	ContradictionFactual  ContradictionType = "factual"
	ContradictionTemporal ContradictionType = "temporal"
)

type ContradictionStatus string

const (
	ContradictionOpen        ContradictionStatus = "open"
	ContradictionNeedsReview ContradictionStatus = "needs_review"
	ContradictionResolved    ContradictionStatus = "resolved"
)

func ValidContradictionStatus(s string) bool {
	switch ContradictionStatus(s) {
	case ContradictionOpen, ContradictionNeedsReview, ContradictionResolved:
		return true
	}
	return false
}

type ResolutionStrategy string

const (
	StrategyTemporal              ResolutionStrategy = "temporal"
	StrategySourceCredibility     ResolutionStrategy = "source_credibility"
	StrategyConsensus             ResolutionStrategy = "consensus"
	StrategyAutomatedVerification ResolutionStrategy = "automated_verification"
	StrategyManual                ResolutionStrategy = "manual"
)

func ValidResolutionStrategy(s string) bool {
	switch ResolutionStrategy(s) {
	case StrategyTemporal, StrategySourceCredibility, StrategyConsensus,
		StrategyAutomatedVerification, StrategyManual:
		return true
	}
	return false
}

type Resolution struct {
	Strategy    ResolutionStrategy `json:"strategy"`
	WinnerID    uuid.UUID          `json:"winner_id"`
	LoserID     uuid.UUID          `json:"loser_id"`
	LoserStatus MemoryStatus       `json:"loser_status"`
	Reason      string             `json:"reason"`
	ResolvedBy  string             `json:"resolved_by"`
	ResolvedAt  time.Time          `json:"resolved_at"`
}

// Contradiction is created once per conflicting pair. MemoryA sorts before
// MemoryB so the pair has a single identity. It is never deleted.
type Contradiction struct {
	ID            uuid.UUID           `json:"id"`
	MemoryA       uuid.UUID           `json:"memory_a"`
	MemoryB       uuid.UUID           `json:"memory_b"`
	Type          ContradictionType   `json:"type"`
	Severity      float64             `json:"severity"`
	Entity        string              `json:"entity"`
	Attribute     string              `json:"attribute"`
	ValueA        string              `json:"value_a"`
	ValueB        string              `json:"value_b"`
	Status        ContradictionStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	NextAttemptAt *time.Time          `json:"next_attempt_at,omitempty"`
	Resolution    *Resolution         `json:"resolution,omitempty"`
	DetectedAt    time.Time           `json:"detected_at"`
}

// OrderPair returns the canonical (a, b) ordering for a contradiction pair.
func OrderPair(x, y uuid.UUID) (uuid.UUID, uuid.UUID, bool) {
	if x.String() <= y.String() {
		return x, y, false
	}
	return y, x, true
}

func (c *Contradiction) Involves(id uuid.UUID) bool {
	return c.MemoryA == id || c.MemoryB == id
}

func (c *Contradiction) Other(id uuid.UUID) uuid.UUID {
	if c.MemoryA == id {
		return c.MemoryB
	}
	return c.MemoryA
}

// Unresolved contradictions penalize both sides.
func (c *Contradiction) Unresolved() bool {
	return c.Status != ContradictionResolved
}

type FactKind string

const (
	FactState     FactKind = "state"
	FactNumeric   FactKind = "numeric"
	FactCategoric FactKind = "categorical"
)

// EntityState is one fact extracted from memory content, e.g. redis/port=6379.
type EntityState struct {
	Entity    string   `json:"entity"`
	Attribute string   `json:"attribute"`
	Value     string   `json:"value"`
	Kind      FactKind `json:"kind"`
}

// FactExtractor turns free text into entity facts for contradiction checks.
type FactExtractor interface {
	Extract(content string) []EntityState
}
