package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OutcomeType string

const (
	OutcomeSuccess OutcomeType = "success"
	OutcomeFailure OutcomeType = "failure"
	OutcomePartial OutcomeType = "partial"
	OutcomeError   OutcomeType = "error"
)

func ValidOutcomeType(o string) bool {
	switch OutcomeType(o) {
	case OutcomeSuccess, OutcomeFailure, OutcomePartial, OutcomeError:
		return true
	}
	return false
}

// Actual is the observed value the learning loop calibrates predictions against.
func (o OutcomeType) Actual() float64 {
	switch o {
	case OutcomeSuccess:
		return 1
	case OutcomePartial:
		return 0.5
	default:
		return 0
	}
}

// UsageOutcome records what happened when an agent acted on a memory. The score
// and factor snapshots taken at report time are the prediction being judged.
type UsageOutcome struct {
	ID           uuid.UUID      `json:"id"`
	MemoryID     uuid.UUID      `json:"memory_id"`
	AgentID      string         `json:"agent_id"`
	Action       string         `json:"action"`
	Outcome      OutcomeType    `json:"outcome"`
	Details      map[string]any `json:"details,omitempty"`
	ScoreAtUse   *float64       `json:"score_at_use,omitempty"`
	FactorsAtUse *FactorScores  `json:"factors_at_use,omitempty"`
	DedupKey     string         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (u *UsageOutcome) NaturalKey() string {
	return eventKey(u.MemoryID.String(), u.AgentID, u.Action, string(u.Outcome), canonicalDetails(u.Details), u.CreatedAt)
}

func canonicalDetails(d map[string]any) string {
	if len(d) == 0 {
		return ""
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.TrimSpace(toString(d[k])))
		b.WriteByte(';')
	}
	return b.String()
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return eventKey(v)
}

// UsageStats is the windowed tally the success-rate factor is computed from.
type UsageStats struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
	Partials  int `json:"partials"`
	Errors    int `json:"errors"`
}

func (s UsageStats) Total() int {
	return s.Successes + s.Failures + s.Partials + s.Errors
}
