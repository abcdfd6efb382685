package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestComputeLevel(t *testing.T) {
	tests := []struct {
		score float64
		want  ConfidenceLevel
	}{
		{1.0, LevelVeryHigh},
		{0.85, LevelVeryHigh},
		{0.849, LevelHigh},
		{0.70, LevelHigh},
		{0.55, LevelMedium},
		{0.54, LevelLow},
		{0.40, LevelLow},
		{0.39, LevelVeryLow},
		{0, LevelVeryLow},
	}
	for _, tt := range tests {
		if got := ComputeLevel(tt.score); got != tt.want {
			t.Errorf("ComputeLevel(%v) = %s, want %s", tt.score, got, tt.want)
		}
		if LevelRecommendation(tt.want) == "" {
			t.Errorf("missing recommendation for %s", tt.want)
		}
	}
}

func TestWeightSet_Validate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights should validate: %v", err)
	}

	w := DefaultWeights()
	w.Freshness = 0.5
	if err := w.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for sum != 1, got %v", err)
	}

	w = DefaultWeights()
	w.Consensus = -0.15
	w.Freshness = 0.50
	if err := w.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for negative weight, got %v", err)
	}

	v := DefaultWeights().Vector()
	if WeightSetFromVector(v) != DefaultWeights() {
		t.Fatal("vector round trip changed weights")
	}
}

func TestScoringContext_Empty(t *testing.T) {
	var nilCtx *ScoringContext
	if !nilCtx.Empty() {
		t.Fatal("nil context should be empty")
	}
	if (&ScoringContext{Systems: []string{"redis"}}).Empty() {
		t.Fatal("context with systems should not be empty")
	}
}

func TestNaturalKey_IgnoresSubsecond(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &Verification{MemoryID: id, VerifierID: "a", Type: VerificationConfirmed, CreatedAt: at}
	b := &Verification{MemoryID: id, VerifierID: "a", Type: VerificationConfirmed, CreatedAt: at.Add(300 * time.Millisecond)}
	c := &Verification{MemoryID: id, VerifierID: "b", Type: VerificationConfirmed, CreatedAt: at}

	if a.NaturalKey() != b.NaturalKey() {
		t.Fatal("expected same key for resubmission within the same second")
	}
	if a.NaturalKey() == c.NaturalKey() {
		t.Fatal("expected different key for a different verifier")
	}

	u1 := &UsageOutcome{MemoryID: id, AgentID: "a", Action: "deploy", Outcome: OutcomeSuccess, Details: map[string]any{"x": 1, "y": "z"}, CreatedAt: at}
	u2 := &UsageOutcome{MemoryID: id, AgentID: "a", Action: "deploy", Outcome: OutcomeSuccess, Details: map[string]any{"y": "z", "x": 1}, CreatedAt: at}
	if u1.NaturalKey() != u2.NaturalKey() {
		t.Fatal("expected detail ordering not to matter")
	}
}

func TestContradiction_Pair(t *testing.T) {
	x, y := uuid.New(), uuid.New()
	a1, b1, _ := OrderPair(x, y)
	a2, b2, _ := OrderPair(y, x)
	if a1 != a2 || b1 != b2 {
		t.Fatal("pair ordering should not depend on argument order")
	}

	c := &Contradiction{MemoryA: a1, MemoryB: b1, Status: ContradictionNeedsReview}
	if !c.Involves(x) || c.Other(a1) != b1 || !c.Unresolved() {
		t.Fatal("unexpected pair helpers result")
	}
	if !MemoryStatusDeprecated.Superseded() || MemoryStatusActive.Superseded() {
		t.Fatal("unexpected superseded statuses")
	}
}
