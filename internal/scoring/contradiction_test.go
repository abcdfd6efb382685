package scoring

import (
	"testing"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fact(entity, attr, value string) domain.EntityState {
	return domain.EntityState{Entity: entity, Attribute: attr, Value: value}
}

func TestDetectConflict(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()
	a := &domain.MemoryRecord{ID: uuid.New(), CreatedAt: now}
	b := &domain.MemoryRecord{ID: uuid.New(), CreatedAt: now.Add(-2 * day)}
	old := &domain.MemoryRecord{ID: uuid.New(), CreatedAt: now.Add(-45 * day)}

	tests := []struct {
		name     string
		other    *domain.MemoryRecord
		factsA   []domain.EntityState
		factsB   []domain.EntityState
		wantType domain.ContradictionType
		wantNil  bool
	}{
		{
			name:     "exclusive states are semantic",
			other:    b,
			factsA:   []domain.EntityState{fact("payments-api", "state", "running")},
			factsB:   []domain.EntityState{fact("Payments-API", "state", "stopped")},
			wantType: domain.ContradictionSemantic,
		},
		{
			name:     "differing values are factual",
			other:    b,
			factsA:   []domain.EntityState{fact("redis", "port", "6379")},
			factsB:   []domain.EntityState{fact("redis", "port", "6380")},
			wantType: domain.ContradictionFactual,
		},
		{
			name:     "far apart becomes temporal",
			other:    old,
			factsA:   []domain.EntityState{fact("redis", "port", "6379")},
			factsB:   []domain.EntityState{fact("redis", "port", "6380")},
			wantType: domain.ContradictionTemporal,
		},
		{
			name:    "compatible states",
			other:   b,
			factsA:  []domain.EntityState{fact("kafka", "state", "running")},
			factsB:  []domain.EntityState{fact("kafka", "state", "healthy")},
			wantNil: true,
		},
		{
			name:    "unpaired states",
			other:   b,
			factsA:  []domain.EntityState{{Entity: "kafka", Attribute: "state", Value: "running", Kind: domain.FactState}},
			factsB:  []domain.EntityState{{Entity: "kafka", Attribute: "state", Value: "up", Kind: domain.FactState}},
			wantNil: true,
		},
		{
			name:    "agreeing facts",
			other:   b,
			factsA:  []domain.EntityState{fact("redis", "port", "6379")},
			factsB:  []domain.EntityState{fact("redis", "port", "6379")},
			wantNil: true,
		},
		{
			name:    "different entities",
			other:   b,
			factsA:  []domain.EntityState{fact("redis", "port", "6379")},
			factsB:  []domain.EntityState{fact("postgres", "port", "5432")},
			wantNil: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.DetectConflict(a, tt.other, tt.factsA, tt.factsB)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Greater(t, got.Severity, 0.0)
			assert.LessOrEqual(t, got.Severity, 1.0)
		})
	}
}

func TestSeverity_Centrality(t *testing.T) {
	cfg := DefaultConfig()

	central := []domain.EntityState{fact("redis", "port", "6379")}
	diluted := []domain.EntityState{
		fact("redis", "port", "6379"),
		fact("postgres", "port", "5432"),
		fact("nginx", "state", "running"),
		fact("kafka", "version", "3.6"),
	}
	assert.InDelta(t, 1.0, cfg.Severity("port", "redis", central, central), 1e-9)
	assert.Less(t, cfg.Severity("port", "redis", diluted, diluted), cfg.Severity("port", "redis", central, central))
	assert.InDelta(t, 0.7, cfg.Severity("owner", "redis", central, central), 1e-9)
}

func TestContradictionScore(t *testing.T) {
	cfg := DefaultConfig()
	winner, loser, bystander := uuid.New(), uuid.New(), uuid.New()
	a, b, _ := domain.OrderPair(winner, loser)

	resolved := domain.Contradiction{
		MemoryA:  a,
		MemoryB:  b,
		Severity: 1,
		Status:   domain.ContradictionResolved,
		Resolution: &domain.Resolution{
			WinnerID: winner,
			LoserID:  loser,
		},
	}
	cs := []domain.Contradiction{resolved}

	assert.Equal(t, 1.0, cfg.ContradictionScore(winner, cs))
	assert.Equal(t, 0.3, cfg.ContradictionScore(loser, cs))
	assert.Equal(t, 1.0, cfg.ContradictionScore(bystander, cs))

	open := domain.Contradiction{MemoryA: a, MemoryB: b, Severity: 0.5, Status: domain.ContradictionOpen}
	assert.InDelta(t, 0.8, cfg.ContradictionScore(winner, []domain.Contradiction{open}), 1e-9)

	var many []domain.Contradiction
	for i := 0; i < 10; i++ {
		many = append(many, domain.Contradiction{MemoryA: winner, MemoryB: uuid.New(), Severity: 1, Status: domain.ContradictionNeedsReview})
	}
	assert.InDelta(t, 0.2, cfg.ContradictionScore(winner, many), 1e-9)
}

// Scenario: same service on two ports, 45 days apart; the newer claim wins.
func TestResolveByRules_Temporal(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()
	older := &domain.MemoryRecord{ID: uuid.New(), Content: "Redis on port 6379", CreatedAt: now.Add(-45 * day)}
	newer := &domain.MemoryRecord{ID: uuid.New(), Content: "Redis on port 6380", CreatedAt: now}

	res, ok := cfg.ResolveByRules(
		SideEvidence{Memory: older, SourceScore: 0.9, Corroborators: 5},
		SideEvidence{Memory: newer, SourceScore: 0.4, Corroborators: 1},
	)
	require.True(t, ok)
	assert.Equal(t, domain.StrategyTemporal, res.Strategy)
	assert.Equal(t, newer.ID, res.WinnerID)
	assert.Equal(t, older.ID, res.LoserID)
	assert.True(t, res.LoserStatus.Superseded())
}

func TestResolveByRules_Chain(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()
	a := &domain.MemoryRecord{ID: uuid.New(), CreatedAt: now}
	b := &domain.MemoryRecord{ID: uuid.New(), CreatedAt: now.Add(-time.Hour)}

	res, ok := cfg.ResolveByRules(
		SideEvidence{Memory: a, SourceScore: 0.5},
		SideEvidence{Memory: b, SourceScore: 0.8},
	)
	require.True(t, ok)
	assert.Equal(t, domain.StrategySourceCredibility, res.Strategy)
	assert.Equal(t, b.ID, res.WinnerID)
	assert.Equal(t, domain.MemoryStatusDisputed, res.LoserStatus)

	res, ok = cfg.ResolveByRules(
		SideEvidence{Memory: a, SourceScore: 0.6, Corroborators: 4},
		SideEvidence{Memory: b, SourceScore: 0.7, Corroborators: 1},
	)
	require.True(t, ok)
	assert.Equal(t, domain.StrategyConsensus, res.Strategy)
	assert.Equal(t, a.ID, res.WinnerID)

	_, ok = cfg.ResolveByRules(
		SideEvidence{Memory: a, SourceScore: 0.6, Corroborators: 2},
		SideEvidence{Memory: b, SourceScore: 0.7, Corroborators: 1},
	)
	assert.False(t, ok)
}

func TestResolveByProbe(t *testing.T) {
	a := &domain.MemoryRecord{ID: uuid.New()}
	b := &domain.MemoryRecord{ID: uuid.New()}

	_, ok := ResolveByProbe(a, b, true, true, "")
	assert.False(t, ok)
	_, ok = ResolveByProbe(a, b, false, false, "")
	assert.False(t, ok)

	res, ok := ResolveByProbe(a, b, false, true, "redis:6380 accepted connection")
	require.True(t, ok)
	assert.Equal(t, b.ID, res.WinnerID)
	assert.Equal(t, domain.StrategyAutomatedVerification, res.Strategy)
	assert.Contains(t, res.Reason, "6380")
}
