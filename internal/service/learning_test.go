package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedOutcomes records n outcomes whose result is decided by the
// verification factor alone.
func seedOutcomes(e *testEnv, n int) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < n; i++ {
		f := domain.FactorScores{
			Freshness:         r.Float64(),
			SourceCredibility: r.Float64(),
			Verification:      0.1,
			Consensus:         r.Float64(),
			Contradiction:     r.Float64(),
			SuccessRate:       0.5,
			ContextRelevance:  0.5,
		}
		outcome := domain.OutcomeFailure
		if i%2 == 0 {
			f.Verification = 0.95
			outcome = domain.OutcomeSuccess
		}
		e.usage.items = append(e.usage.items, domain.UsageOutcome{
			ID:           uuid.New(),
			MemoryID:     uuid.New(),
			AgentID:      "agent-x",
			Outcome:      outcome,
			FactorsAtUse: &f,
			CreatedAt:    e.now.Add(-time.Duration(i+1) * time.Hour),
		})
	}
}

func TestLearning_SkipsSmallSamples(t *testing.T) {
	e := newTestEnv(t)
	seedOutcomes(e, e.cfg.Learning.MinSamples-1)

	run, err := e.learning.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, run.Skipped, "insufficient samples")
	assert.Nil(t, run.Proposal)
	assert.Equal(t, e.cfg.Learning.MinSamples-1, run.Calibration.SampleSize)
	assert.Len(t, e.weightStore.versions, 1)
}

func TestLearning_ProposesButNeverActivates(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	seedOutcomes(e, 120)

	run, err := e.learning.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, run.Skipped)
	require.NotNil(t, run.Proposal)

	p := run.Proposal
	assert.Equal(t, domain.WeightStatusProposed, p.Status)
	assert.Equal(t, domain.WeightSourceLearning, p.Source)
	assert.Equal(t, 120, p.SampleSize)
	require.NoError(t, p.Weights.Validate())
	assert.Greater(t, p.Weights.Verification, domain.DefaultWeights().Verification)
	require.NotNil(t, p.ProjectedError)
	require.NotNil(t, p.CalibrationError)
	assert.Less(t, *p.ProjectedError, *p.CalibrationError)

	active, err := e.weights.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, active.Version)
	assert.Equal(t, 1, run.ActiveVersion)
}

func TestLearning_IgnoresOutcomesOutsideWindow(t *testing.T) {
	e := newTestEnv(t)
	seedOutcomes(e, 120)
	e.now = e.now.Add(e.cfg.Learning.Window + 200*time.Hour)

	run, err := e.learning.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, run.Calibration.SampleSize)
	assert.NotEmpty(t, run.Skipped)
}
