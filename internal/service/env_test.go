package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/extract"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEnv wires every service over in-memory stores. Recomputes are recorded
// by the enqueuer and run explicitly by the test.
type testEnv struct {
	now time.Time

	memories       *mockMemoryStore
	scores         *mockScoreStore
	verifications  *mockVerificationStore
	usage          *mockUsageStore
	agents         *mockAgentStore
	credStore      *mockCredibilityStore
	clusters       *mockClusterStore
	contradictions *mockContradictionStore
	votes          *mockVoteStore
	weightStore    *mockWeightStore

	enq      *recordingEnqueuer
	notifier *recordingNotifier
	prober   *stubProber
	cfg      *scoring.Config

	credibility   *CredibilityService
	weights       *WeightService
	confidence    *ConfidenceService
	contradiction *ContradictionService
	resolver      *ResolverService
	verification  *VerificationService
	usageSvc      *UsageService
	voteSvc       *VoteService
	ingest        *IngestService
	consensus     *ConsensusService
	learning      *LearningService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		now:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		memories:       newMockMemoryStore(),
		scores:         newMockScoreStore(),
		verifications:  newMockVerificationStore(),
		usage:          newMockUsageStore(),
		agents:         newMockAgentStore(),
		credStore:      newMockCredibilityStore(),
		clusters:       &mockClusterStore{},
		contradictions: newMockContradictionStore(),
		votes:          newMockVoteStore(),
		weightStore:    &mockWeightStore{},
		enq:            &recordingEnqueuer{},
		notifier:       &recordingNotifier{},
		prober:         &stubProber{holds: map[string]bool{}},
		cfg:            scoring.DefaultConfig(),
	}
	st := Stores{
		Memories:       e.memories,
		Scores:         e.scores,
		Verifications:  e.verifications,
		Usage:          e.usage,
		Agents:         e.agents,
		Credibility:    e.credStore,
		Clusters:       e.clusters,
		Contradictions: e.contradictions,
		Votes:          e.votes,
		Weights:        e.weightStore,
	}
	logger := zap.NewNop()
	clk := func() time.Time { return e.now }
	ex := extract.New()

	e.credibility = NewCredibilityService(e.credStore, e.cfg, logger)
	e.credibility.now = clk
	e.weights = NewWeightService(e.weightStore, e.cfg.Weights, logger)
	e.weights.now = clk
	e.confidence = NewConfidenceService(st, e.credibility, e.weights, nil, e.notifier, e.cfg, logger)
	e.confidence.now = clk
	e.contradiction = NewContradictionService(st, ex, e.credibility, e.enq, e.cfg, logger)
	e.contradiction.now = clk
	e.resolver = NewResolverService(st, ex, e.prober, e.credibility, e.contradiction, e.cfg, logger)
	e.resolver.now = clk
	e.verification = NewVerificationService(st, e.credibility, e.enq, logger)
	e.verification.now = clk
	e.usageSvc = NewUsageService(st, e.confidence, e.enq, logger)
	e.usageSvc.now = clk
	e.voteSvc = NewVoteService(st, e.enq, logger)
	e.voteSvc.now = clk
	e.ingest = NewIngestService(st, e.credibility, e.contradiction, nil, e.enq, logger)
	e.ingest.now = clk
	e.consensus = NewConsensusService(st, e.enq, e.cfg, logger)
	e.consensus.now = clk
	e.learning = NewLearningService(e.usage, e.weights, e.cfg, logger)
	e.learning.now = clk
	return e
}

// add ingests a memory created age before now.
func (e *testEnv) add(t *testing.T, content, creator string, age time.Duration) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := e.ingest.Ingest(context.Background(), id, IngestInput{
		Content:     content,
		Category:    "infrastructure",
		CreatorID:   creator,
		CreatorRole: string(domain.RoleEngineer),
		SourceType:  string(domain.SourceObserved),
		CreatedAt:   e.now.Add(-age),
	})
	require.NoError(t, err)
	return id
}

func (e *testEnv) recompute(t *testing.T, id uuid.UUID) *domain.ConfidenceScore {
	t.Helper()
	sc, err := e.confidence.Recompute(context.Background(), id)
	require.NoError(t, err)
	return sc
}

func (e *testEnv) onlyContradiction(t *testing.T) domain.Contradiction {
	t.Helper()
	all := e.contradictions.list(func(*domain.Contradiction) bool { return true })
	require.Len(t, all, 1)
	return all[0]
}
