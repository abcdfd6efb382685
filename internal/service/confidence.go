package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/Harshitk-cp/veritas/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfidenceService computes, persists and serves confidence scores.
type ConfidenceService struct {
	memories       domain.MemoryStore
	scores         domain.ScoreStore
	verifications  domain.VerificationStore
	usage          domain.UsageStore
	clusters       domain.ClusterStore
	contradictions domain.ContradictionStore
	evidence       evidenceLoader
	credibility    *CredibilityService
	weights        *WeightService
	embedder       domain.EmbeddingClient
	notifier       domain.Notifier
	recomputer     *Recomputer
	cfg            *scoring.Config
	logger         *zap.Logger
	metrics        *metrics.Metrics
	now            clock
}

func NewConfidenceService(
	st Stores,
	credibility *CredibilityService,
	weights *WeightService,
	embedder domain.EmbeddingClient,
	notifier domain.Notifier,
	cfg *scoring.Config,
	logger *zap.Logger,
) *ConfidenceService {
	return &ConfidenceService{
		memories:       st.Memories,
		scores:         st.Scores,
		verifications:  st.Verifications,
		usage:          st.Usage,
		clusters:       st.Clusters,
		contradictions: st.Contradictions,
		evidence:       evidenceLoader{verifications: st.Verifications, votes: st.Votes, agents: st.Agents},
		credibility:    credibility,
		weights:        weights,
		embedder:       embedder,
		notifier:       notifier,
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics.New(),
		now:            utcNow,
	}
}

// SetRecomputer attaches the recomputer used for first reads.
func (s *ConfidenceService) SetRecomputer(r *Recomputer) {
	s.recomputer = r
}

// ComputeFactors evaluates all seven factors for m with a neutral context.
func (s *ConfidenceService) ComputeFactors(ctx context.Context, m *domain.MemoryRecord) (domain.FactorScores, error) {
	f, _, err := s.evaluate(ctx, m)
	return f, err
}

func (s *ConfidenceService) evaluate(ctx context.Context, m *domain.MemoryRecord) (domain.FactorScores, domain.MemoryStatus, error) {
	now := s.now()
	var f domain.FactorScores

	vs, err := s.verifications.ListByMemory(ctx, m.ID)
	if err != nil {
		return f, "", fmt.Errorf("load verifications: %w", err)
	}
	ref := m.LastVerifiedAt
	if renewed := scoring.LastRenewal(vs); renewed != nil && (ref == nil || renewed.After(*ref)) {
		ref = renewed
	}
	f.Freshness = s.cfg.FreshnessScore(m.Category, m.CreatedAt, ref, now)
	f.Verification = s.cfg.VerificationScore(vs)

	if f.SourceCredibility, err = s.credibility.SourceScore(ctx, m); err != nil {
		return f, "", fmt.Errorf("source credibility: %w", err)
	}

	cs, err := s.contradictions.ListByMemory(ctx, m.ID)
	if err != nil {
		return f, "", fmt.Errorf("load contradictions: %w", err)
	}

	if f.Consensus, err = s.consensus(ctx, m, cs); err != nil {
		return f, "", fmt.Errorf("consensus: %w", err)
	}
	f.Contradiction = s.cfg.ContradictionScore(m.ID, cs)

	stats, err := s.usage.StatsSince(ctx, m.ID, now.Add(-s.cfg.Usage.Window))
	if err != nil {
		return f, "", fmt.Errorf("load usage stats: %w", err)
	}
	f.SuccessRate = s.cfg.SuccessRate(stats)

	f.ContextRelevance = s.cfg.ContextRelevance(m, nil, nil)

	return f, memoryStatus(m.ID, cs), nil
}

// consensus scores the memory's stored cluster against live votes and
// verifications, so new evidence counts before the next batch run. Members
// that contradict m are left out.
func (s *ConfidenceService) consensus(ctx context.Context, m *domain.MemoryRecord, cs []domain.Contradiction) (float64, error) {
	cluster, err := s.clusters.GetByMemoryID(ctx, m.ID)
	if errors.Is(err, store.ErrNotFound) {
		return scoring.ConsensusScore(nil), nil
	}
	if err != nil {
		return 0, err
	}
	opposed := make(map[uuid.UUID]struct{}, len(cs))
	for i := range cs {
		if cs[i].Involves(m.ID) {
			opposed[cs[i].Other(m.ID)] = struct{}{}
		}
	}
	ids := make([]uuid.UUID, 0, len(cluster.MemoryIDs))
	for _, id := range cluster.MemoryIDs {
		if _, ok := opposed[id]; !ok {
			ids = append(ids, id)
		}
	}
	members, err := s.memories.GetByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	if len(members) < 2 {
		return scoring.ConsensusScore(nil), nil
	}
	ev, err := s.evidence.load(ctx, members)
	if err != nil {
		return 0, err
	}
	live := s.cfg.BuildCluster(cluster.Category, ev)
	return scoring.ConsensusScore(&live), nil
}

func memoryStatus(id uuid.UUID, cs []domain.Contradiction) domain.MemoryStatus {
	status := domain.MemoryStatusActive
	for _, c := range cs {
		if c.Resolution == nil || c.Resolution.LoserID != id {
			continue
		}
		if c.Resolution.LoserStatus == domain.MemoryStatusDeprecated {
			return domain.MemoryStatusDeprecated
		}
		status = domain.MemoryStatusDisputed
	}
	return status
}

// Recompute derives a fresh score for memoryID and persists it against the
// version it read. A level change, or a first score, is published.
func (s *ConfidenceService) Recompute(ctx context.Context, memoryID uuid.UUID) (*domain.ConfidenceScore, error) {
	m, err := getMemory(ctx, s.memories, memoryID)
	if err != nil {
		return nil, err
	}

	prev, err := s.scores.Get(ctx, memoryID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load score: %w", err)
	}
	var expected int64
	if prev != nil {
		expected = prev.Version
	}

	wv, err := s.weights.Active(ctx)
	if err != nil {
		return nil, err
	}
	f, status, err := s.evaluate(ctx, m)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sc := scoring.NewScore(memoryID, f, wv, now)
	if err := s.scores.Upsert(ctx, sc, expected); err != nil {
		return nil, err
	}

	final := sc.FinalScore
	if err := s.memories.Annotate(ctx, &domain.MemoryAnnotation{
		MemoryID:   memoryID,
		Status:     status,
		Level:      sc.Level,
		FinalScore: &final,
		UpdatedAt:  now,
	}); err != nil {
		s.logger.Warn("failed to annotate memory", zap.String("memory_id", memoryID.String()), zap.Error(err))
	}

	if prev == nil || prev.Level != sc.Level {
		change := domain.ScoreChange{
			MemoryID:   memoryID,
			NewLevel:   sc.Level,
			NewScore:   sc.FinalScore,
			OccurredAt: now,
		}
		if prev != nil {
			old := prev.FinalScore
			change.OldLevel = prev.Level
			change.OldScore = &old
		}
		s.metrics.LevelChangesTotal.WithLabelValues(string(sc.Level)).Inc()
		if err := s.notifier.PublishScoreChange(ctx, change); err != nil {
			s.logger.Warn("failed to publish score change", zap.String("memory_id", memoryID.String()), zap.Error(err))
		}
	}

	s.logger.Debug("score recomputed",
		zap.String("memory_id", memoryID.String()),
		zap.Float64("final_score", sc.FinalScore),
		zap.String("level", string(sc.Level)),
		zap.Int64("version", sc.Version),
	)
	return sc, nil
}

// GetConfidence returns the persisted score, computing it synchronously if
// the memory has never been scored. A non-empty context re-aggregates the
// score with a context relevance factor; that result is not persisted.
func (s *ConfidenceService) GetConfidence(ctx context.Context, memoryID uuid.UUID, sctx *domain.ScoringContext) (*domain.ConfidenceScore, error) {
	if memoryID == uuid.Nil {
		return nil, domain.Invalid("memory_id", "is required")
	}
	sc, err := s.scores.Get(ctx, memoryID)
	if errors.Is(err, store.ErrNotFound) {
		sc, err = s.first(ctx, memoryID)
	}
	if err != nil {
		return nil, err
	}
	if sctx.Empty() {
		return sc, nil
	}

	m, err := getMemory(ctx, s.memories, memoryID)
	if err != nil {
		return nil, err
	}
	f := sc.Factors
	f.ContextRelevance = s.cfg.ContextRelevance(m, sctx, s.taskSimilarity(ctx, m, sctx.Task))

	contextual := *sc
	contextual.Factors = f
	contextual.FinalScore = scoring.Aggregate(f, sc.Weights)
	contextual.Level = domain.ComputeLevel(contextual.FinalScore)
	contextual.Recommendation = domain.LevelRecommendation(contextual.Level)
	return &contextual, nil
}

func (s *ConfidenceService) first(ctx context.Context, memoryID uuid.UUID) (*domain.ConfidenceScore, error) {
	if s.recomputer != nil {
		return s.recomputer.Now(ctx, memoryID)
	}
	return s.Recompute(ctx, memoryID)
}

func (s *ConfidenceService) taskSimilarity(ctx context.Context, m *domain.MemoryRecord, task string) *float64 {
	if task == "" || s.embedder == nil || len(m.Embedding) == 0 {
		return nil
	}
	emb, err := s.embedder.Embed(ctx, task)
	if err != nil {
		s.logger.Warn("task embedding failed; using token overlap", zap.Error(err))
		return nil
	}
	sim := scoring.CosineSimilarity(emb, m.Embedding)
	if sim < 0 {
		sim = 0
	}
	return &sim
}
