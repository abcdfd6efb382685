package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/Harshitk-cp/veritas/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ResolveInput struct {
	WinnerID   uuid.UUID `json:"winner_id"`
	Strategy   string    `json:"strategy,omitempty"`
	Reason     string    `json:"reason"`
	ResolvedBy string    `json:"resolved_by"`
}

// Submitter queues a contradiction for an automatic resolution attempt.
type Submitter interface {
	Submit(id uuid.UUID)
}

// ContradictionService detects contradictions on ingest and applies
// resolutions, whether decided automatically or by an operator.
type ContradictionService struct {
	memories       domain.MemoryStore
	contradictions domain.ContradictionStore
	extractor      domain.FactExtractor
	credibility    *CredibilityService
	enq            Enqueuer
	resolver       Submitter
	cfg            *scoring.Config
	logger         *zap.Logger
	metrics        *metrics.Metrics
	now            clock
}

func NewContradictionService(
	st Stores,
	extractor domain.FactExtractor,
	credibility *CredibilityService,
	enq Enqueuer,
	cfg *scoring.Config,
	logger *zap.Logger,
) *ContradictionService {
	return &ContradictionService{
		memories:       st.Memories,
		contradictions: st.Contradictions,
		extractor:      extractor,
		credibility:    credibility,
		enq:            enq,
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics.New(),
		now:            utcNow,
	}
}

// SetResolver attaches the queue new contradictions are submitted to.
func (s *ContradictionService) SetResolver(r Submitter) {
	s.resolver = r
}

// Detect compares m against similar memories of its category and records a
// contradiction for every conflicting pair not already known.
func (s *ContradictionService) Detect(ctx context.Context, m *domain.MemoryRecord) ([]domain.Contradiction, error) {
	facts := s.extractor.Extract(m.Content)
	if len(facts) == 0 {
		return nil, nil
	}

	candidates, err := s.candidates(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	var detected []domain.Contradiction
	for i := range candidates {
		other := &candidates[i]
		if other.ID == m.ID {
			continue
		}
		conflict := s.cfg.DetectConflict(m, other, facts, s.extractor.Extract(other.Content))
		if conflict == nil {
			continue
		}

		a, b, swapped := domain.OrderPair(m.ID, other.ID)
		valueA, valueB := conflict.ValueA, conflict.ValueB
		if swapped {
			valueA, valueB = valueB, valueA
		}
		c := &domain.Contradiction{
			MemoryA:    a,
			MemoryB:    b,
			Type:       conflict.Type,
			Severity:   conflict.Severity,
			Entity:     conflict.Entity,
			Attribute:  conflict.Attribute,
			ValueA:     valueA,
			ValueB:     valueB,
			Status:     domain.ContradictionOpen,
			DetectedAt: s.now(),
		}
		created, err := s.contradictions.Create(ctx, c)
		if err != nil {
			return detected, err
		}
		if !created {
			continue
		}

		s.metrics.ContradictionsDetected.WithLabelValues(string(c.Type)).Inc()
		s.logger.Info("contradiction detected",
			zap.String("contradiction_id", c.ID.String()),
			zap.String("memory_a", a.String()),
			zap.String("memory_b", b.String()),
			zap.String("type", string(c.Type)),
			zap.String("entity", c.Entity),
			zap.String("attribute", c.Attribute),
			zap.Float64("severity", c.Severity),
		)
		detected = append(detected, *c)
		s.enq.Enqueue(a)
		s.enq.Enqueue(b)
		if s.resolver != nil {
			s.resolver.Submit(c.ID)
		}
	}
	return detected, nil
}

func (s *ContradictionService) candidates(ctx context.Context, m *domain.MemoryRecord) ([]domain.MemoryRecord, error) {
	limit := s.cfg.Contradiction.SimilarCandidateScan
	if len(m.Embedding) == 0 {
		return s.memories.ListRecent(ctx, m.Category, limit)
	}
	similar, err := s.memories.FindSimilar(ctx, m.Embedding, m.Category, float32(s.cfg.Consensus.SimilarityThreshold), limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MemoryRecord, len(similar))
	for i := range similar {
		out[i] = similar[i].MemoryRecord
	}
	return out, nil
}

func (s *ContradictionService) Get(ctx context.Context, id uuid.UUID) (*domain.Contradiction, error) {
	c, err := s.contradictions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrContradictionNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ContradictionService) List(ctx context.Context, status string, limit int) ([]domain.Contradiction, error) {
	if status == "" {
		status = string(domain.ContradictionOpen)
	}
	if !domain.ValidContradictionStatus(status) {
		return nil, domain.Invalid("status", "must be one of open, needs_review, resolved")
	}
	return s.contradictions.ListByStatus(ctx, domain.ContradictionStatus(status), limit)
}

func (s *ContradictionService) ListForMemory(ctx context.Context, memoryID uuid.UUID) ([]domain.Contradiction, error) {
	if _, err := getMemory(ctx, s.memories, memoryID); err != nil {
		return nil, err
	}
	return s.contradictions.ListByMemory(ctx, memoryID)
}

// Resolve is the manual override: the operator names the winner.
func (s *ContradictionService) Resolve(ctx context.Context, id uuid.UUID, in ResolveInput) (*domain.Contradiction, error) {
	if in.WinnerID == uuid.Nil {
		return nil, domain.Invalid("winner_id", "is required")
	}
	if in.Strategy == "" {
		in.Strategy = string(domain.StrategyManual)
	}
	if !domain.ValidResolutionStrategy(in.Strategy) {
		return nil, domain.Invalid("strategy", "must be one of temporal, source_credibility, consensus, automated_verification, manual")
	}
	in.ResolvedBy = strings.TrimSpace(in.ResolvedBy)
	if in.ResolvedBy == "" {
		return nil, domain.Invalid("resolved_by", "is required")
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Unresolved() {
		return nil, domain.ErrAlreadyResolved
	}
	if !c.Involves(in.WinnerID) {
		return nil, domain.Invalid("winner_id", "must be one of the two contradicting memories")
	}

	loserStatus := domain.MemoryStatusDisputed
	if domain.ResolutionStrategy(in.Strategy) == domain.StrategyTemporal {
		loserStatus = domain.MemoryStatusDeprecated
	}
	res := domain.Resolution{
		Strategy:    domain.ResolutionStrategy(in.Strategy),
		WinnerID:    in.WinnerID,
		LoserID:     c.Other(in.WinnerID),
		LoserStatus: loserStatus,
		Reason:      strings.TrimSpace(in.Reason),
		ResolvedBy:  in.ResolvedBy,
	}
	if err := s.apply(ctx, c, res); err != nil {
		return nil, err
	}
	return c, nil
}

// apply closes c with res: the loser is annotated and its author charged a
// correction, and both sides are rescored.
func (s *ContradictionService) apply(ctx context.Context, c *domain.Contradiction, res domain.Resolution) error {
	now := s.now()
	res.ResolvedAt = now
	if err := s.contradictions.Resolve(ctx, c.ID, &res); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.ErrAlreadyResolved
		}
		return fmt.Errorf("resolve contradiction: %w", err)
	}
	c.Status = domain.ContradictionResolved
	c.Resolution = &res
	c.NextAttemptAt = nil
	s.metrics.ResolutionsTotal.WithLabelValues(string(res.Strategy)).Inc()

	loser, err := getMemory(ctx, s.memories, res.LoserID)
	if err != nil {
		s.logger.Warn("resolved contradiction references a missing memory", zap.String("memory_id", res.LoserID.String()), zap.Error(err))
	} else {
		if err := s.credibility.RecordCorrection(ctx, loser.CreatorID, loser.Category); err != nil {
			s.logger.Warn("failed to record correction", zap.String("agent_id", loser.CreatorID), zap.Error(err))
		}
		if err := s.memories.Annotate(ctx, &domain.MemoryAnnotation{
			MemoryID:  loser.ID,
			Status:    res.LoserStatus,
			UpdatedAt: now,
		}); err != nil {
			s.logger.Warn("failed to annotate loser", zap.String("memory_id", loser.ID.String()), zap.Error(err))
		}
	}

	s.enq.Enqueue(res.WinnerID)
	s.enq.Enqueue(res.LoserID)

	s.logger.Info("contradiction resolved",
		zap.String("contradiction_id", c.ID.String()),
		zap.String("strategy", string(res.Strategy)),
		zap.String("winner_id", res.WinnerID.String()),
		zap.String("loser_id", res.LoserID.String()),
		zap.String("resolved_by", res.ResolvedBy),
	)
	return nil
}
