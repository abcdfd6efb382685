package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/Harshitk-cp/veritas/internal/probe"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/Harshitk-cp/veritas/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultResolverInterval = time.Minute
	resolverQueueSize       = 1024
	resolverSweepLimit      = 100
	retryBaseDelay          = time.Minute
	retryMaxDelay           = time.Hour
)

// ResolverService attempts automatic resolution of open contradictions:
// rules first (temporal, credibility, consensus), then a live probe. Each
// undecided attempt pushes the next one out exponentially; after the
// configured number of attempts the contradiction waits for an operator.
type ResolverService struct {
	contradictions domain.ContradictionStore
	memories       domain.MemoryStore
	clusters       domain.ClusterStore
	evidence       evidenceLoader
	extractor      domain.FactExtractor
	prober         domain.Prober
	credibility    *CredibilityService
	applier        *ContradictionService
	cfg            *scoring.Config
	logger         *zap.Logger
	metrics        *metrics.Metrics
	now            clock

	queue    chan uuid.UUID
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewResolverService(
	st Stores,
	extractor domain.FactExtractor,
	prober domain.Prober,
	credibility *CredibilityService,
	applier *ContradictionService,
	cfg *scoring.Config,
	logger *zap.Logger,
) *ResolverService {
	return &ResolverService{
		contradictions: st.Contradictions,
		memories:       st.Memories,
		clusters:       st.Clusters,
		evidence:       evidenceLoader{verifications: st.Verifications, votes: st.Votes, agents: st.Agents},
		extractor:      extractor,
		prober:         prober,
		credibility:    credibility,
		applier:        applier,
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics.New(),
		now:            utcNow,
		queue:          make(chan uuid.UUID, resolverQueueSize),
		interval:       defaultResolverInterval,
		stopCh:         make(chan struct{}),
	}
}

func (s *ResolverService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Submit queues id for an attempt. A full queue drops it; the sweep picks it
// up later.
func (s *ResolverService) Submit(id uuid.UUID) {
	select {
	case s.queue <- id:
	default:
		s.logger.Debug("resolver queue full", zap.String("contradiction_id", id.String()))
	}
}

func (s *ResolverService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("contradiction resolver started", zap.Duration("interval", s.interval))

		for {
			select {
			case id := <-s.queue:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if _, err := s.Attempt(ctx, id); err != nil {
					s.logger.Error("resolution attempt failed", zap.String("contradiction_id", id.String()), zap.Error(err))
				}
				cancel()
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := s.Sweep(ctx); err != nil {
					s.logger.Error("resolver sweep failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("contradiction resolver stopped")
				return
			}
		}
	}()
}

func (s *ResolverService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Sweep attempts every open contradiction that is due and returns how many
// were resolved.
func (s *ResolverService) Sweep(ctx context.Context) (int, error) {
	due, err := s.contradictions.ListDue(ctx, s.now(), resolverSweepLimit)
	if err != nil {
		return 0, fmt.Errorf("list due contradictions: %w", err)
	}
	resolved := 0
	for _, c := range due {
		out, err := s.Attempt(ctx, c.ID)
		if err != nil {
			s.logger.Warn("resolution attempt failed", zap.String("contradiction_id", c.ID.String()), zap.Error(err))
			continue
		}
		if out.Status == domain.ContradictionResolved {
			resolved++
		}
	}
	return resolved, nil
}

// Attempt runs the resolution chain once for an open contradiction.
func (s *ResolverService) Attempt(ctx context.Context, id uuid.UUID) (*domain.Contradiction, error) {
	c, err := s.contradictions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrContradictionNotFound
		}
		return nil, err
	}
	if c.Status != domain.ContradictionOpen {
		return c, nil
	}

	a, err := getMemory(ctx, s.memories, c.MemoryA)
	if err != nil {
		return nil, err
	}
	b, err := getMemory(ctx, s.memories, c.MemoryB)
	if err != nil {
		return nil, err
	}

	sideA, err := s.side(ctx, c, a)
	if err != nil {
		return nil, err
	}
	sideB, err := s.side(ctx, c, b)
	if err != nil {
		return nil, err
	}

	res, ok := s.cfg.ResolveByRules(sideA, sideB)
	if !ok {
		res, ok = s.probe(ctx, c, a, b)
	}
	if ok {
		res.ResolvedBy = "resolver"
		if err := s.applier.apply(ctx, c, res); err != nil {
			return nil, err
		}
		return c, nil
	}

	return c, s.postpone(ctx, c)
}

// side gathers the evidence behind one claim: the memory itself plus the
// cluster members that state the same value for the contradicted fact.
func (s *ResolverService) side(ctx context.Context, c *domain.Contradiction, m *domain.MemoryRecord) (scoring.SideEvidence, error) {
	score, err := s.credibility.SourceScore(ctx, m)
	if err != nil {
		return scoring.SideEvidence{}, err
	}

	members := []domain.MemoryRecord{*m}
	cluster, err := s.clusters.GetByMemoryID(ctx, m.ID)
	switch {
	case err == nil:
		ms, err := s.memories.GetByIDs(ctx, cluster.MemoryIDs)
		if err != nil {
			return scoring.SideEvidence{}, fmt.Errorf("load cluster members: %w", err)
		}
		members = append(members, s.agreeing(c, m, ms)...)
	case !errors.Is(err, store.ErrNotFound):
		return scoring.SideEvidence{}, err
	}

	ev, err := s.evidence.load(ctx, members)
	if err != nil {
		return scoring.SideEvidence{}, err
	}
	return scoring.SideEvidence{
		Memory:        m,
		SourceScore:   score,
		Corroborators: len(scoring.CorroboratingAgents(ev)),
	}, nil
}

func (s *ResolverService) agreeing(c *domain.Contradiction, m *domain.MemoryRecord, cluster []domain.MemoryRecord) []domain.MemoryRecord {
	own, ok := findFact(s.extractor.Extract(m.Content), c.Entity, c.Attribute)
	if !ok {
		return nil
	}
	var out []domain.MemoryRecord
	for _, other := range cluster {
		if other.ID == m.ID {
			continue
		}
		if f, ok := findFact(s.extractor.Extract(other.Content), c.Entity, c.Attribute); ok && f.Value == own.Value {
			out = append(out, other)
		}
	}
	return out
}

// probe checks both conflicting claims against the live system. Timeouts and
// errors leave the contradiction undecided.
func (s *ResolverService) probe(ctx context.Context, c *domain.Contradiction, a, b *domain.MemoryRecord) (domain.Resolution, bool) {
	if s.prober == nil {
		return domain.Resolution{}, false
	}
	factA, okA := findFact(s.extractor.Extract(a.Content), c.Entity, c.Attribute)
	factB, okB := findFact(s.extractor.Extract(b.Content), c.Entity, c.Attribute)
	if !okA || !okB || !s.prober.CanProbe(factA) || !s.prober.CanProbe(factB) {
		return domain.Resolution{}, false
	}

	resA, err := s.prober.Probe(ctx, factA)
	if err != nil {
		s.probeFailed(c, err)
		return domain.Resolution{}, false
	}
	resB, err := s.prober.Probe(ctx, factB)
	if err != nil {
		s.probeFailed(c, err)
		return domain.Resolution{}, false
	}
	s.metrics.ProbesTotal.WithLabelValues(probeLabel(resA.Holds)).Inc()
	s.metrics.ProbesTotal.WithLabelValues(probeLabel(resB.Holds)).Inc()

	detail := resA.Detail
	if resB.Holds {
		detail = resB.Detail
	}
	return scoring.ResolveByProbe(a, b, resA.Holds, resB.Holds, detail)
}

func (s *ResolverService) probeFailed(c *domain.Contradiction, err error) {
	label := "error"
	if errors.Is(err, probe.ErrProbeTimeout) {
		label = "timeout"
	}
	s.metrics.ProbesTotal.WithLabelValues(label).Inc()
	s.logger.Warn("probe inconclusive",
		zap.String("contradiction_id", c.ID.String()),
		zap.String("entity", c.Entity),
		zap.String("attribute", c.Attribute),
		zap.Error(err),
	)
}

func probeLabel(holds bool) string {
	if holds {
		return "holds"
	}
	return "fails"
}

func findFact(facts []domain.EntityState, entity, attribute string) (domain.EntityState, bool) {
	for _, f := range facts {
		if f.Entity == entity && f.Attribute == attribute {
			return f, true
		}
	}
	return domain.EntityState{}, false
}

// postpone records an undecided attempt and schedules the next one, or hands
// the contradiction to an operator once attempts are exhausted.
func (s *ResolverService) postpone(ctx context.Context, c *domain.Contradiction) error {
	s.metrics.ResolutionsTotal.WithLabelValues("none").Inc()
	attempts := c.Attempts + 1

	status := domain.ContradictionOpen
	var next *time.Time
	if attempts >= s.cfg.Contradiction.MaxResolveAttempts {
		status = domain.ContradictionNeedsReview
	} else {
		t := s.now().Add(retryDelay(attempts))
		next = &t
	}

	if err := s.contradictions.RecordAttempt(ctx, c.ID, status, next); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil
		}
		return fmt.Errorf("record attempt: %w", err)
	}
	c.Attempts = attempts
	c.Status = status
	c.NextAttemptAt = next

	if status == domain.ContradictionNeedsReview {
		s.logger.Info("contradiction needs review",
			zap.String("contradiction_id", c.ID.String()),
			zap.Int("attempts", attempts),
		)
	}
	return nil
}

func retryDelay(attempt int) time.Duration {
	d := retryBaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return d
}
