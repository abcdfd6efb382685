package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/metrics"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultConsensusInterval = 15 * time.Minute

// evidenceLoader gathers what a cluster's agreement level is computed from.
type evidenceLoader struct {
	verifications domain.VerificationStore
	votes         domain.VoteStore
	agents        domain.AgentStore
}

func (l evidenceLoader) load(ctx context.Context, members []domain.MemoryRecord) (scoring.ClusterEvidence, error) {
	ev := scoring.ClusterEvidence{Members: members}
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	var err error
	if ev.Verifications, err = l.verifications.ListByMemories(ctx, ids); err != nil {
		return ev, fmt.Errorf("load verifications: %w", err)
	}
	if ev.Votes, err = l.votes.ListByMemories(ctx, ids); err != nil {
		return ev, fmt.Errorf("load votes: %w", err)
	}

	agentIDs := scoring.CorroboratingAgents(ev)
	profiles, err := l.agents.GetByIDs(ctx, agentIDs)
	if err != nil {
		return ev, fmt.Errorf("load agent profiles: %w", err)
	}
	ev.Specializations = make(map[string]string, len(profiles))
	for id, p := range profiles {
		ev.Specializations[id] = p.Specialization
	}
	return ev, nil
}

// ConsensusRun summarizes one batch pass.
type ConsensusRun struct {
	Categories int       `json:"categories"`
	Clusters   int       `json:"clusters"`
	Memories   int       `json:"memories"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
}

// ConsensusService rebuilds consensus clusters per category on a schedule.
type ConsensusService struct {
	memories domain.MemoryStore
	clusters domain.ClusterStore
	evidence evidenceLoader
	enq      Enqueuer
	cfg      *scoring.Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      clock

	runMu    sync.Mutex
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewConsensusService(st Stores, enq Enqueuer, cfg *scoring.Config, logger *zap.Logger) *ConsensusService {
	return &ConsensusService{
		memories: st.Memories,
		clusters: st.Clusters,
		evidence: evidenceLoader{verifications: st.Verifications, votes: st.Votes, agents: st.Agents},
		enq:      enq,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.New(),
		now:      utcNow,
		interval: defaultConsensusInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *ConsensusService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start runs the batch on a periodic schedule in a background goroutine.
func (s *ConsensusService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("consensus engine started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := s.Run(ctx); err != nil {
					s.logger.Error("consensus run failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("consensus engine stopped")
				return
			}
		}
	}()
}

func (s *ConsensusService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Run reclusters every category. Members of new and replaced clusters are
// scheduled for recompute.
func (s *ConsensusService) Run(ctx context.Context) (*ConsensusRun, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	started := s.now()
	categories, err := s.memories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	run := &ConsensusRun{StartedAt: started}
	for _, category := range categories {
		clusters, members, err := s.RunCategory(ctx, category)
		if err != nil {
			s.logger.Warn("consensus failed for category", zap.String("category", category), zap.Error(err))
			continue
		}
		run.Categories++
		run.Clusters += clusters
		run.Memories += members
	}
	run.Duration = time.Since(started).String()

	s.metrics.ConsensusRuns.Inc()
	s.metrics.ConsensusClusters.Set(float64(run.Clusters))
	s.logger.Info("consensus run complete",
		zap.Int("categories", run.Categories),
		zap.Int("clusters", run.Clusters),
		zap.Int("memories", run.Memories),
	)
	return run, nil
}

// RunCategory rebuilds one category's clusters and returns how many clusters
// and clustered memories it produced.
func (s *ConsensusService) RunCategory(ctx context.Context, category string) (int, int, error) {
	records, err := s.categoryRecords(ctx, category)
	if err != nil {
		return 0, 0, err
	}

	now := s.now()
	var clusters []domain.ConsensusCluster
	members := 0
	for _, group := range s.cfg.Cluster(records) {
		if len(group) < 2 {
			continue
		}
		ev, err := s.evidence.load(ctx, group)
		if err != nil {
			return 0, 0, err
		}
		c := s.cfg.BuildCluster(category, ev)
		c.ID = uuid.New()
		c.UpdatedAt = now
		clusters = append(clusters, c)
		members += len(group)
	}

	previous, err := s.clusters.ReplaceCategory(ctx, category, clusters)
	if err != nil {
		return 0, 0, err
	}

	scheduled := make(map[uuid.UUID]struct{})
	for _, id := range previous {
		scheduled[id] = struct{}{}
	}
	for _, c := range clusters {
		for _, id := range c.MemoryIDs {
			scheduled[id] = struct{}{}
		}
	}
	for id := range scheduled {
		s.enq.Enqueue(id)
	}
	return len(clusters), members, nil
}

// categoryRecords pages through every record in category, oldest first.
func (s *ConsensusService) categoryRecords(ctx context.Context, category string) ([]domain.MemoryRecord, error) {
	page := s.cfg.Consensus.ScanPageSize
	if page <= 0 {
		page = 500
	}
	var all []domain.MemoryRecord
	var after domain.PageCursor
	for {
		recs, err := s.memories.ListByCategory(ctx, category, after, page)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
		if len(recs) < page {
			return all, nil
		}
		last := recs[len(recs)-1]
		after = domain.PageCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
}

func (s *ConsensusService) Clusters(ctx context.Context, category string) ([]domain.ConsensusCluster, error) {
	if category == "" {
		return nil, domain.Invalid("category", "is required")
	}
	return s.clusters.ListByCategory(ctx, category)
}
