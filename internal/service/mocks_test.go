package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/Harshitk-cp/veritas/internal/scoring"
	"github.com/Harshitk-cp/veritas/internal/store"
	"github.com/google/uuid"
)

type mockMemoryStore struct {
	mu          sync.Mutex
	memories    map[uuid.UUID]domain.MemoryRecord
	annotations map[uuid.UUID]domain.MemoryAnnotation
	pages       int
}

func newMockMemoryStore() *mockMemoryStore {
	return &mockMemoryStore{
		memories:    make(map[uuid.UUID]domain.MemoryRecord),
		annotations: make(map[uuid.UUID]domain.MemoryAnnotation),
	}
}

func (m *mockMemoryStore) Upsert(ctx context.Context, rec *domain.MemoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memories[rec.ID] = *rec
	return nil
}

func (m *mockMemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.memories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (m *mockMemoryStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.MemoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MemoryRecord
	for _, id := range ids {
		if rec, ok := m.memories[id]; ok {
			out = append(out, rec)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (m *mockMemoryStore) all(category string) []domain.MemoryRecord {
	var out []domain.MemoryRecord
	for _, rec := range m.memories {
		if category == "" || rec.Category == category {
			out = append(out, rec)
		}
	}
	sortOldestFirst(out)
	return out
}

func sortOldestFirst(recs []domain.MemoryRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
}

func (m *mockMemoryStore) FindSimilar(ctx context.Context, embedding []float32, category string, threshold float32, limit int) ([]domain.MemoryWithSimilarity, error) {
	results, _ := m.Search(ctx, embedding, category, 0)
	var out []domain.MemoryWithSimilarity
	for _, r := range results {
		if r.Similarity >= threshold {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockMemoryStore) Search(ctx context.Context, embedding []float32, category string, limit int) ([]domain.MemoryWithSimilarity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.MemoryWithSimilarity
	for _, rec := range m.all(category) {
		if len(rec.Embedding) == 0 {
			continue
		}
		sim := float32(scoring.CosineSimilarity(embedding, rec.Embedding))
		out = append(out, domain.MemoryWithSimilarity{MemoryRecord: rec, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockMemoryStore) ListRecent(ctx context.Context, category string, limit int) ([]domain.MemoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.all(category)
	out := make([]domain.MemoryRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockMemoryStore) ListByCategory(ctx context.Context, category string, after domain.PageCursor, limit int) ([]domain.MemoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages++
	var out []domain.MemoryRecord
	for _, rec := range m.all(category) {
		if rec.CreatedAt.Before(after.CreatedAt) ||
			(rec.CreatedAt.Equal(after.CreatedAt) && rec.ID.String() <= after.ID.String()) {
			continue
		}
		out = append(out, rec)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockMemoryStore) ListCategories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]struct{})
	for _, rec := range m.memories {
		set[rec.Category] = struct{}{}
	}
	var out []string
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockMemoryStore) Annotate(ctx context.Context, a *domain.MemoryAnnotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.memories[a.MemoryID]; !ok {
		return store.ErrNotFound
	}
	prev := m.annotations[a.MemoryID]
	next := *a
	if next.Level == "" {
		next.Level = prev.Level
	}
	if next.FinalScore == nil {
		next.FinalScore = prev.FinalScore
	}
	m.annotations[a.MemoryID] = next
	return nil
}

func (m *mockMemoryStore) status(id uuid.UUID) domain.MemoryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.annotations[id].Status
}

type mockScoreStore struct {
	mu        sync.Mutex
	scores    map[uuid.UUID]domain.ConfidenceScore
	conflicts int
}

func newMockScoreStore() *mockScoreStore {
	return &mockScoreStore{scores: make(map[uuid.UUID]domain.ConfidenceScore)}
}

func (m *mockScoreStore) Get(ctx context.Context, id uuid.UUID) (*domain.ConfidenceScore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scores[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sc, nil
}

func (m *mockScoreStore) Upsert(ctx context.Context, sc *domain.ConfidenceScore, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		return store.ErrVersionConflict
	}
	cur, ok := m.scores[sc.MemoryID]
	if (!ok && expected != 0) || (ok && cur.Version != expected) {
		return store.ErrVersionConflict
	}
	sc.Version = expected + 1
	m.scores[sc.MemoryID] = *sc
	return nil
}

func (m *mockScoreStore) ListMemoryIDs(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id := range m.scores {
		ids = append(ids, id)
	}
	return ids, nil
}

type mockVerificationStore struct {
	mu    sync.Mutex
	items []domain.Verification
	keys  map[string]bool
}

func newMockVerificationStore() *mockVerificationStore {
	return &mockVerificationStore{keys: make(map[string]bool)}
}

func (m *mockVerificationStore) Create(ctx context.Context, v *domain.Verification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.DedupKey == "" {
		v.DedupKey = v.NaturalKey()
	}
	if m.keys[v.DedupKey] {
		return false, nil
	}
	m.keys[v.DedupKey] = true
	v.ID = uuid.New()
	m.items = append(m.items, *v)
	return true, nil
}

func (m *mockVerificationStore) ListByMemory(ctx context.Context, id uuid.UUID) ([]domain.Verification, error) {
	return m.ListByMemories(ctx, []uuid.UUID{id})
}

func (m *mockVerificationStore) ListByMemories(ctx context.Context, ids []uuid.UUID) ([]domain.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := idSet(ids)
	var out []domain.Verification
	for _, v := range m.items {
		if _, ok := want[v.MemoryID]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type mockUsageStore struct {
	mu    sync.Mutex
	items []domain.UsageOutcome
	keys  map[string]bool
}

func newMockUsageStore() *mockUsageStore {
	return &mockUsageStore{keys: make(map[string]bool)}
}

func (m *mockUsageStore) Create(ctx context.Context, u *domain.UsageOutcome) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.DedupKey == "" {
		u.DedupKey = u.NaturalKey()
	}
	if m.keys[u.DedupKey] {
		return false, nil
	}
	m.keys[u.DedupKey] = true
	u.ID = uuid.New()
	m.items = append(m.items, *u)
	return true, nil
}

func (m *mockUsageStore) StatsSince(ctx context.Context, id uuid.UUID, since time.Time) (domain.UsageStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st domain.UsageStats
	for _, u := range m.items {
		if u.MemoryID != id || u.CreatedAt.Before(since) {
			continue
		}
		switch u.Outcome {
		case domain.OutcomeSuccess:
			st.Successes++
		case domain.OutcomeFailure:
			st.Failures++
		case domain.OutcomePartial:
			st.Partials++
		case domain.OutcomeError:
			st.Errors++
		}
	}
	return st, nil
}

func (m *mockUsageStore) ListWithPredictionsSince(ctx context.Context, since time.Time, limit int) ([]domain.UsageOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UsageOutcome
	for _, u := range m.items {
		if u.FactorsAtUse != nil && !u.CreatedAt.Before(since) {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockAgentStore struct {
	mu       sync.Mutex
	profiles map[string]domain.AgentProfile
}

func newMockAgentStore() *mockAgentStore {
	return &mockAgentStore{profiles: make(map[string]domain.AgentProfile)}
}

func (m *mockAgentStore) Upsert(ctx context.Context, p *domain.AgentProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.profiles[p.AgentID]
	if ok {
		p.FirstSeenAt = prev.FirstSeenAt
		if p.Specialization == "" {
			p.Specialization = prev.Specialization
		}
	} else {
		p.FirstSeenAt = time.Now().UTC()
	}
	p.UpdatedAt = time.Now().UTC()
	m.profiles[p.AgentID] = *p
	return nil
}

func (m *mockAgentStore) GetByID(ctx context.Context, id string) (*domain.AgentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *mockAgentStore) GetByIDs(ctx context.Context, ids []string) (map[string]domain.AgentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.AgentProfile)
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type credKey struct{ agent, category string }

type mockCredibilityStore struct {
	mu    sync.Mutex
	creds map[credKey]domain.AgentCredibility
}

func newMockCredibilityStore() *mockCredibilityStore {
	return &mockCredibilityStore{creds: make(map[credKey]domain.AgentCredibility)}
}

func (m *mockCredibilityStore) Get(ctx context.Context, agentID, category string) (*domain.AgentCredibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[credKey{agentID, category}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (m *mockCredibilityStore) ListByAgent(ctx context.Context, agentID string) ([]domain.AgentCredibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AgentCredibility
	for k, c := range m.creds {
		if k.agent == agentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *mockCredibilityStore) Apply(ctx context.Context, agentID, category string, d domain.CredibilityDelta) (*domain.AgentCredibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := credKey{agentID, category}
	c := m.creds[k]
	c.AgentID, c.Category = agentID, category
	c.ContributionCount += d.Contributions
	c.VerifiedCorrect += d.Correct
	c.VerifiedIncorrect += d.Incorrect
	c.CorrectionsIssued += d.Corrections
	if c.FirstContributionAt == nil && d.Contributions > 0 {
		at := d.At
		c.FirstContributionAt = &at
	}
	c.UpdatedAt = d.At
	m.creds[k] = c
	return &c, nil
}

func (m *mockCredibilityStore) UpdateScore(ctx context.Context, agentID, category string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := credKey{agentID, category}
	c, ok := m.creds[k]
	if !ok {
		return store.ErrNotFound
	}
	c.CredibilityScore = score
	m.creds[k] = c
	return nil
}

type mockClusterStore struct {
	mu       sync.Mutex
	clusters []domain.ConsensusCluster
}

func (m *mockClusterStore) ReplaceCategory(ctx context.Context, category string, clusters []domain.ConsensusCluster) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []domain.ConsensusCluster
	var previous []uuid.UUID
	for _, c := range m.clusters {
		if c.Category == category {
			previous = append(previous, c.MemoryIDs...)
			continue
		}
		kept = append(kept, c)
	}
	m.clusters = append(kept, clusters...)
	return previous, nil
}

func (m *mockClusterStore) ListByCategory(ctx context.Context, category string) ([]domain.ConsensusCluster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ConsensusCluster
	for _, c := range m.clusters {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockClusterStore) GetByMemoryID(ctx context.Context, id uuid.UUID) (*domain.ConsensusCluster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clusters {
		for _, mid := range c.MemoryIDs {
			if mid == id {
				cc := c
				return &cc, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

type mockContradictionStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.Contradiction
}

func newMockContradictionStore() *mockContradictionStore {
	return &mockContradictionStore{items: make(map[uuid.UUID]*domain.Contradiction)}
}

func (m *mockContradictionStore) Create(ctx context.Context, c *domain.Contradiction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.MemoryA == c.MemoryA && existing.MemoryB == c.MemoryB {
			return false, nil
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cc := *c
	m.items[c.ID] = &cc
	return true, nil
}

func (m *mockContradictionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contradiction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cc := *c
	return &cc, nil
}

func (m *mockContradictionStore) list(keep func(*domain.Contradiction) bool) []domain.Contradiction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Contradiction
	for _, c := range m.items {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.Before(out[j].DetectedAt) })
	return out
}

func (m *mockContradictionStore) ListByMemory(ctx context.Context, id uuid.UUID) ([]domain.Contradiction, error) {
	return m.list(func(c *domain.Contradiction) bool { return c.Involves(id) }), nil
}

func (m *mockContradictionStore) ListByStatus(ctx context.Context, status domain.ContradictionStatus, limit int) ([]domain.Contradiction, error) {
	return m.list(func(c *domain.Contradiction) bool { return c.Status == status }), nil
}

func (m *mockContradictionStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Contradiction, error) {
	return m.list(func(c *domain.Contradiction) bool {
		return c.Status == domain.ContradictionOpen && (c.NextAttemptAt == nil || !c.NextAttemptAt.After(now))
	}), nil
}

func (m *mockContradictionStore) Resolve(ctx context.Context, id uuid.UUID, r *domain.Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok || c.Status == domain.ContradictionResolved {
		return store.ErrConflict
	}
	res := *r
	c.Status = domain.ContradictionResolved
	c.Resolution = &res
	c.NextAttemptAt = nil
	return nil
}

func (m *mockContradictionStore) RecordAttempt(ctx context.Context, id uuid.UUID, status domain.ContradictionStatus, next *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok || c.Status == domain.ContradictionResolved {
		return store.ErrConflict
	}
	c.Attempts++
	c.Status = status
	c.NextAttemptAt = next
	return nil
}

type voteKey struct {
	memory uuid.UUID
	agent  string
}

type mockVoteStore struct {
	mu    sync.Mutex
	votes map[voteKey]domain.FactVote
}

func newMockVoteStore() *mockVoteStore {
	return &mockVoteStore{votes: make(map[voteKey]domain.FactVote)}
}

func (m *mockVoteStore) Upsert(ctx context.Context, v *domain.FactVote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := voteKey{v.MemoryID, v.AgentID}
	if prev, ok := m.votes[k]; ok {
		v.CreatedAt = prev.CreatedAt
	} else {
		v.CreatedAt = v.UpdatedAt
	}
	m.votes[k] = *v
	return nil
}

func (m *mockVoteStore) ListByMemory(ctx context.Context, id uuid.UUID) ([]domain.FactVote, error) {
	return m.ListByMemories(ctx, []uuid.UUID{id})
}

func (m *mockVoteStore) ListByMemories(ctx context.Context, ids []uuid.UUID) ([]domain.FactVote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := idSet(ids)
	var out []domain.FactVote
	for _, v := range m.votes {
		if _, ok := want[v.MemoryID]; ok {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

type mockWeightStore struct {
	mu       sync.Mutex
	versions []domain.WeightVersion
}

func (m *mockWeightStore) Create(ctx context.Context, w *domain.WeightVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.Status == domain.WeightStatusActive {
		for _, v := range m.versions {
			if v.Status == domain.WeightStatusActive {
				return store.ErrConflict
			}
		}
	}
	w.Version = len(m.versions) + 1
	w.CreatedAt = time.Now().UTC()
	m.versions = append(m.versions, *w)
	return nil
}

func (m *mockWeightStore) GetActive(ctx context.Context) (*domain.WeightVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.Status == domain.WeightStatusActive {
			vv := v
			return &vv, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockWeightStore) GetByVersion(ctx context.Context, version int) (*domain.WeightVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version < 1 || version > len(m.versions) {
		return nil, store.ErrNotFound
	}
	v := m.versions[version-1]
	return &v, nil
}

func (m *mockWeightStore) List(ctx context.Context, limit int) ([]domain.WeightVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.WeightVersion, 0, len(m.versions))
	for i := len(m.versions) - 1; i >= 0; i-- {
		out = append(out, m.versions[i])
	}
	return out, nil
}

func (m *mockWeightStore) Activate(ctx context.Context, version int, by string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version < 1 || version > len(m.versions) {
		return store.ErrNotFound
	}
	target := &m.versions[version-1]
	switch target.Status {
	case domain.WeightStatusActive:
		return nil
	case domain.WeightStatusRejected:
		return store.ErrConflict
	}
	for i := range m.versions {
		if m.versions[i].Status == domain.WeightStatusActive {
			m.versions[i].Status = domain.WeightStatusSuperseded
		}
	}
	target.Status = domain.WeightStatusActive
	target.ActivatedBy = by
	target.ActivatedAt = &at
	return nil
}

func (m *mockWeightStore) SetStatus(ctx context.Context, version int, status domain.WeightStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version < 1 || version > len(m.versions) {
		return store.ErrNotFound
	}
	m.versions[version-1].Status = status
	return nil
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

type recordingEnqueuer struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (e *recordingEnqueuer) Enqueue(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, id)
}

func (e *recordingEnqueuer) count(id uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, x := range e.ids {
		if x == id {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []domain.ScoreChange
}

func (n *recordingNotifier) PublishScoreChange(ctx context.Context, c domain.ScoreChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
	return nil
}

type stubProber struct {
	holds map[string]bool
	err   error
	calls int
}

func (p *stubProber) CanProbe(f domain.EntityState) bool {
	_, ok := p.holds[f.Value]
	return ok
}

func (p *stubProber) Probe(ctx context.Context, f domain.EntityState) (domain.ProbeResult, error) {
	p.calls++
	if p.err != nil {
		return domain.ProbeResult{}, p.err
	}
	return domain.ProbeResult{Holds: p.holds[f.Value], Detail: "probed " + f.Value}, nil
}
