package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the engine's view of the external memory store. Records
// arrive through Upsert on ingest; everything else is read-only apart from
// annotations.
type MemoryStore interface {
	Upsert(ctx context.Context, m *MemoryRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MemoryRecord, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]MemoryRecord, error)
	FindSimilar(ctx context.Context, embedding []float32, category string, threshold float32, limit int) ([]MemoryWithSimilarity, error)
	Search(ctx context.Context, embedding []float32, category string, limit int) ([]MemoryWithSimilarity, error)
	// ListRecent returns the newest records in category, newest first.
	ListRecent(ctx context.Context, category string, limit int) ([]MemoryRecord, error)
	// ListByCategory returns up to limit records created after the cursor,
	// oldest first. A zero cursor starts at the oldest record.
	ListByCategory(ctx context.Context, category string, after PageCursor, limit int) ([]MemoryRecord, error)
	ListCategories(ctx context.Context) ([]string, error)
	Annotate(ctx context.Context, a *MemoryAnnotation) error
}

type ScoreStore interface {
	Get(ctx context.Context, memoryID uuid.UUID) (*ConfidenceScore, error)
	// Upsert persists s if the stored version still equals expectedVersion
	// (0 for a first write) and sets s.Version to the new version.
	Upsert(ctx context.Context, s *ConfidenceScore, expectedVersion int64) error
	ListMemoryIDs(ctx context.Context) ([]uuid.UUID, error)
}

type VerificationStore interface {
	// Create returns false when an event with the same natural key exists.
	Create(ctx context.Context, v *Verification) (bool, error)
	ListByMemory(ctx context.Context, memoryID uuid.UUID) ([]Verification, error)
	ListByMemories(ctx context.Context, memoryIDs []uuid.UUID) ([]Verification, error)
}

type UsageStore interface {
	Create(ctx context.Context, u *UsageOutcome) (bool, error)
	StatsSince(ctx context.Context, memoryID uuid.UUID, since time.Time) (UsageStats, error)
	ListWithPredictionsSince(ctx context.Context, since time.Time, limit int) ([]UsageOutcome, error)
}

type AgentStore interface {
	Upsert(ctx context.Context, p *AgentProfile) error
	GetByID(ctx context.Context, agentID string) (*AgentProfile, error)
	GetByIDs(ctx context.Context, agentIDs []string) (map[string]AgentProfile, error)
}

type CredibilityStore interface {
	Get(ctx context.Context, agentID, category string) (*AgentCredibility, error)
	ListByAgent(ctx context.Context, agentID string) ([]AgentCredibility, error)
	// Apply adds delta to the (agent, category) aggregate, creating it if needed.
	Apply(ctx context.Context, agentID, category string, delta CredibilityDelta) (*AgentCredibility, error)
	UpdateScore(ctx context.Context, agentID, category string, score float64) error
}

type ClusterStore interface {
	// ReplaceCategory swaps every cluster of a category for a fresh batch
	// result and returns the memory ids of the clusters it replaced.
	ReplaceCategory(ctx context.Context, category string, clusters []ConsensusCluster) ([]uuid.UUID, error)
	ListByCategory(ctx context.Context, category string) ([]ConsensusCluster, error)
	GetByMemoryID(ctx context.Context, memoryID uuid.UUID) (*ConsensusCluster, error)
}

type ContradictionStore interface {
	// Create returns false if the pair already has a contradiction.
	Create(ctx context.Context, c *Contradiction) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Contradiction, error)
	ListByMemory(ctx context.Context, memoryID uuid.UUID) ([]Contradiction, error)
	ListByStatus(ctx context.Context, status ContradictionStatus, limit int) ([]Contradiction, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]Contradiction, error)
	Resolve(ctx context.Context, id uuid.UUID, r *Resolution) error
	RecordAttempt(ctx context.Context, id uuid.UUID, status ContradictionStatus, nextAttemptAt *time.Time) error
}

type VoteStore interface {
	Upsert(ctx context.Context, v *FactVote) error
	ListByMemory(ctx context.Context, memoryID uuid.UUID) ([]FactVote, error)
	ListByMemories(ctx context.Context, memoryIDs []uuid.UUID) ([]FactVote, error)
}

type WeightStore interface {
	Create(ctx context.Context, w *WeightVersion) error
	GetActive(ctx context.Context) (*WeightVersion, error)
	GetByVersion(ctx context.Context, version int) (*WeightVersion, error)
	List(ctx context.Context, limit int) ([]WeightVersion, error)
	// Activate marks version active and supersedes the previously active one.
	Activate(ctx context.Context, version int, activatedBy string, at time.Time) error
	SetStatus(ctx context.Context, version int, status WeightStatus) error
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Notifier relays score changes to the sync layer; it does not replicate data.
type Notifier interface {
	PublishScoreChange(ctx context.Context, change ScoreChange) error
}

type ProbeResult struct {
	Holds  bool   `json:"holds"`
	Detail string `json:"detail"`
}

// Prober mechanically checks a claim, e.g. by dialing the port it names.
type Prober interface {
	CanProbe(fact EntityState) bool
	Probe(ctx context.Context, fact EntityState) (ProbeResult, error)
}
