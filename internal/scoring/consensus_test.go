package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memory(creator string, embedding []float32) domain.MemoryRecord {
	return domain.MemoryRecord{
		ID:        uuid.New(),
		Content:   "redis runs on port 6379",
		Category:  "infrastructure",
		CreatorID: creator,
		Embedding: embedding,
		CreatedAt: time.Now(),
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestCluster_GroupsSimilarAndDropsSingletons(t *testing.T) {
	cfg := DefaultConfig()
	mems := []domain.MemoryRecord{
		memory("a", []float32{1, 0, 0}),
		memory("b", []float32{0.98, 0.1, 0}),
		memory("c", []float32{0, 1, 0}),
		memory("d", []float32{0.95, 0.05, 0.02}),
		memory("e", nil),
	}

	clusters := cfg.Cluster(mems)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 3)
	assert.Equal(t, "a", clusters[0][0].CreatorID)
}

func TestIndependence(t *testing.T) {
	cfg := DefaultConfig()
	a := memory("a", nil)
	b := memory("b", nil)
	c := memory("c", nil)
	b.References = []uuid.UUID{a.ID}

	got := cfg.Independence([]domain.MemoryRecord{a, b, c})
	assert.InDelta(t, 1-0.5/3, got, 1e-9)

	self := memory("s", nil)
	self.References = []uuid.UUID{self.ID}
	assert.Equal(t, 1.0, cfg.Independence([]domain.MemoryRecord{self, a}))
}

func TestCorroboratingAgents(t *testing.T) {
	m := memory("creator", nil)
	ev := ClusterEvidence{
		Members: []domain.MemoryRecord{m},
		Verifications: []domain.Verification{
			{VerifierID: "verifier", Type: domain.VerificationConfirmed},
			{VerifierID: "critic", Type: domain.VerificationIncorrect},
		},
		Votes: []domain.FactVote{
			{AgentID: "fan", Vote: domain.VoteAgree},
			{AgentID: "skeptic", Vote: domain.VoteDisagree},
			{AgentID: "creator", Vote: domain.VoteAgree},
		},
	}
	assert.Equal(t, []string{"creator", "fan", "verifier"}, CorroboratingAgents(ev))
}

// Scenario: five independent specialists agree more strongly than five agents
// that cite each other.
func TestBuildCluster_IndependenceMatters(t *testing.T) {
	cfg := DefaultConfig()
	specs := map[string]string{}

	var independent, echo []domain.MemoryRecord
	for i := 0; i < 5; i++ {
		agent := fmt.Sprintf("agent-%d", i)
		specs[agent] = fmt.Sprintf("specialty-%d", i)
		independent = append(independent, memory(agent, []float32{1, 0}))
		echo = append(echo, memory(agent, []float32{1, 0}))
	}
	for i := range echo {
		echo[i].References = []uuid.UUID{echo[(i+1)%len(echo)].ID}
	}

	a := cfg.BuildCluster("infrastructure", ClusterEvidence{Members: independent, Specializations: specs})
	b := cfg.BuildCluster("infrastructure", ClusterEvidence{Members: echo, Specializations: specs})

	assert.Equal(t, 1.0, a.IndependenceFactor)
	assert.Equal(t, 0.5, b.IndependenceFactor)
	assert.Greater(t, a.AgreementLevel, b.AgreementLevel)
	assert.Greater(t, ConsensusScore(&a), 0.5)
	assert.Len(t, a.Specializations, 5)
}

func TestBuildCluster_DiversityAndDissent(t *testing.T) {
	cfg := DefaultConfig()
	mems := []domain.MemoryRecord{memory("a", nil), memory("b", nil), memory("c", nil)}

	same := cfg.BuildCluster("x", ClusterEvidence{
		Members:         mems,
		Specializations: map[string]string{"a": "db", "b": "db", "c": "db"},
	})
	diverse := cfg.BuildCluster("x", ClusterEvidence{
		Members:         mems,
		Specializations: map[string]string{"a": "db", "b": "network", "c": "security"},
	})
	assert.Greater(t, diverse.AgreementLevel, same.AgreementLevel)

	disputed := cfg.BuildCluster("x", ClusterEvidence{
		Members:         mems,
		Specializations: map[string]string{"a": "db", "b": "network", "c": "security"},
		Votes: []domain.FactVote{
			{AgentID: "z", Vote: domain.VoteDisagree, Confidence: 1},
			{AgentID: "y", Vote: domain.VoteAgree, Confidence: 1},
		},
	})
	assert.Less(t, disputed.AgreementLevel, diverse.AgreementLevel)
}

func TestConsensusScore_Neutral(t *testing.T) {
	assert.Equal(t, 0.5, ConsensusScore(nil))
	assert.Equal(t, 0.5, ConsensusScore(&domain.ConsensusCluster{MemoryIDs: []uuid.UUID{uuid.New()}, AgreementLevel: 0.9}))
}
