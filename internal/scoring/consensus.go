package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
)

// CosineSimilarity returns 0 for mismatched or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Cluster groups memories by leader clustering: each memory joins the first
// cluster whose leader it is similar enough to, otherwise it leads a new one.
// Input order decides leadership, so callers pass memories oldest first.
// Memories without embeddings are skipped. Singletons are dropped.
func (c *Config) Cluster(memories []domain.MemoryRecord) [][]domain.MemoryRecord {
	type group struct {
		leader  []float32
		members []domain.MemoryRecord
	}
	var groups []*group
	for _, m := range memories {
		if len(m.Embedding) == 0 {
			continue
		}
		var joined bool
		for _, g := range groups {
			if CosineSimilarity(g.leader, m.Embedding) >= c.Consensus.SimilarityThreshold {
				g.members = append(g.members, m)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, &group{leader: m.Embedding, members: []domain.MemoryRecord{m}})
		}
	}

	var out [][]domain.MemoryRecord
	for _, g := range groups {
		if len(g.members) > 1 {
			out = append(out, g.members)
		}
	}
	return out
}

// ClusterEvidence is everything the agreement level is computed from.
type ClusterEvidence struct {
	Members       []domain.MemoryRecord
	Verifications []domain.Verification
	Votes         []domain.FactVote
	// Specializations maps agent id to specialization; missing agents count
	// as their own unique specialization.
	Specializations map[string]string
}

// CorroboratingAgents returns creators, positive verifiers and agree voters.
func CorroboratingAgents(ev ClusterEvidence) []string {
	set := make(map[string]struct{})
	for _, m := range ev.Members {
		if m.CreatorID != "" {
			set[m.CreatorID] = struct{}{}
		}
	}
	for _, v := range ev.Verifications {
		if !v.Type.Negative() && v.VerifierID != "" {
			set[v.VerifierID] = struct{}{}
		}
	}
	for _, v := range ev.Votes {
		if v.Vote == domain.VoteAgree {
			set[v.AgentID] = struct{}{}
		}
	}

	agents := make([]string, 0, len(set))
	for a := range set {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	return agents
}

// Independence is 1 - penalty*share of members that cite another member.
func (c *Config) Independence(members []domain.MemoryRecord) float64 {
	if len(members) == 0 {
		return 1
	}
	ids := make(map[uuid.UUID]struct{}, len(members))
	for _, m := range members {
		ids[m.ID] = struct{}{}
	}
	citing := 0
	for i := range members {
		if members[i].Cites(ids) {
			citing++
		}
	}
	return clamp01(1 - c.Consensus.CitationPenalty*float64(citing)/float64(len(members)))
}

func dissent(votes []domain.FactVote) float64 {
	var agree, disagree float64
	for _, v := range votes {
		w := v.Confidence
		if w <= 0 {
			w = 1
		}
		switch v.Vote {
		case domain.VoteAgree:
			agree += w
		case domain.VoteDisagree:
			disagree += w
		}
	}
	if agree+disagree == 0 {
		return 0
	}
	return disagree / (agree + disagree)
}

// BuildCluster scores one cluster. Topic is taken from the first member.
func (c *Config) BuildCluster(category string, ev ClusterEvidence) domain.ConsensusCluster {
	agents := CorroboratingAgents(ev)
	n := len(agents)

	specs := make(map[string]struct{})
	var specList []string
	for _, a := range agents {
		s := strings.ToLower(ev.Specializations[a])
		if s == "" {
			s = "agent:" + a
		}
		if _, ok := specs[s]; !ok {
			specs[s] = struct{}{}
			if !strings.HasPrefix(s, "agent:") {
				specList = append(specList, s)
			}
		}
	}
	sort.Strings(specList)

	agentFactor, diversity := 0.0, 0.0
	if n > 0 {
		agentFactor = math.Min(1, math.Log1p(float64(n))/math.Log1p(float64(c.Consensus.AgentSaturation)))
		diversity = float64(len(specs)) / float64(n)
	}
	independence := c.Independence(ev.Members)
	dw := c.Consensus.DiversityWeight
	corroboration := agentFactor * ((1 - dw) + dw*diversity) * independence

	agreement := (0.5 + 0.5*corroboration) * (1 - dissent(ev.Votes))

	ids := make([]uuid.UUID, len(ev.Members))
	for i, m := range ev.Members {
		ids[i] = m.ID
	}
	topic := ""
	if len(ev.Members) > 0 {
		topic = truncate(ev.Members[0].Content, 120)
	}

	return domain.ConsensusCluster{
		Category:           category,
		Topic:              topic,
		MemoryIDs:          ids,
		AgentIDs:           agents,
		Specializations:    specList,
		IndependenceFactor: independence,
		AgreementLevel:     clamp01(agreement),
	}
}

// ConsensusScore is the agreement level of the memory's cluster, or neutral.
func ConsensusScore(cluster *domain.ConsensusCluster) float64 {
	if cluster == nil || len(cluster.MemoryIDs) < 2 {
		return neutral
	}
	return clamp01(cluster.AgreementLevel)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
