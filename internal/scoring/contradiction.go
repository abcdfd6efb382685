package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
)

// Conflict is a detected disagreement between two memories, with values in
// the order the memories were passed to DetectConflict.
type Conflict struct {
	Type      domain.ContradictionType
	Entity    string
	Attribute string
	ValueA    string
	ValueB    string
	Severity  float64
}

func (c *Config) exclusive(v1, v2 string) bool {
	v1, v2 = normalizeKey(v1), normalizeKey(v2)
	for _, p := range c.Contradiction.ExclusivePairs {
		a, b := normalizeKey(p[0]), normalizeKey(p[1])
		if (v1 == a && v2 == b) || (v1 == b && v2 == a) {
			return true
		}
	}
	return false
}

func (c *Config) attributeWeight(attr string) float64 {
	if w, ok := c.Contradiction.AttributeWeights[normalizeKey(attr)]; ok {
		return w
	}
	return c.Contradiction.DefaultAttrWeight
}

func centrality(facts []domain.EntityState, entity string) float64 {
	if len(facts) == 0 {
		return 0
	}
	n := 0
	for _, f := range facts {
		if normalizeKey(f.Entity) == entity {
			n++
		}
	}
	return float64(n) / float64(len(facts))
}

// Severity weighs the attribute by how central the entity is to both memories.
func (c *Config) Severity(attr, entity string, factsA, factsB []domain.EntityState) float64 {
	entity = normalizeKey(entity)
	cent := (centrality(factsA, entity) + centrality(factsB, entity)) / 2
	return clamp01(c.attributeWeight(attr) * (0.4 + 0.6*cent))
}

// isStateFact treats untyped facts on the state attribute as state facts.
func isStateFact(f domain.EntityState) bool {
	return f.Kind == domain.FactState || (f.Kind == "" && normalizeKey(f.Attribute) == "state")
}

// DetectConflict compares the facts of two memories and returns the most
// severe conflict, or nil. State values only conflict when they form a
// configured exclusive pair. A conflict between memories created further apart
// than TemporalWindow is classified temporal.
func (c *Config) DetectConflict(a, b *domain.MemoryRecord, factsA, factsB []domain.EntityState) *Conflict {
	var best *Conflict
	for _, fa := range factsA {
		for _, fb := range factsB {
			if normalizeKey(fa.Entity) != normalizeKey(fb.Entity) ||
				normalizeKey(fa.Attribute) != normalizeKey(fb.Attribute) {
				continue
			}
			va, vb := normalizeKey(fa.Value), normalizeKey(fb.Value)
			if va == vb {
				continue
			}

			kind := domain.ContradictionFactual
			if isStateFact(fa) || isStateFact(fb) {
				if !c.exclusive(va, vb) {
					continue
				}
				kind = domain.ContradictionSemantic
			}
			sev := c.Severity(fa.Attribute, fa.Entity, factsA, factsB)
			if best == nil || sev > best.Severity {
				best = &Conflict{
					Type:      kind,
					Entity:    normalizeKey(fa.Entity),
					Attribute: normalizeKey(fa.Attribute),
					ValueA:    fa.Value,
					ValueB:    fb.Value,
					Severity:  sev,
				}
			}
		}
	}
	if best != nil && absDuration(a.CreatedAt.Sub(b.CreatedAt)) > c.Contradiction.TemporalWindow {
		best.Type = domain.ContradictionTemporal
	}
	return best
}

// ContradictionScore is LoserScore for a memory that lost a resolved
// contradiction; otherwise unresolved severities are summed into a capped
// penalty. Winners and resolved pairs carry no penalty.
func (c *Config) ContradictionScore(memoryID uuid.UUID, contradictions []domain.Contradiction) float64 {
	penalty := 0.0
	for i := range contradictions {
		ct := &contradictions[i]
		if !ct.Involves(memoryID) {
			continue
		}
		if !ct.Unresolved() {
			if ct.Resolution != nil && ct.Resolution.LoserID == memoryID {
				return c.Contradiction.LoserScore
			}
			continue
		}
		penalty += c.Contradiction.UnresolvedPenalty * ct.Severity
	}
	return clamp01(1 - math.Min(c.Contradiction.PenaltyCap, penalty))
}

// SideEvidence is what the rule-based resolution steps know about one side.
type SideEvidence struct {
	Memory        *domain.MemoryRecord
	SourceScore   float64
	Corroborators int
}

// ResolveByRules runs the temporal, credibility and consensus steps in order
// and returns the first decisive outcome. ok is false when none decides.
func (c *Config) ResolveByRules(a, b SideEvidence) (res domain.Resolution, ok bool) {
	cc := c.Contradiction

	if delta := a.Memory.CreatedAt.Sub(b.Memory.CreatedAt); absDuration(delta) > cc.TemporalWindow {
		winner, loser := a, b
		if delta < 0 {
			winner, loser = b, a
		}
		return domain.Resolution{
			Strategy:    domain.StrategyTemporal,
			WinnerID:    winner.Memory.ID,
			LoserID:     loser.Memory.ID,
			LoserStatus: domain.MemoryStatusDeprecated,
			Reason: fmt.Sprintf("newer memory supersedes one created %.0f days earlier",
				absDuration(delta).Hours()/24),
		}, true
	}

	if diff := a.SourceScore - b.SourceScore; math.Abs(diff) > cc.CredibilityMargin {
		winner, loser := a, b
		if diff < 0 {
			winner, loser = b, a
		}
		return domain.Resolution{
			Strategy:    domain.StrategySourceCredibility,
			WinnerID:    winner.Memory.ID,
			LoserID:     loser.Memory.ID,
			LoserStatus: domain.MemoryStatusDisputed,
			Reason: fmt.Sprintf("source credibility %.2f vs %.2f",
				winner.SourceScore, loser.SourceScore),
		}, true
	}

	if diff := a.Corroborators - b.Corroborators; abs(diff) >= cc.ConsensusMargin {
		winner, loser := a, b
		if diff < 0 {
			winner, loser = b, a
		}
		return domain.Resolution{
			Strategy:    domain.StrategyConsensus,
			WinnerID:    winner.Memory.ID,
			LoserID:     loser.Memory.ID,
			LoserStatus: domain.MemoryStatusDisputed,
			Reason: fmt.Sprintf("%d corroborating agents vs %d",
				winner.Corroborators, loser.Corroborators),
		}, true
	}

	return domain.Resolution{}, false
}

// ResolveByProbe decides only when exactly one of the two claims holds.
func ResolveByProbe(a, b *domain.MemoryRecord, holdsA, holdsB bool, detail string) (domain.Resolution, bool) {
	if holdsA == holdsB {
		return domain.Resolution{}, false
	}
	winner, loser := a, b
	if holdsB {
		winner, loser = b, a
	}
	reason := "automated probe confirmed one claim"
	if detail = strings.TrimSpace(detail); detail != "" {
		reason += ": " + detail
	}
	return domain.Resolution{
		Strategy:    domain.StrategyAutomatedVerification,
		WinnerID:    winner.ID,
		LoserID:     loser.ID,
		LoserStatus: domain.MemoryStatusDisputed,
		Reason:      reason,
	}, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
