package scoring

import (
	"strings"
	"unicode"

	"github.com/Harshitk-cp/veritas/internal/domain"
)

// ContextRelevance scores how well a memory fits the caller's context. Only
// dimensions present in the context are weighed; a dimension the memory has
// no attribute for scores neutral. taskSimilarity, when non-nil, replaces the
// token overlap used for the task dimension.
func (c *Config) ContextRelevance(m *domain.MemoryRecord, ctx *domain.ScoringContext, taskSimilarity *float64) float64 {
	if ctx.Empty() {
		return neutral
	}
	rc := c.Relevance

	var sum, weights float64
	add := func(w, score float64) {
		sum += w * clamp01(score)
		weights += w
	}

	if ctx.Project != "" {
		add(rc.ProjectWeight, matchAttr(m.Project, ctx.Project))
	}
	if ctx.Team != "" {
		add(rc.TeamWeight, matchAttr(m.Team, ctx.Team))
	}
	if ctx.Category != "" {
		add(rc.CategoryWeight, matchAttr(m.Category, ctx.Category))
	}
	if len(ctx.Systems) > 0 {
		add(rc.SystemsWeight, systemsOverlap(m.Systems, ctx.Systems))
	}
	if ctx.Task != "" {
		if taskSimilarity != nil {
			add(rc.TaskWeight, *taskSimilarity)
		} else {
			add(rc.TaskWeight, TokenJaccard(m.Content, ctx.Task))
		}
	}

	if weights == 0 {
		return neutral
	}
	return clamp01(sum / weights)
}

func matchAttr(have, want string) float64 {
	if strings.TrimSpace(have) == "" {
		return neutral
	}
	if strings.EqualFold(strings.TrimSpace(have), strings.TrimSpace(want)) {
		return 1
	}
	return 0
}

func systemsOverlap(have, want []string) float64 {
	if len(have) == 0 {
		return neutral
	}
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[normalizeKey(s)] = struct{}{}
	}
	seen := make(map[string]struct{}, len(want))
	hits := 0
	for _, s := range want {
		k := normalizeKey(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			hits++
		}
	}
	if len(seen) == 0 {
		return neutral
	}
	return float64(hits) / float64(len(seen))
}

// TokenJaccard is |A∩B|/|A∪B| over lowercased word tokens.
func TokenJaccard(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokens(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
