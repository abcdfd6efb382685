// Package extract pulls entity facts (ports, hosts, versions, states) out of
// free-text memory content with a table of regular expressions.
package extract

import (
	"regexp"
	"strings"

	"github.com/Harshitk-cp/veritas/internal/domain"
)

// maxInputLength bounds the text handed to the regex table.
const maxInputLength = 10000

const (
	AttrPort    = "port"
	AttrHost    = "host"
	AttrVersion = "version"
	AttrState   = "state"
)

const entity = `([a-z][\w.-]*)(?:\s+(?:service|server|cluster|instance|database|db|node|broker|queue))?`

var stateWords = `running|stopped|up|down|enabled|disabled|active|inactive|online|offline|open|closed|healthy|unhealthy|available|unavailable|degraded|deprecated`

// patterns is ordered; the first match for an (entity, attribute) wins.
var patterns = []struct {
	re   *regexp.Regexp
	kind domain.FactKind
	// groups maps submatch indexes to entity, attribute and value. A zero
	// attrGroup means attr is fixed.
	entityGroup, attrGroup, valueGroup int
	attr                               string
}{
	// "redis runs on port 6379", "payments-api service is listening on port 8080"
	{
		re:          regexp.MustCompile(`(?i)\b` + entity + `\s+(?:is\s+|runs\s+|listens\s+|is\s+running\s+|is\s+listening\s+|is\s+exposed\s+)?on\s+port\s+(\d{1,5})\b`),
		kind:        domain.FactNumeric,
		entityGroup: 1, valueGroup: 2, attr: AttrPort,
	},
	// "redis port is 6379", "redis port 6379"
	{
		re:          regexp.MustCompile(`(?i)\b` + entity + `\s+port\s+(?:is\s+|=\s*)?(\d{1,5})\b`),
		kind:        domain.FactNumeric,
		entityGroup: 1, valueGroup: 2, attr: AttrPort,
	},
	// "redis:6379"
	{
		re:          regexp.MustCompile(`(?i)\b([a-z][\w-]*):(\d{2,5})\b`),
		kind:        domain.FactNumeric,
		entityGroup: 1, valueGroup: 2, attr: AttrPort,
	},
	// "postgres version 15.4", "postgres is on version 15", "nginx v1.25"
	{
		re:          regexp.MustCompile(`(?i)\b` + entity + `\s+(?:is\s+)?(?:(?:at|on|running)\s+)?(?:version\s+|v)(\d+(?:\.\d+){0,3})\b`),
		kind:        domain.FactCategoric,
		entityGroup: 1, valueGroup: 2, attr: AttrVersion,
	},
	// "redis host is cache-01.internal", "redis is hosted on cache-01.internal"
	{
		re:          regexp.MustCompile(`(?i)\b` + entity + `\s+(?:host|hostname|endpoint)\s+is\s+([a-z0-9][\w.-]*)`),
		kind:        domain.FactCategoric,
		entityGroup: 1, valueGroup: 2, attr: AttrHost,
	},
	{
		re:          regexp.MustCompile(`(?i)\b` + entity + `\s+is\s+hosted\s+(?:on|at)\s+([a-z0-9][\w-]*(?:\.[\w-]+)+)`),
		kind:        domain.FactCategoric,
		entityGroup: 1, valueGroup: 2, attr: AttrHost,
	},
	// "the payments-api service is running", "kafka is currently down"
	{
		re:          regexp.MustCompile(`(?i)\b` + entity + `\s+(?:is|was|are|has\s+been|is\s+currently|is\s+now)\s+(` + stateWords + `)\b`),
		kind:        domain.FactState,
		entityGroup: 1, valueGroup: 2, attr: AttrState,
	},
	// "the owner of billing is team-payments"
	{
		re:          regexp.MustCompile(`(?i)\bthe\s+([a-z][\w-]*)\s+of\s+([a-z][\w.-]*)\s+is\s+([\w.:/-]+)`),
		kind:        domain.FactCategoric,
		attrGroup:   1, entityGroup: 2, valueGroup: 3,
	},
}

// stopwords are never entities.
var stopwords = map[string]struct{}{
	"it": {}, "this": {}, "that": {}, "the": {}, "which": {}, "what": {},
	"service": {}, "server": {}, "and": {}, "or": {}, "now": {}, "also": {},
	"there": {}, "here": {}, "is": {}, "was": {}, "a": {}, "an": {},
	"on": {}, "at": {}, "in": {}, "to": {}, "of": {}, "for": {}, "with": {},
	"running": {}, "listening": {},
}

// Extractor is the regex FactExtractor.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract returns at most one fact per (entity, attribute). Earlier patterns
// take precedence.
func (e *Extractor) Extract(content string) []domain.EntityState {
	if len(content) > maxInputLength {
		content = content[:maxInputLength]
	}

	seen := make(map[string]struct{})
	var facts []domain.EntityState
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringSubmatch(content, -1) {
			ent := normalizeEntity(m[p.entityGroup])
			if ent == "" {
				continue
			}
			attr := p.attr
			if p.attrGroup > 0 {
				attr = strings.ToLower(m[p.attrGroup])
			}
			value := strings.TrimRight(strings.TrimSpace(m[p.valueGroup]), ".,;:")
			if value == "" {
				continue
			}

			key := ent + "\x00" + attr
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			kind := p.kind
			if p.attrGroup > 0 && isNumeric(value) {
				kind = domain.FactNumeric
			}
			facts = append(facts, domain.EntityState{
				Entity:    ent,
				Attribute: attr,
				Value:     strings.ToLower(value),
				Kind:      kind,
			})
		}
	}
	return facts
}

func normalizeEntity(s string) string {
	s = strings.ToLower(strings.Trim(s, ".-_"))
	if _, stop := stopwords[s]; stop {
		return ""
	}
	return s
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
