package scoring

import (
	"math"
	"time"
)

// HalfLife returns the configured half-life for category in days.
func (c *Config) HalfLife(category string) float64 {
	if hl, ok := c.Freshness.HalfLifeDays[normalizeKey(category)]; ok && hl > 0 {
		return hl
	}
	return c.Freshness.DefaultHalfLifeDays
}

// FreshnessScore is 0.5^(ageDays/halfLife). Age runs from the most recent of
// creation and last successful verification; nothing else renews it.
func (c *Config) FreshnessScore(category string, createdAt time.Time, lastVerifiedAt *time.Time, now time.Time) float64 {
	ref := createdAt
	if lastVerifiedAt != nil && lastVerifiedAt.After(ref) {
		ref = *lastVerifiedAt
	}

	ageDays := now.Sub(ref).Hours() / 24
	if ageDays <= 0 {
		return 1
	}
	return clamp01(math.Pow(0.5, ageDays/c.HalfLife(category)))
}
