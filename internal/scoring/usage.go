package scoring

import "github.com/Harshitk-cp/veritas/internal/domain"

// SuccessRate scores windowed usage outcomes. Errors count as non-successes.
// Small samples are pulled toward neutral in proportion to n/MinSamples.
func (c *Config) SuccessRate(stats domain.UsageStats) float64 {
	n := stats.Total()
	if n == 0 {
		return neutral
	}

	raw := (float64(stats.Successes) + 0.5*float64(stats.Partials)) / float64(n)
	if minN := c.Usage.MinSamples; n < minN {
		return clamp01(neutral + (raw-neutral)*float64(n)/float64(minN))
	}
	return clamp01(raw)
}
