package scoring

import (
	"fmt"

	"github.com/Harshitk-cp/veritas/internal/domain"
)

// Advise maps a score and action risk to proceed / verify_first / find_alternative.
func (c *Config) Advise(score *domain.ConfidenceScore, risk domain.ActionRisk) domain.DecisionGuidance {
	threshold, ok := c.Decision.Thresholds[string(risk)]
	if !ok {
		threshold = c.Decision.Thresholds[string(domain.RiskCritical)]
	}

	g := domain.DecisionGuidance{
		MemoryID:  score.MemoryID,
		Risk:      risk,
		Score:     score.FinalScore,
		Threshold: threshold,
		Level:     score.Level,
	}

	switch {
	case score.FinalScore >= threshold:
		g.Action = domain.ActionProceed
		g.Reason = fmt.Sprintf("confidence %.2f meets the %.2f threshold for %s-risk actions", score.FinalScore, threshold, risk)
	case score.FinalScore >= threshold-c.Decision.VerifyMargin:
		g.Action = domain.ActionVerifyFirst
		g.Reason = fmt.Sprintf("confidence %.2f is within %.2f of the %.2f threshold; verify before acting", score.FinalScore, c.Decision.VerifyMargin, threshold)
	default:
		g.Action = domain.ActionFindAlternative
		g.Reason = fmt.Sprintf("confidence %.2f is well below the %.2f threshold for %s-risk actions", score.FinalScore, threshold, risk)
	}
	return g
}
