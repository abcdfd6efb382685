package scoring

import (
	"math"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
)

// AgentCredibility blends historical accuracy, experience and tenure, minus a
// penalty for corrections. Agents without history get the unknown baseline.
func (c *Config) AgentCredibility(cred *domain.AgentCredibility, now time.Time) float64 {
	if !cred.HasHistory() {
		return c.Credibility.UnknownBaseline
	}
	cc := c.Credibility

	successRate := 0.5
	if verified := cred.VerifiedCorrect + cred.VerifiedIncorrect; verified > 0 {
		successRate = float64(cred.VerifiedCorrect) / float64(verified)
	}

	experience := 0.0
	if cc.ExperienceCap > 0 {
		experience = math.Min(1, math.Log1p(float64(cred.ContributionCount))/math.Log1p(float64(cc.ExperienceCap)))
	}

	tenure := 0.0
	if cred.FirstContributionAt != nil && cc.TenureCapDays > 0 {
		days := now.Sub(*cred.FirstContributionAt).Hours() / 24
		tenure = clamp01(days / cc.TenureCapDays)
	}

	score := cc.SuccessWeight*successRate +
		cc.ExperienceWeight*experience +
		cc.TenureWeight*tenure -
		cc.CorrectionPenalty*float64(cred.CorrectionsIssued)
	return clamp01(score)
}

func (c *Config) RoleTrust(role domain.AgentRole) float64 {
	if v, ok := c.Credibility.RoleTrust[normalizeKey(string(role))]; ok {
		return v
	}
	return c.Credibility.DefaultTrust
}

func (c *Config) SourceTypeTrust(st domain.SourceType) float64 {
	if v, ok := c.Credibility.SourceTypeTrust[normalizeKey(string(st))]; ok {
		return v
	}
	return c.Credibility.DefaultTrust
}

// SourceScore combines agent credibility with the role and source-type tables.
func (c *Config) SourceScore(agentScore float64, role domain.AgentRole, st domain.SourceType) float64 {
	cc := c.Credibility
	return clamp01(cc.AgentWeight*clamp01(agentScore) +
		cc.RoleWeight*c.RoleTrust(role) +
		cc.SourceTypeWeight*c.SourceTypeTrust(st))
}
