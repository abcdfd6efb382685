package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
)

const neutral = 0.5

func (c *Config) verificationBase(t domain.VerificationType) float64 {
	if v, ok := c.Verification.BaseScores[string(t)]; ok {
		return v
	}
	return neutral
}

// VerificationScore derives the verification factor from the ledger.
//
// The latest negative verdict dominates: every negative within NegativeWindow
// before it is considered and the most severe one sets the score, whatever the
// ordering of same-time events. Positive verdicts only count again when they
// come strictly after that window closes.
func (c *Config) VerificationScore(verifications []domain.Verification) float64 {
	if len(verifications) == 0 {
		return neutral
	}

	sorted := make([]domain.Verification, len(verifications))
	copy(sorted, verifications)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var latestNeg *domain.Verification
	for i := range sorted {
		if sorted[i].Type.Negative() {
			latestNeg = &sorted[i]
		}
	}

	positives := sorted
	if latestNeg != nil {
		cutoff := latestNeg.CreatedAt.Add(c.Verification.NegativeWindow)
		positives = nil
		for _, v := range sorted {
			if !v.Type.Negative() && v.CreatedAt.After(cutoff) {
				positives = append(positives, v)
			}
		}
		if len(positives) == 0 {
			return c.dominantNegative(sorted, latestNeg.CreatedAt)
		}
	}

	return c.positiveScore(positives)
}

func (c *Config) dominantNegative(sorted []domain.Verification, latest time.Time) float64 {
	windowStart := latest.Add(-c.Verification.NegativeWindow)
	var worst domain.VerificationType
	for _, v := range sorted {
		if !v.Type.Negative() || v.CreatedAt.Before(windowStart) || v.CreatedAt.After(latest) {
			continue
		}
		if v.Type.Severity() > worst.Severity() {
			worst = v.Type
		}
	}
	return clamp01(c.verificationBase(worst))
}

func (c *Config) positiveScore(positives []domain.Verification) float64 {
	best := 0.0
	verifiers := make(map[string]struct{})
	for _, v := range positives {
		if b := c.verificationBase(v.Type); b > best {
			best = b
		}
		verifiers[v.VerifierID] = struct{}{}
	}
	if len(positives) == 0 {
		return neutral
	}

	bonus := math.Min(c.Verification.BonusCap, float64(len(verifiers)-1)*c.Verification.BonusIncrement)
	return clamp01(best + bonus)
}

// LastRenewal returns the newest confirmed/still_valid verification time, if any.
func LastRenewal(verifications []domain.Verification) *time.Time {
	var last *time.Time
	for i := range verifications {
		v := verifications[i]
		if !v.Type.Renews() {
			continue
		}
		if last == nil || v.CreatedAt.After(*last) {
			t := v.CreatedAt
			last = &t
		}
	}
	return last
}
