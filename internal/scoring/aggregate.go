package scoring

import (
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"github.com/google/uuid"
)

// Aggregate is the weighted sum of clamped factor scores.
func Aggregate(f domain.FactorScores, w domain.WeightSet) float64 {
	fv, wv := f.Vector(), w.Vector()
	var total float64
	for i := range fv {
		total += wv[i] * clamp01(fv[i])
	}
	return clamp01(total)
}

// NewScore builds a ConfidenceScore with level and recommendation filled in.
func NewScore(memoryID uuid.UUID, f domain.FactorScores, wv *domain.WeightVersion, now time.Time) *domain.ConfidenceScore {
	final := Aggregate(f, wv.Weights)
	level := domain.ComputeLevel(final)
	return &domain.ConfidenceScore{
		MemoryID:       memoryID,
		FinalScore:     final,
		Level:          level,
		Recommendation: domain.LevelRecommendation(level),
		Factors:        f,
		Weights:        wv.Weights,
		WeightsVersion: wv.Version,
		CalculatedAt:   now,
	}
}
