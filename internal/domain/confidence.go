package domain

import (
	"time"

	"github.com/google/uuid"
)

type Factor string

const (
	FactorFreshness         Factor = "freshness"
	FactorSourceCredibility Factor = "source_credibility"
	FactorVerification      Factor = "verification"
	FactorConsensus         Factor = "consensus"
	FactorContradiction     Factor = "contradiction"
	FactorSuccessRate       Factor = "success_rate"
	FactorContextRelevance  Factor = "context_relevance"
)

func AllFactors() []Factor {
	return []Factor{
		FactorFreshness,
		FactorSourceCredibility,
		FactorVerification,
		FactorConsensus,
		FactorContradiction,
		FactorSuccessRate,
		FactorContextRelevance,
	}
}

// FactorScores holds the seven individually computed inputs to a confidence score.
type FactorScores struct {
	Freshness         float64 `json:"freshness"`
	SourceCredibility float64 `json:"source_credibility"`
	Verification      float64 `json:"verification"`
	Consensus         float64 `json:"consensus"`
	Contradiction     float64 `json:"contradiction"`
	SuccessRate       float64 `json:"success_rate"`
	ContextRelevance  float64 `json:"context_relevance"`
}

// Vector returns the scores ordered as AllFactors.
func (f FactorScores) Vector() []float64 {
	return []float64{
		f.Freshness,
		f.SourceCredibility,
		f.Verification,
		f.Consensus,
		f.Contradiction,
		f.SuccessRate,
		f.ContextRelevance,
	}
}

type ConfidenceLevel string

const (
	LevelVeryHigh ConfidenceLevel = "very_high"
	LevelHigh     ConfidenceLevel = "high"
	LevelMedium   ConfidenceLevel = "medium"
	LevelLow      ConfidenceLevel = "low"
	LevelVeryLow  ConfidenceLevel = "very_low"
)

func ComputeLevel(score float64) ConfidenceLevel {
	switch {
	case score >= 0.85:
		return LevelVeryHigh
	case score >= 0.70:
		return LevelHigh
	case score >= 0.55:
		return LevelMedium
	case score >= 0.40:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

var levelRecommendations = map[ConfidenceLevel]string{
	LevelVeryHigh: "Highly reliable; safe to act on without further verification",
	LevelHigh:     "Reliable; act on it for routine tasks",
	LevelMedium:   "Moderately reliable; verify before acting on important tasks",
	LevelLow:      "Low reliability; verify before any use",
	LevelVeryLow:  "Unreliable; seek an alternative source",
}

func LevelRecommendation(level ConfidenceLevel) string {
	if r, ok := levelRecommendations[level]; ok {
		return r
	}
	return levelRecommendations[LevelVeryLow]
}

// ConfidenceScore is the single current score of a memory. It is replaced on
// every recompute; Version guards against stale concurrent writers.
type ConfidenceScore struct {
	MemoryID       uuid.UUID       `json:"memory_id"`
	FinalScore     float64         `json:"final_score"`
	Level          ConfidenceLevel `json:"level"`
	Recommendation string          `json:"recommendation"`
	Factors        FactorScores    `json:"factors"`
	Weights        WeightSet       `json:"weights"`
	WeightsVersion int             `json:"weights_version"`
	Version        int64           `json:"version"`
	CalculatedAt   time.Time       `json:"calculated_at"`
}

// ScoreChange is published whenever a memory's level moves or it is first scored.
type ScoreChange struct {
	MemoryID   uuid.UUID       `json:"memory_id"`
	OldLevel   ConfidenceLevel `json:"old_level,omitempty"`
	NewLevel   ConfidenceLevel `json:"new_level"`
	OldScore   *float64        `json:"old_score,omitempty"`
	NewScore   float64         `json:"new_score"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ScoringContext is the optional caller context for relevance scoring.
type ScoringContext struct {
	Project  string   `json:"project,omitempty"`
	Team     string   `json:"team,omitempty"`
	Category string   `json:"category,omitempty"`
	Systems  []string `json:"systems,omitempty"`
	Task     string   `json:"task,omitempty"`
}

func (c *ScoringContext) Empty() bool {
	return c == nil || (c.Project == "" && c.Team == "" && c.Category == "" && len(c.Systems) == 0 && c.Task == "")
}
