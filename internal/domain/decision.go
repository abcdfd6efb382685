package domain

import (
	"github.com/google/uuid"
)

type ActionRisk string

const (
	RiskLow      ActionRisk = "low"
	RiskMedium   ActionRisk = "medium"
	RiskHigh     ActionRisk = "high"
	RiskCritical ActionRisk = "critical"
)

func ValidActionRisk(r string) bool {
	switch ActionRisk(r) {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

type DecisionAction string

const (
	ActionProceed         DecisionAction = "proceed"
	ActionVerifyFirst     DecisionAction = "verify_first"
	ActionFindAlternative DecisionAction = "find_alternative"
)

type DecisionGuidance struct {
	MemoryID  uuid.UUID       `json:"memory_id"`
	Risk      ActionRisk      `json:"risk"`
	Score     float64         `json:"score"`
	Threshold float64         `json:"threshold"`
	Level     ConfidenceLevel `json:"level"`
	Action    DecisionAction  `json:"action"`
	Reason    string          `json:"reason"`
}
