package domain

import (
	"time"
)

// CalibrationBin is one row of a reliability table: predictions falling in
// [Lower, Upper) against what actually happened.
type CalibrationBin struct {
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	Count         int     `json:"count"`
	MeanPredicted float64 `json:"mean_predicted"`
	MeanActual    float64 `json:"mean_actual"`
}

// CalibrationReport summarizes how well recorded scores predicted outcomes.
type CalibrationReport struct {
	SampleSize      int              `json:"sample_size"`
	BrierScore      float64          `json:"brier_score"`
	MeanAbsoluteErr float64          `json:"mean_absolute_error"`
	Bins            []CalibrationBin `json:"bins"`
}

// LearningRun is the output of one learning-loop pass.
type LearningRun struct {
	PeriodStart   time.Time          `json:"period_start"`
	PeriodEnd     time.Time          `json:"period_end"`
	ActiveVersion int                `json:"active_version"`
	Calibration   *CalibrationReport `json:"calibration"`
	Proposal      *WeightVersion     `json:"proposal,omitempty"`
	Skipped       string             `json:"skipped,omitempty"`
}
