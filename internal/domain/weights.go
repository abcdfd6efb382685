package domain

import (
	"fmt"
	"math"
	"time"
)

// WeightSet is one versioned configuration of factor weights.
type WeightSet struct {
	Freshness         float64 `json:"freshness" yaml:"freshness"`
	SourceCredibility float64 `json:"source_credibility" yaml:"source_credibility"`
	Verification      float64 `json:"verification" yaml:"verification"`
	Consensus         float64 `json:"consensus" yaml:"consensus"`
	Contradiction     float64 `json:"contradiction" yaml:"contradiction"`
	SuccessRate       float64 `json:"success_rate" yaml:"success_rate"`
	ContextRelevance  float64 `json:"context_relevance" yaml:"context_relevance"`
}

const weightSumTolerance = 1e-6

func DefaultWeights() WeightSet {
	return WeightSet{
		Freshness:         0.20,
		SourceCredibility: 0.20,
		Verification:      0.15,
		Consensus:         0.15,
		Contradiction:     0.10,
		SuccessRate:       0.10,
		ContextRelevance:  0.10,
	}
}

// Vector returns the weights ordered as AllFactors.
func (w WeightSet) Vector() []float64 {
	return []float64{
		w.Freshness,
		w.SourceCredibility,
		w.Verification,
		w.Consensus,
		w.Contradiction,
		w.SuccessRate,
		w.ContextRelevance,
	}
}

func WeightSetFromVector(v []float64) WeightSet {
	if len(v) != 7 {
		panic(fmt.Sprintf("weight vector has %d entries, want 7", len(v)))
	}
	return WeightSet{
		Freshness:         v[0],
		SourceCredibility: v[1],
		Verification:      v[2],
		Consensus:         v[3],
		Contradiction:     v[4],
		SuccessRate:       v[5],
		ContextRelevance:  v[6],
	}
}

func (w WeightSet) Sum() float64 {
	var sum float64
	for _, v := range w.Vector() {
		sum += v
	}
	return sum
}

func (w WeightSet) Validate() error {
	for i, v := range w.Vector() {
		if v < 0 || math.IsNaN(v) {
			return &ValidationError{Field: "weights." + string(AllFactors()[i]), Reason: "must be a non-negative number"}
		}
	}
	if math.Abs(w.Sum()-1) > weightSumTolerance {
		return &ValidationError{Field: "weights", Reason: fmt.Sprintf("must sum to 1.0, got %.6f", w.Sum())}
	}
	return nil
}

type WeightStatus string

const (
	WeightStatusProposed   WeightStatus = "proposed"
	WeightStatusActive     WeightStatus = "active"
	WeightStatusRejected   WeightStatus = "rejected"
	WeightStatusSuperseded WeightStatus = "superseded"
)

type WeightSource string

const (
	WeightSourceDefault  WeightSource = "default"
	WeightSourceLearning WeightSource = "learning_loop"
	WeightSourceOperator WeightSource = "operator"
)

// WeightVersion is an immutable weight set plus its review state. The learning
// loop only ever creates proposed versions; activation is an operator action.
type WeightVersion struct {
	Version          int          `json:"version"`
	Weights          WeightSet    `json:"weights"`
	Status           WeightStatus `json:"status"`
	Source           WeightSource `json:"source"`
	Reason           string       `json:"reason,omitempty"`
	CalibrationError *float64     `json:"calibration_error,omitempty"`
	ProjectedError   *float64     `json:"projected_error,omitempty"`
	SampleSize       int          `json:"sample_size"`
	ActivatedBy      string       `json:"activated_by,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	ActivatedAt      *time.Time   `json:"activated_at,omitempty"`
}
