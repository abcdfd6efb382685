package scoring

import (
	"math"

	"github.com/Harshitk-cp/veritas/internal/domain"
)

// Sample pairs the prediction recorded at use time with the observed outcome.
type Sample struct {
	Factors   domain.FactorScores
	Predicted float64
	Actual    float64
}

// SamplesFromOutcomes keeps outcomes that carry a factor snapshot.
func SamplesFromOutcomes(outcomes []domain.UsageOutcome, fallback domain.WeightSet) []Sample {
	samples := make([]Sample, 0, len(outcomes))
	for _, o := range outcomes {
		if o.FactorsAtUse == nil {
			continue
		}
		predicted := Aggregate(*o.FactorsAtUse, fallback)
		if o.ScoreAtUse != nil {
			predicted = clamp01(*o.ScoreAtUse)
		}
		samples = append(samples, Sample{
			Factors:   *o.FactorsAtUse,
			Predicted: predicted,
			Actual:    o.Outcome.Actual(),
		})
	}
	return samples
}

// Calibrate computes the Brier score, mean absolute error and a reliability
// table with the configured number of equal-width bins.
func (c *Config) Calibrate(samples []Sample) *domain.CalibrationReport {
	nb := c.Learning.Bins
	if nb <= 0 {
		nb = 5
	}
	report := &domain.CalibrationReport{
		SampleSize: len(samples),
		Bins:       make([]domain.CalibrationBin, nb),
	}
	width := 1 / float64(nb)
	for i := range report.Bins {
		report.Bins[i].Lower = float64(i) * width
		report.Bins[i].Upper = float64(i+1) * width
	}
	if len(samples) == 0 {
		return report
	}

	sumPred := make([]float64, nb)
	sumAct := make([]float64, nb)
	var sq, ab float64
	for _, s := range samples {
		d := s.Predicted - s.Actual
		sq += d * d
		ab += math.Abs(d)

		i := int(s.Predicted / width)
		if i >= nb {
			i = nb - 1
		}
		if i < 0 {
			i = 0
		}
		report.Bins[i].Count++
		sumPred[i] += s.Predicted
		sumAct[i] += s.Actual
	}
	n := float64(len(samples))
	report.BrierScore = sq / n
	report.MeanAbsoluteErr = ab / n
	for i := range report.Bins {
		if cnt := report.Bins[i].Count; cnt > 0 {
			report.Bins[i].MeanPredicted = sumPred[i] / float64(cnt)
			report.Bins[i].MeanActual = sumAct[i] / float64(cnt)
		}
	}
	return report
}

// MeanSquaredError of samples scored with w.
func MeanSquaredError(samples []Sample, w domain.WeightSet) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sq float64
	for _, s := range samples {
		d := Aggregate(s.Factors, w) - s.Actual
		sq += d * d
	}
	return sq / float64(len(samples))
}

// ProposeWeights fits weights to the samples by projected gradient descent on
// squared error. Each weight stays within [MinWeight, MaxWeight], moves at
// most MaxStep away from current, and the set sums to 1.
func (c *Config) ProposeWeights(samples []Sample, current domain.WeightSet) domain.WeightSet {
	lc := c.Learning
	cur := current.Vector()
	k := len(cur)

	lo := make([]float64, k)
	hi := make([]float64, k)
	for i, v := range cur {
		lo[i] = math.Min(math.Max(lc.MinWeight, v-lc.MaxStep), v)
		hi[i] = math.Max(math.Min(lc.MaxWeight, v+lc.MaxStep), v)
	}

	w := append([]float64(nil), cur...)
	if len(samples) == 0 {
		return domain.WeightSetFromVector(w)
	}

	xs := make([][]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.Factors.Vector()
		for j := range xs[i] {
			xs[i][j] = clamp01(xs[i][j])
		}
	}

	n := float64(len(samples))
	grad := make([]float64, k)
	for it := 0; it < lc.Iterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		for i, x := range xs {
			pred := 0.0
			for j := range x {
				pred += w[j] * x[j]
			}
			d := pred - samples[i].Actual
			for j := range x {
				grad[j] += 2 * d * x[j] / n
			}
		}
		for j := range w {
			w[j] -= lc.LearningRate * grad[j]
		}
		w = projectBoxSimplex(w, lo, hi)
	}
	return domain.WeightSetFromVector(w)
}

// projectBoxSimplex finds the Euclidean projection of v onto
// {x : lo <= x <= hi, sum(x) = 1} by bisecting the shift lambda.
func projectBoxSimplex(v, lo, hi []float64) []float64 {
	at := func(lambda float64, out []float64) float64 {
		var sum float64
		for i := range v {
			x := math.Min(hi[i], math.Max(lo[i], v[i]-lambda))
			out[i] = x
			sum += x
		}
		return sum
	}

	left, right := math.Inf(1), math.Inf(-1)
	for i := range v {
		left = math.Min(left, v[i]-hi[i])
		right = math.Max(right, v[i]-lo[i])
	}

	out := make([]float64, len(v))
	for it := 0; it < 100; it++ {
		mid := (left + right) / 2
		if at(mid, out) > 1 {
			left = mid
		} else {
			right = mid
		}
	}
	at((left+right)/2, out)
	return out
}
