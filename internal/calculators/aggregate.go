// Package calculators holds the pure statistical building blocks of the
// insight engine. Every function is stateless; configuration such as the
// discount rate arrives as an explicit argument.
package calculators

import (
	"math"

	"goinsight/domain/core"

	"github.com/montanaflynn/stats"
)

// GroupValue is one group's aggregated metric value. Weight is the group's
// denominator (e.g. population) and is used by weighted statistics.
type GroupValue struct {
	Group  string  `json:"group"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight,omitempty"`
}

// WeightedAverage returns Σnumerator / Σdenominator. This is the only correct
// reference value for a rate across differently-sized groups.
func WeightedAverage(numerators, denominators []float64) (float64, error) {
	if len(numerators) == 0 {
		return 0, core.ErrEmptyDataset
	}
	if len(numerators) != len(denominators) {
		return 0, core.ErrLengthMismatch
	}

	var num, den float64
	for i := range numerators {
		if !finite(numerators[i]) || !finite(denominators[i]) {
			return 0, core.ErrMissingValue
		}
		num += numerators[i]
		den += denominators[i]
	}

	if den == 0 {
		return 0, core.ErrZeroDenominator
	}
	return num / den, nil
}

// WeightedMean returns Σ(value·weight) / Σweight
func WeightedMean(values, weights []float64) (float64, error) {
	if len(values) != len(weights) {
		return 0, core.ErrLengthMismatch
	}
	products := make([]float64, len(values))
	for i := range values {
		products[i] = values[i] * weights[i]
	}
	return WeightedAverage(products, weights)
}

// ArithmeticMean is the unweighted mean. It is kept for audit output only:
// it is never a valid reference value for a rate metric.
func ArithmeticMean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, core.ErrEmptyDataset
	}
	for _, v := range values {
		if !finite(v) {
			return 0, core.ErrMissingValue
		}
	}
	return stats.Mean(values)
}

// Values extracts the metric values of a group set
func Values(set []GroupValue) []float64 {
	out := make([]float64, len(set))
	for i, g := range set {
		out[i] = g.Value
	}
	return out
}

// Weights extracts the weights of a group set
func Weights(set []GroupValue) []float64 {
	out := make([]float64, len(set))
	for i, g := range set {
		out[i] = g.Weight
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
