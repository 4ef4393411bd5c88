package calculators

import (
	"fmt"
	"math"
	"sort"

	"goinsight/domain/core"

	"github.com/montanaflynn/stats"
)

// Gini computes the weighted inequality coefficient from the Lorenz curve of
// values weighted by weights (e.g. per-capita rates weighted by population).
// The result lies in [0, 1].
func Gini(values, weights []float64) (float64, error) {
	if len(values) == 0 {
		return 0, core.ErrEmptyDataset
	}
	if len(values) != len(weights) {
		return 0, core.ErrLengthMismatch
	}

	var totalWeight, totalMass float64
	for i := range values {
		if !finite(values[i]) || !finite(weights[i]) {
			return 0, core.ErrMissingValue
		}
		if values[i] < 0 || weights[i] < 0 {
			return 0, fmt.Errorf("%w: negative input", core.ErrInsufficientEvidence)
		}
		totalWeight += weights[i]
		totalMass += values[i] * weights[i]
	}
	if totalWeight == 0 {
		return 0, core.ErrZeroDenominator
	}
	if totalMass == 0 {
		return 0, nil
	}

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	// G = 1 - Σ (P_i - P_{i-1}) (L_i + L_{i-1})
	var prevP, prevL, cumWeight, cumMass, area float64
	for _, idx := range order {
		cumWeight += weights[idx]
		cumMass += values[idx] * weights[idx]
		p := cumWeight / totalWeight
		l := cumMass / totalMass
		area += (p - prevP) * (l + prevL)
		prevP, prevL = p, l
	}

	return math.Max(0, math.Min(1, 1-area)), nil
}

// CoefficientOfVariation returns population stddev / |mean|
func CoefficientOfVariation(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, core.NewInsufficientDataError(len(values), 2)
	}
	mean, err := ArithmeticMean(values)
	if err != nil {
		return 0, err
	}
	if mean == 0 {
		return 0, core.ErrZeroDenominator
	}
	sd, err := stats.StandardDeviationPopulation(values)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInsufficientEvidence, err)
	}
	return sd / math.Abs(mean), nil
}
