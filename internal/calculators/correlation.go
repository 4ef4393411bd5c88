package calculators

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"goinsight/domain/core"

	"github.com/montanaflynn/stats"
)

// MinCorrelationSamples is the smallest n for which a coefficient is reported
const MinCorrelationSamples = 5

// CorrelationMethod selects the coefficient
type CorrelationMethod string

const (
	Pearson  CorrelationMethod = "pearson"
	Spearman CorrelationMethod = "spearman"
)

// ParseCorrelationMethod defaults to Pearson for unknown names
func ParseCorrelationMethod(s string) CorrelationMethod {
	if strings.EqualFold(strings.TrimSpace(s), string(Spearman)) {
		return Spearman
	}
	return Pearson
}

// CorrelationResult is a coefficient with its significance
type CorrelationResult struct {
	Method      CorrelationMethod `json:"method"`
	Coefficient float64           `json:"coefficient"`
	PValue      float64           `json:"p_value"`
	N           int               `json:"n"`
	CILower     *float64          `json:"ci_lower,omitempty"`
	CIUpper     *float64          `json:"ci_upper,omitempty"`
}

// Correlation computes a Pearson or Spearman coefficient with a t-based
// p-value. Fewer than MinCorrelationSamples pairs, mismatched lengths, missing
// values or a constant series yield insufficient evidence rather than a
// spurious coefficient.
func Correlation(x, y []float64, method CorrelationMethod) (CorrelationResult, error) {
	if len(x) != len(y) {
		return CorrelationResult{}, core.ErrLengthMismatch
	}
	n := len(x)
	if n < MinCorrelationSamples {
		return CorrelationResult{}, core.NewInsufficientDataError(n, MinCorrelationSamples)
	}
	for i := range x {
		if !finite(x[i]) || !finite(y[i]) {
			return CorrelationResult{}, core.ErrMissingValue
		}
	}
	if isConstant(x) || isConstant(y) {
		return CorrelationResult{}, fmt.Errorf("%w: constant series", core.ErrInsufficientEvidence)
	}

	a, b := x, y
	if method == Spearman {
		a, b = averageRanks(x), averageRanks(y)
	} else {
		method = Pearson
	}

	r, err := stats.Pearson(a, b)
	if err != nil {
		return CorrelationResult{}, fmt.Errorf("%w: %v", core.ErrInsufficientEvidence, err)
	}

	// Clamp to [-1, 1] range (due to floating point precision)
	r = math.Max(-1, math.Min(1, r))

	result := CorrelationResult{
		Method:      method,
		Coefficient: r,
		PValue:      CorrelationPValue(r, n),
		N:           n,
	}
	if lo, hi, ok := CorrelationConfidenceInterval(r, n, 0.95); ok {
		result.CILower = &lo
		result.CIUpper = &hi
	}
	return result, nil
}

// averageRanks converts values to 1-based ranks, averaging ties
func averageRanks(data []float64) []float64 {
	n := len(data)

	type pair struct {
		value float64
		index int
	}

	pairs := make([]pair, n)
	for i, val := range data {
		pairs[i] = pair{value: val, index: i}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].value < pairs[j].value
	})

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i + 1
		for j < n && pairs[j].value == pairs[i].value {
			j++
		}

		avgRank := float64(i+1) + float64(j-i-1)/2.0
		for k := i; k < j; k++ {
			ranks[pairs[k].index] = avgRank
		}

		i = j
	}

	return ranks
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
