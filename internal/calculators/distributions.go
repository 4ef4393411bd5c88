package calculators

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TTestPValue computes the two-tailed p-value of a t statistic using
// Student's t-distribution.
func TTestPValue(tStatistic float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 || math.IsNaN(tStatistic) {
		return 1.0
	}
	if math.IsInf(tStatistic, 0) {
		return 0
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(degreesOfFreedom)}
	return 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
}

// CorrelationPValue computes the p-value for a correlation coefficient under
// the null hypothesis of no association.
func CorrelationPValue(correlation float64, sampleSize int) float64 {
	if sampleSize < 3 {
		return 1.0
	}

	// Transform correlation to t-statistic
	df := sampleSize - 2
	denom := 1 - correlation*correlation
	if denom <= 0 {
		return 0
	}
	tStatistic := correlation * math.Sqrt(float64(df)/denom)

	return TTestPValue(tStatistic, df)
}

// CorrelationConfidenceInterval returns the Fisher-z interval for r.
// Undefined for n <= 3, in which case ok is false.
func CorrelationConfidenceInterval(r float64, n int, confidenceLevel float64) (lower, upper float64, ok bool) {
	if n <= 3 || math.Abs(r) >= 1 {
		return 0, 0, false
	}

	z := math.Atanh(r)
	se := 1 / math.Sqrt(float64(n-3))
	zCrit := distuv.UnitNormal.Quantile(1 - (1-confidenceLevel)/2)

	return math.Tanh(z - zCrit*se), math.Tanh(z + zCrit*se), true
}
