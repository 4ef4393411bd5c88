package calculators

import (
	"fmt"
	"math"
	"sort"

	"goinsight/domain/core"
)

// BCRBand labels benefit-cost ratios at or above Min
type BCRBand struct {
	Label string  `json:"label" yaml:"label"`
	Min   float64 `json:"min" yaml:"min"`
}

// Appraisal carries the time-value-of-money settings of an economic
// appraisal. It is passed explicitly to every calculator that needs it.
type Appraisal struct {
	DiscountRate float64   `json:"discount_rate" yaml:"discount_rate"`
	HorizonYears int       `json:"horizon_years" yaml:"horizon_years"`
	Bands        []BCRBand `json:"bands" yaml:"bands"`
}

// DefaultBCRBands returns a fresh copy of the standard qualitative bands
func DefaultBCRBands() []BCRBand {
	return []BCRBand{
		{Label: "very_high", Min: 3.0},
		{Label: "high", Min: 2.0},
		{Label: "medium", Min: 1.5},
		{Label: "low", Min: 1.0},
		{Label: "poor", Min: 0},
	}
}

// DefaultAppraisal discounts at 3.5% over 30 years with the standard bands
func DefaultAppraisal() Appraisal {
	return Appraisal{DiscountRate: 0.035, HorizonYears: 30, Bands: DefaultBCRBands()}
}

// Validate checks that the appraisal settings are usable
func (a Appraisal) Validate() error {
	if a.HorizonYears <= 0 {
		return fmt.Errorf("appraisal horizon must be positive, got %d", a.HorizonYears)
	}
	if a.DiscountRate <= -1 || !finite(a.DiscountRate) {
		return fmt.Errorf("invalid discount rate %v", a.DiscountRate)
	}
	return nil
}

// AnnuityFactor returns Σ_{t=1..H} 1/(1+r)^t
func AnnuityFactor(a Appraisal) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if a.DiscountRate == 0 {
		return float64(a.HorizonYears), nil
	}
	r := a.DiscountRate
	return (1 - math.Pow(1+r, -float64(a.HorizonYears))) / r, nil
}

// PresentValue discounts a constant annual flow over the appraisal horizon
func PresentValue(annual float64, a Appraisal) (float64, error) {
	if !finite(annual) {
		return 0, core.ErrMissingValue
	}
	factor, err := AnnuityFactor(a)
	if err != nil {
		return 0, err
	}
	return annual * factor, nil
}

// BenefitCostResult is a ratio with its qualitative band
type BenefitCostResult struct {
	Ratio float64 `json:"ratio"`
	Band  string  `json:"band"`
}

// CostBenefitRatio divides present-value benefits by present-value costs
// and labels the ratio with the highest band it reaches.
func CostBenefitRatio(benefitPV, costPV float64, bands []BCRBand) (BenefitCostResult, error) {
	if !finite(benefitPV) || !finite(costPV) {
		return BenefitCostResult{}, core.ErrMissingValue
	}
	if costPV <= 0 {
		return BenefitCostResult{}, core.ErrZeroDenominator
	}

	ratio := benefitPV / costPV
	return BenefitCostResult{Ratio: ratio, Band: bandFor(ratio, bands)}, nil
}

func bandFor(ratio float64, bands []BCRBand) string {
	if len(bands) == 0 {
		bands = DefaultBCRBands()
	}
	sorted := append([]BCRBand(nil), bands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min > sorted[j].Min })
	for _, b := range sorted {
		if ratio >= b.Min {
			return b.Label
		}
	}
	return sorted[len(sorted)-1].Label
}
