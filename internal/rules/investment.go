package rules

import (
	"fmt"
	"math"

	"goinsight/domain/core"
	"goinsight/domain/insight"
	"goinsight/internal/calculators"
)

// gapToInvestmentRule prices closing an adverse gap to the reference and
// reports the benefit-cost ratio. It needs a rate metric with a cost model.
func gapToInvestmentRule(th insight.Thresholds) Rule {
	r := Rule{
		ID:       insight.RuleGapToInvestment,
		Category: insight.CategoryInvestment,
		Priority: PRIORITY_GAP_TO_INVESTMENT,
	}

	r.Evidence = func(in Inputs) (insight.Evidence, error) {
		cost := in.Config.CostModel
		if cost == nil {
			return insight.Evidence{}, core.ErrNoCostModel
		}
		if !in.Config.IsRate() {
			return insight.Evidence{}, fmt.Errorf("%w: investment appraisal needs a rate metric", core.ErrNoCostModel)
		}
		ref, err := in.reference()
		if err != nil {
			return insight.Evidence{}, err
		}

		target, err := investmentTarget(in)
		if err != nil {
			return insight.Evidence{}, err
		}
		pct, err := calculators.PctGap(target.Value, ref)
		if err != nil {
			return insight.Evidence{}, err
		}

		ev := sufficient()
		ev.Group = target.Group
		ev.Value = insight.Float(target.Value)
		ev.Reference = insight.Float(ref)
		ev.PctVsReference = insight.Float(pct)
		ev.Side = sideOf(pct, in.Config.EffectiveDirection())
		ev.DiscountRate = insight.Float(in.Appraisal.DiscountRate)
		ev.HorizonYears = insight.Int(in.Appraisal.HorizonYears)

		// Units of the numerator needed to bring the target level with the
		// reference at its current denominator.
		units := math.Abs(ref-target.Value) / in.Config.EffectiveScale() * target.Weight
		ev.UnitsNeeded = insight.Float(units)

		operating, err := calculators.PresentValue(units*cost.AnnualOperatingCost, in.Appraisal)
		if err != nil {
			return insight.Evidence{}, err
		}
		benefit, err := calculators.PresentValue(units*cost.AnnualBenefit, in.Appraisal)
		if err != nil {
			return insight.Evidence{}, err
		}
		costPV := units*cost.CapitalCost + operating
		ev.CostPV = insight.Float(costPV)
		ev.BenefitPV = insight.Float(benefit)

		if bcr, err := calculators.CostBenefitRatio(benefit, costPV, in.Appraisal.Bands); err == nil {
			ev.BenefitCostRatio = insight.Float(bcr.Ratio)
			ev.BCRBand = bcr.Band
		}
		return ev, nil
	}

	r.Applies = func(ctx insight.ViewContext, ev insight.Evidence) bool {
		return ev.IsSufficient() &&
			ev.Side == sideWorse &&
			ev.PctVsReference != nil && math.Abs(*ev.PctVsReference) > th.GapPercent &&
			ev.CostPV != nil && *ev.CostPV > 0 &&
			ev.BenefitCostRatio != nil
	}

	r.Emit = func(ctx insight.ViewContext, ev insight.Evidence) insight.Insight {
		return newInsight(r, insight.SeverityWarning, ev)
	}
	return r
}

// investmentTarget picks the group whose gap is appraised: the selected
// entity, the filtered view, or the worst performer when nothing is filtered.
func investmentTarget(in Inputs) (calculators.GroupValue, error) {
	switch in.Context.Scope {
	case insight.ScopeSingleEntity:
		for _, gv := range in.Reference {
			if gv.Group == in.Context.Entity {
				return gv, nil
			}
		}
		return calculators.GroupValue{}, core.NewGroupNotFoundError(in.Context.Entity)
	case insight.ScopeSubset:
		value, err := in.view()
		if err != nil {
			return calculators.GroupValue{}, err
		}
		return calculators.GroupValue{Group: describeSubset(in.Context), Value: value, Weight: in.ViewWeight}, nil
	default:
		if len(in.Reference) == 0 {
			return calculators.GroupValue{}, core.ErrEmptyDataset
		}
		sorted := calculators.SortByPerformance(in.Reference, in.Config.EffectiveDirection())
		return sorted[len(sorted)-1], nil
	}
}
