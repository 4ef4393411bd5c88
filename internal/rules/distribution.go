package rules

import (
	"sort"

	"goinsight/domain/core"
	"goinsight/domain/insight"
	"goinsight/internal/calculators"
)

const (
	sideHigh = "high"
	sideLow  = "low"
)

// outlierRule flags an extreme group whose value is more than a configured
// multiple of the next comparable value.
func outlierRule(th insight.Thresholds) Rule {
	r := Rule{
		ID:       insight.RuleOutlier,
		Category: insight.CategoryDistribution,
		Priority: PRIORITY_OUTLIER,
	}

	r.Evidence = func(in Inputs) (insight.Evidence, error) {
		set := in.comparableSet()
		if len(set) < MIN_DISTRIBUTION_GROUPS {
			return insight.Evidence{}, core.NewInsufficientDataError(len(set), MIN_DISTRIBUTION_GROUPS)
		}

		// Ascending by value, ties by group, independent of direction
		sorted := append([]calculators.GroupValue(nil), set...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Value != sorted[j].Value {
				return sorted[i].Value < sorted[j].Value
			}
			return sorted[i].Group < sorted[j].Group
		})

		n := len(sorted)
		high, nextHigh := sorted[n-1], sorted[n-2]
		low, nextLow := sorted[0], sorted[1]

		var highRatio, lowRatio float64
		if nextHigh.Value > 0 {
			highRatio = high.Value / nextHigh.Value
		}
		if low.Value > 0 {
			lowRatio = nextLow.Value / low.Value
		}
		if highRatio == 0 && lowRatio == 0 {
			return insight.Evidence{}, core.ErrZeroDenominator
		}

		ev := sufficient()
		ev.SampleSize = insight.Int(n)
		if highRatio >= lowRatio {
			ev.Side = sideHigh
			ev.Group, ev.Value = high.Group, insight.Float(high.Value)
			ev.NextGroup, ev.NextValue = nextHigh.Group, insight.Float(nextHigh.Value)
			ev.OutlierRatio = insight.Float(highRatio)
		} else {
			ev.Side = sideLow
			ev.Group, ev.Value = low.Group, insight.Float(low.Value)
			ev.NextGroup, ev.NextValue = nextLow.Group, insight.Float(nextLow.Value)
			ev.OutlierRatio = insight.Float(lowRatio)
		}

		if ref, err := in.reference(); err == nil {
			ev.Reference = insight.Float(ref)
			if pct, err := calculators.PctGap(*ev.Value, ref); err == nil {
				ev.PctVsReference = insight.Float(pct)
			}
		}
		return ev, nil
	}

	r.Applies = func(ctx insight.ViewContext, ev insight.Evidence) bool {
		if !ev.IsSufficient() || ev.OutlierRatio == nil || *ev.OutlierRatio <= th.OutlierMultiple {
			return false
		}
		// A single-entity view only reports on the selected entity
		if ctx.Scope == insight.ScopeSingleEntity && ev.Group != ctx.Entity {
			return false
		}
		return true
	}

	r.Emit = func(ctx insight.ViewContext, ev insight.Evidence) insight.Insight {
		return newInsight(r, insight.SeverityNotice, ev)
	}
	return r
}

// variationRule reports when the spread between groups is wide, using the
// coefficient of variation as the gate and a weighted Gini as context.
func variationRule(th insight.Thresholds) Rule {
	r := Rule{
		ID:       insight.RuleVariation,
		Category: insight.CategoryDistribution,
		Priority: PRIORITY_VARIATION,
	}

	r.Evidence = func(in Inputs) (insight.Evidence, error) {
		set := in.comparableSet()
		if len(set) < MIN_DISTRIBUTION_GROUPS {
			return insight.Evidence{}, core.NewInsufficientDataError(len(set), MIN_DISTRIBUTION_GROUPS)
		}

		values := calculators.Values(set)
		cv, err := calculators.CoefficientOfVariation(values)
		if err != nil {
			return insight.Evidence{}, err
		}
		gini, err := calculators.Gini(values, calculators.Weights(set))
		if err != nil {
			return insight.Evidence{}, err
		}

		sorted := calculators.SortByPerformance(set, in.Config.EffectiveDirection())
		best, worst := sorted[0], sorted[len(sorted)-1]

		ev := sufficient()
		ev.CV = insight.Float(cv)
		ev.Gini = insight.Float(gini)
		ev.SampleSize = insight.Int(len(set))
		ev.Group, ev.Value = best.Group, insight.Float(best.Value)
		ev.LowestGroup, ev.LowestValue = worst.Group, insight.Float(worst.Value)
		if ref, err := in.reference(); err == nil {
			ev.Reference = insight.Float(ref)
		}
		return ev, nil
	}

	r.Applies = func(ctx insight.ViewContext, ev insight.Evidence) bool {
		return ev.IsSufficient() && ev.CV != nil && *ev.CV > th.VariationCV
	}

	r.Emit = func(ctx insight.ViewContext, ev insight.Evidence) insight.Insight {
		return newInsight(r, insight.SeverityNotice, ev)
	}
	return r
}
