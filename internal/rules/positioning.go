package rules

import (
	"math"
	"strings"

	"goinsight/domain/core"
	"goinsight/domain/insight"
	"goinsight/internal/calculators"
)

// rankingRule describes leaders and laggards across the whole population.
// It only fires when nothing is filtered and enough groups exist.
func rankingRule(th insight.Thresholds) Rule {
	r := Rule{
		ID:       insight.RuleRanking,
		Category: insight.CategoryPositioning,
		Priority: PRIORITY_RANKING,
	}

	r.Evidence = func(in Inputs) (insight.Evidence, error) {
		if in.Context.Scope != insight.ScopeAll {
			return insight.Evidence{}, ErrNotApplicable
		}
		ref, err := in.reference()
		if err != nil {
			return insight.Evidence{}, err
		}
		if len(in.Reference) == 0 {
			return insight.Evidence{}, core.ErrEmptyDataset
		}

		sorted := calculators.SortByPerformance(in.Reference, in.Config.EffectiveDirection())
		top, bottom := sorted[0], sorted[len(sorted)-1]

		topPct, err := calculators.PctGap(top.Value, ref)
		if err != nil {
			return insight.Evidence{}, err
		}
		bottomPct, err := calculators.PctGap(bottom.Value, ref)
		if err != nil {
			return insight.Evidence{}, err
		}

		ev := sufficient()
		ev.Group = top.Group
		ev.Value = insight.Float(top.Value)
		ev.Reference = insight.Float(ref)
		ev.ArithmeticMean = in.ReferenceMean
		ev.Rank = insight.Int(1)
		ev.N = insight.Int(len(sorted))
		ev.PctVsReference = insight.Float(topPct)
		ev.Classification = in.Config.Classify(top.Value)
		ev.LowestGroup = bottom.Group
		ev.LowestValue = insight.Float(bottom.Value)
		ev.LowestPct = insight.Float(bottomPct)
		return ev, nil
	}

	r.Applies = func(ctx insight.ViewContext, ev insight.Evidence) bool {
		return ctx.Scope == insight.ScopeAll &&
			ctx.GroupCount >= th.MinRankGroups &&
			ev.IsSufficient() &&
			ev.N != nil && *ev.N >= th.MinRankGroups
	}

	r.Emit = func(ctx insight.ViewContext, ev insight.Evidence) insight.Insight {
		return newInsight(r, insight.SeverityInfo, ev)
	}
	return r
}

// singleEntityRule positions one entity against the reference weighted
// average and its rank within the full reference set.
func singleEntityRule(th insight.Thresholds) Rule {
	r := Rule{
		ID:       insight.RuleSingleEntityPositioning,
		Category: insight.CategoryPositioning,
		Priority: PRIORITY_POSITIONING,
	}

	r.Evidence = func(in Inputs) (insight.Evidence, error) {
		if in.Context.Scope != insight.ScopeSingleEntity {
			return insight.Evidence{}, ErrNotApplicable
		}
		ref, err := in.reference()
		if err != nil {
			return insight.Evidence{}, err
		}

		res, err := calculators.RankAndGap(in.Context.Entity, in.Reference, ref, in.Config.EffectiveDirection())
		if err != nil {
			return insight.Evidence{}, err
		}

		ev := sufficient()
		ev.Group = res.Group
		ev.Value = insight.Float(res.Value)
		ev.Reference = insight.Float(ref)
		ev.ArithmeticMean = in.ReferenceMean
		ev.Rank = insight.Int(res.Rank)
		ev.N = insight.Int(res.N)
		ev.Percentile = insight.Float(res.Percentile)
		ev.PctVsReference = insight.Float(res.PctVsReference)
		ev.Classification = in.Config.Classify(res.Value)
		ev.Side = sideOf(res.PctVsReference, in.Config.EffectiveDirection())
		return ev, nil
	}

	r.Applies = func(ctx insight.ViewContext, ev insight.Evidence) bool {
		return ctx.Scope == insight.ScopeSingleEntity &&
			ev.IsSufficient() &&
			ev.Rank != nil && ev.N != nil &&
			ev.Value != nil && ev.Reference != nil && ev.PctVsReference != nil
	}

	r.Emit = func(ctx insight.ViewContext, ev insight.Evidence) insight.Insight {
		severity := insight.SeverityInfo
		if ev.Side == sideWorse {
			severity = insight.SeverityNotice
			if math.Abs(*ev.PctVsReference) > th.GapPercent {
				severity = insight.SeverityWarning
			}
		}
		return newInsight(r, severity, ev)
	}
	return r
}

// subsetRule compares a filtered slice descriptively with the reference
// average. Subset values are not commensurable with ranks computed over the
// full population, so the rank field is never populated.
func subsetRule(th insight.Thresholds) Rule {
	r := Rule{
		ID:       insight.RuleSubsetDescriptive,
		Category: insight.CategoryPositioning,
		Priority: PRIORITY_POSITIONING,
	}

	r.Evidence = func(in Inputs) (insight.Evidence, error) {
		if in.Context.Scope != insight.ScopeSubset {
			return insight.Evidence{}, ErrNotApplicable
		}
		ref, err := in.reference()
		if err != nil {
			return insight.Evidence{}, err
		}
		value, err := in.view()
		if err != nil {
			return insight.Evidence{}, err
		}
		pct, err := calculators.PctGap(value, ref)
		if err != nil {
			return insight.Evidence{}, err
		}

		ev := sufficient()
		ev.Group = describeSubset(in.Context)
		ev.Value = insight.Float(value)
		ev.Reference = insight.Float(ref)
		ev.PctVsReference = insight.Float(pct)
		ev.SampleSize = insight.Int(len(in.View))
		ev.Classification = in.Config.Classify(value)
		ev.Side = sideOf(pct, in.Config.EffectiveDirection())
		return ev, nil
	}

	r.Applies = func(ctx insight.ViewContext, ev insight.Evidence) bool {
		return ctx.Scope == insight.ScopeSubset &&
			ev.IsSufficient() &&
			ev.Rank == nil &&
			ev.Value != nil && ev.Reference != nil
	}

	r.Emit = func(ctx insight.ViewContext, ev insight.Evidence) insight.Insight {
		ev.Rank = nil
		ev.N = nil
		ev.Percentile = nil
		return newInsight(r, insight.SeverityInfo, ev)
	}
	return r
}

const (
	sideBetter = "better"
	sideWorse  = "worse"
	sideLevel  = "level"
)

// sideOf reports whether a gap is favourable ("better") or adverse ("worse")
// under the metric direction.
func sideOf(pct float64, dir insight.Direction) string {
	switch {
	case pct == 0:
		return sideLevel
	case dir.Adverse(pct):
		return sideWorse
	default:
		return sideBetter
	}
}

func describeSubset(ctx insight.ViewContext) string {
	parts := make([]string, 0, 2)
	if len(ctx.Filters.Entities) > 0 {
		parts = append(parts, strings.Join(ctx.Filters.Entities, ", "))
	}
	if d := ctx.Filters.Describe(); d != "" {
		parts = append(parts, d)
	}
	if len(parts) == 0 {
		return "the selected subset"
	}
	return strings.Join(parts, " / ")
}
