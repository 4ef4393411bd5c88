package rules

import (
	"math"

	"goinsight/domain/core"
	"goinsight/domain/insight"
	"goinsight/internal/calculators"
)

// correlationRule reports an association between the metric and a paired
// covariate. Fewer than the minimum sample or p >= alpha emits nothing.
func correlationRule(th insight.Thresholds) Rule {
	r := Rule{
		ID:       insight.RuleCorrelation,
		Category: insight.CategoryRelationship,
		Priority: PRIORITY_CORRELATION,
	}

	r.Evidence = func(in Inputs) (insight.Evidence, error) {
		cov := in.Config.CorrelateWith
		if cov == nil || cov.Column == "" {
			return insight.Evidence{}, core.ErrNoCovariate
		}
		if in.CovariateErr != nil {
			return insight.Evidence{}, in.CovariateErr
		}
		if len(in.Covariate) != len(in.View) {
			return insight.Evidence{}, core.ErrLengthMismatch
		}

		// Groups without a covariate value drop out of the pairing
		x := make([]float64, 0, len(in.View))
		y := make([]float64, 0, len(in.View))
		for i, gv := range in.View {
			c := in.Covariate[i]
			if math.IsNaN(c) || math.IsInf(c, 0) {
				continue
			}
			x = append(x, c)
			y = append(y, gv.Value)
		}
		if len(x) < th.MinSampleSize {
			return insight.Evidence{}, core.NewInsufficientDataError(len(x), th.MinSampleSize)
		}

		res, err := calculators.Correlation(x, y, calculators.ParseCorrelationMethod(cov.Method))
		if err != nil {
			return insight.Evidence{}, err
		}

		label := cov.Label
		if label == "" {
			label = cov.Column
		}

		ev := sufficient()
		ev.Covariate = label
		ev.Method = string(res.Method)
		ev.Coefficient = insight.Float(res.Coefficient)
		ev.PValue = insight.Float(res.PValue)
		ev.SampleSize = insight.Int(res.N)
		ev.EffectSize = insight.Float(res.Coefficient * res.Coefficient)
		return ev, nil
	}

	r.Applies = func(ctx insight.ViewContext, ev insight.Evidence) bool {
		return ev.IsSufficient() &&
			ev.SampleSize != nil && *ev.SampleSize >= th.MinSampleSize &&
			ev.PValue != nil && *ev.PValue < th.Alpha &&
			ev.Coefficient != nil
	}

	r.Emit = func(ctx insight.ViewContext, ev insight.Evidence) insight.Insight {
		return newInsight(r, insight.SeverityNotice, ev)
	}
	return r
}
