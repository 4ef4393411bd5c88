package engine

import (
	"fmt"
	"math"
	"sort"

	"goinsight/domain/core"
	"goinsight/domain/insight"
	"goinsight/internal/calculators"
)

// aggregation is one set of rows reduced to per-group values
type aggregation struct {
	groups []calculators.GroupValue
	value  *float64
	mean   *float64
	weight float64
	err    error
}

// checkColumns reports the first column the metric needs that the dataset lacks
func checkColumns(ds insight.Dataset, cfg insight.MetricConfig) error {
	needed := []string{cfg.GroupColumn}
	if cfg.IsRate() {
		needed = append(needed, cfg.NumeratorColumn, cfg.DenominatorColumn)
	} else {
		if cfg.ValueColumn == "" {
			return fmt.Errorf("%w: metric %s has neither a value column nor a numerator/denominator pair", core.ErrMissingColumn, cfg.ID)
		}
		needed = append(needed, cfg.ValueColumn)
		if cfg.WeightColumn != "" {
			needed = append(needed, cfg.WeightColumn)
		}
	}
	for _, col := range needed {
		if col == "" || !ds.HasColumn(col) {
			return core.NewMissingColumnError(col)
		}
	}
	return nil
}

// aggregate reduces rows to one value per group. Rate metrics use
// Σnumerator/Σdenominator × scale with the denominator as weight; value
// metrics use the weighted mean of the value column.
func aggregate(ds insight.Dataset, cfg insight.MetricConfig) aggregation {
	if err := checkColumns(ds, cfg); err != nil {
		return aggregation{err: err}
	}
	if len(ds.Rows) == 0 {
		return aggregation{err: core.ErrEmptyDataset}
	}

	type acc struct{ num, den float64 }
	sums := make(map[string]*acc)
	for _, row := range ds.Rows {
		group := row.Attributes[cfg.GroupColumn]
		if group == "" {
			continue
		}
		var num, den float64
		if cfg.IsRate() {
			n, okN := row.Value(cfg.NumeratorColumn)
			d, okD := row.Value(cfg.DenominatorColumn)
			if !okN || !okD {
				continue
			}
			num, den = n, d
		} else {
			v, ok := row.Value(cfg.ValueColumn)
			if !ok {
				continue
			}
			w := 1.0
			if cfg.WeightColumn != "" {
				if w, ok = row.Value(cfg.WeightColumn); !ok || w < 0 {
					continue
				}
			}
			num, den = v*w, w
		}
		a, ok := sums[group]
		if !ok {
			a = &acc{}
			sums[group] = a
		}
		a.num += num
		a.den += den
	}

	groups := make([]string, 0, len(sums))
	for g := range sums {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	scale := 1.0
	if cfg.IsRate() {
		scale = cfg.EffectiveScale()
	}

	out := aggregation{}
	nums := make([]float64, 0, len(groups))
	dens := make([]float64, 0, len(groups))
	for _, g := range groups {
		a := sums[g]
		// A group with no denominator has no defined value
		if a.den <= 0 {
			continue
		}
		out.groups = append(out.groups, calculators.GroupValue{Group: g, Value: a.num / a.den * scale, Weight: a.den})
		nums = append(nums, a.num)
		dens = append(dens, a.den)
		out.weight += a.den
	}
	if len(out.groups) == 0 {
		out.err = core.ErrEmptyDataset
		if len(groups) > 0 {
			out.err = core.ErrZeroDenominator
		}
		return out
	}

	value, err := calculators.WeightedAverage(nums, dens)
	if err != nil {
		out.err = err
		return out
	}
	out.value = insight.Float(value * scale)

	if mean, err := calculators.ArithmeticMean(calculators.Values(out.groups)); err == nil {
		out.mean = insight.Float(mean)
	}
	return out
}

// covariate returns the weighted mean of the covariate column per group,
// aligned with groups. Groups lacking the column get NaN.
func covariate(ds insight.Dataset, cfg insight.MetricConfig, groups []calculators.GroupValue) ([]float64, error) {
	cov := cfg.CorrelateWith
	if cov == nil || cov.Column == "" {
		return nil, core.ErrNoCovariate
	}
	if !ds.HasColumn(cov.Column) {
		return nil, core.NewMissingColumnError(cov.Column)
	}

	values := make(map[string][]float64)
	weights := make(map[string][]float64)
	for _, row := range ds.Rows {
		group := row.Attributes[cfg.GroupColumn]
		c, ok := row.Value(cov.Column)
		if group == "" || !ok {
			continue
		}
		w := 1.0
		switch {
		case cfg.IsRate():
			if w, ok = row.Value(cfg.DenominatorColumn); !ok {
				continue
			}
		case cfg.WeightColumn != "":
			if w, ok = row.Value(cfg.WeightColumn); !ok {
				continue
			}
		}
		values[group] = append(values[group], c)
		weights[group] = append(weights[group], w)
	}

	out := make([]float64, len(groups))
	for i, gv := range groups {
		mean, err := calculators.WeightedMean(values[gv.Group], weights[gv.Group])
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = mean
	}
	return out, nil
}
