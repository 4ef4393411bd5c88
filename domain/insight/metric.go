package insight

import (
	"sort"
)

// RuleID names one variant of the closed rule set
type RuleID string

const (
	RuleRanking                 RuleID = "ranking"
	RuleSingleEntityPositioning RuleID = "single_entity_positioning"
	RuleSubsetDescriptive       RuleID = "subset_descriptive"
	RuleCorrelation             RuleID = "correlation"
	RuleOutlier                 RuleID = "outlier"
	RuleGapToInvestment         RuleID = "gap_to_investment"
	RuleVariation               RuleID = "variation"
	RuleContextDisclaimer       RuleID = "context_disclaimer"
)

// Direction states which end of the metric is desirable
type Direction string

const (
	HigherIsBetter Direction = "higher"
	LowerIsBetter  Direction = "lower"
)

// Better reports whether a outperforms b under this direction
func (d Direction) Better(a, b float64) bool {
	if d == LowerIsBetter {
		return a < b
	}
	return a > b
}

// Adverse reports whether a signed percentage gap is unfavourable
func (d Direction) Adverse(pct float64) bool {
	if d == LowerIsBetter {
		return pct > 0
	}
	return pct < 0
}

// MetricConfig is the declarative description of one analyzable metric.
// The engine never mutates it.
type MetricConfig struct {
	ID                string           `json:"id" yaml:"id"`
	Name              string           `json:"name" yaml:"name"`
	GroupColumn       string           `json:"group_column" yaml:"group_column"`
	GroupLabel        string           `json:"group_label,omitempty" yaml:"group_label,omitempty"`
	ValueColumn       string           `json:"value_column,omitempty" yaml:"value_column,omitempty"`
	WeightColumn      string           `json:"weight_column,omitempty" yaml:"weight_column,omitempty"`
	NumeratorColumn   string           `json:"numerator_column,omitempty" yaml:"numerator_column,omitempty"`
	DenominatorColumn string           `json:"denominator_column,omitempty" yaml:"denominator_column,omitempty"`
	Scale             float64          `json:"scale,omitempty" yaml:"scale,omitempty"`
	Unit              string           `json:"unit" yaml:"unit"`
	Direction         Direction        `json:"direction" yaml:"direction"`
	Thresholds        Thresholds       `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Bands             []Band           `json:"bands,omitempty" yaml:"bands,omitempty"`
	Rules             []RuleID         `json:"rules" yaml:"rules"`
	CorrelateWith     *CorrelationSpec `json:"correlate_with,omitempty" yaml:"correlate_with,omitempty"`
	CostModel         *CostModel       `json:"cost_model,omitempty" yaml:"cost_model,omitempty"`
	Sources           []Source         `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// IsRate reports whether the metric is a numerator/denominator rate
func (m MetricConfig) IsRate() bool {
	return m.NumeratorColumn != "" && m.DenominatorColumn != ""
}

// EffectiveScale returns the per-unit scale, defaulting to 1
func (m MetricConfig) EffectiveScale() float64 {
	if m.Scale == 0 {
		return 1
	}
	return m.Scale
}

// EffectiveDirection defaults to higher-is-better
func (m MetricConfig) EffectiveDirection() Direction {
	if m.Direction == LowerIsBetter {
		return LowerIsBetter
	}
	return HigherIsBetter
}

// GroupNoun returns the label used for groups in narrative text
func (m MetricConfig) GroupNoun() string {
	if m.GroupLabel != "" {
		return m.GroupLabel
	}
	return m.GroupColumn
}

// Classify returns the label of the highest band whose minimum the value
// reaches, or "" when no bands are configured.
func (m MetricConfig) Classify(value float64) string {
	if len(m.Bands) == 0 {
		return ""
	}
	bands := append([]Band(nil), m.Bands...)
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].Min > bands[j].Min })
	for _, b := range bands {
		if value >= b.Min {
			return b.Label
		}
	}
	return bands[len(bands)-1].Label
}

// Thresholds are the per-metric evidence gates. Zero values fall back to
// the rule set defaults.
type Thresholds struct {
	GapPercent      float64 `json:"gap_percent,omitempty" yaml:"gap_percent,omitempty"`
	OutlierMultiple float64 `json:"outlier_multiple,omitempty" yaml:"outlier_multiple,omitempty"`
	VariationCV     float64 `json:"variation_cv,omitempty" yaml:"variation_cv,omitempty"`
	Alpha           float64 `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	MinSampleSize   int     `json:"min_sample_size,omitempty" yaml:"min_sample_size,omitempty"`
	MinRankGroups   int     `json:"min_rank_groups,omitempty" yaml:"min_rank_groups,omitempty"`
}

// Band is one classification threshold, e.g. {Label: "high", Min: 10}
type Band struct {
	Label string  `json:"label" yaml:"label"`
	Min   float64 `json:"min" yaml:"min"`
}

// CorrelationSpec names the paired column a metric is correlated against
type CorrelationSpec struct {
	Column string `json:"column" yaml:"column"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
	Method string `json:"method,omitempty" yaml:"method,omitempty"`
}

// CostModel prices closing a gap. Amounts are per unit of the numerator
// (e.g. one route) in the currency of the sources.
type CostModel struct {
	UnitLabel           string  `json:"unit_label" yaml:"unit_label"`
	CapitalCost         float64 `json:"capital_cost" yaml:"capital_cost"`
	AnnualOperatingCost float64 `json:"annual_operating_cost" yaml:"annual_operating_cost"`
	AnnualBenefit       float64 `json:"annual_benefit" yaml:"annual_benefit"`
	Currency            string  `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// Source is a data-source citation
type Source struct {
	Name      string `json:"name" yaml:"name"`
	Publisher string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Year      int    `json:"year,omitempty" yaml:"year,omitempty"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
}
