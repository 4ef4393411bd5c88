// Package rules is the closed set of insight rules. Each variant is a pure
// (Evidence, Applies, Emit) triple built by Lookup; adding behaviour means
// adding a variant here and registering it in Lookup.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"goinsight/domain/core"
	"goinsight/domain/insight"
	"goinsight/internal/calculators"
)

// ErrNotApplicable marks a rule whose preconditions do not hold in the
// current context. It is not a failure and is audited separately.
var ErrNotApplicable = errors.New("rule not applicable in this context")

// Inputs are the precomputed aggregates every rule draws on.
type Inputs struct {
	Context   insight.ViewContext
	Config    insight.MetricConfig
	Appraisal calculators.Appraisal

	// Reference is the full, unfiltered set of groups.
	Reference      []calculators.GroupValue
	ReferenceValue *float64
	ReferenceMean  *float64
	ReferenceErr   error

	// View holds the groups aggregated from the filtered rows only.
	View       []calculators.GroupValue
	ViewValue  *float64
	ViewWeight float64
	ViewErr    error

	// Covariate is aligned index-by-index with View.
	Covariate    []float64
	CovariateErr error
}

func (in Inputs) reference() (float64, error) {
	if in.ReferenceErr != nil {
		return 0, in.ReferenceErr
	}
	if in.ReferenceValue == nil {
		return 0, fmt.Errorf("%w: reference value", core.ErrMissingValue)
	}
	return *in.ReferenceValue, nil
}

func (in Inputs) view() (float64, error) {
	if in.ViewErr != nil {
		return 0, in.ViewErr
	}
	if in.ViewValue == nil {
		return 0, fmt.Errorf("%w: view value", core.ErrMissingValue)
	}
	return *in.ViewValue, nil
}

// comparableSet returns the groups a distribution rule inspects: the view
// under subset scope, the reference set otherwise.
func (in Inputs) comparableSet() []calculators.GroupValue {
	if in.Context.Scope == insight.ScopeSubset {
		return in.View
	}
	return in.Reference
}

// Rule is one tagged variant of the rule set
type Rule struct {
	ID       insight.RuleID
	Category insight.Category
	Priority int

	// Evidence gathers the facts the rule needs from the calculators
	Evidence func(in Inputs) (insight.Evidence, error)
	// Applies is the evidence gate
	Applies func(ctx insight.ViewContext, ev insight.Evidence) bool
	// Emit builds the insight; text is filled in by the renderer
	Emit func(ctx insight.ViewContext, ev insight.Evidence) insight.Insight
}

// WithDefaults fills zero thresholds with the package defaults
func WithDefaults(t insight.Thresholds) insight.Thresholds {
	if t.GapPercent <= 0 {
		t.GapPercent = DEFAULT_GAP_PERCENT
	}
	if t.OutlierMultiple <= 1 {
		t.OutlierMultiple = DEFAULT_OUTLIER_MULTIPLE
	}
	if t.VariationCV <= 0 {
		t.VariationCV = DEFAULT_VARIATION_CV
	}
	if t.Alpha <= 0 || t.Alpha >= 1 {
		t.Alpha = DEFAULT_ALPHA
	}
	if t.MinSampleSize < MIN_CORRELATION_SAMPLES {
		t.MinSampleSize = MIN_CORRELATION_SAMPLES
	}
	if t.MinRankGroups < MIN_RANK_GROUPS {
		t.MinRankGroups = MIN_RANK_GROUPS
	}
	return t
}

// Lookup returns the configured variant for a rule id
func Lookup(id insight.RuleID, thresholds insight.Thresholds) (Rule, error) {
	th := WithDefaults(thresholds)

	switch insight.RuleID(strings.ToLower(strings.TrimSpace(string(id)))) {
	case insight.RuleRanking:
		return rankingRule(th), nil
	case insight.RuleSingleEntityPositioning:
		return singleEntityRule(th), nil
	case insight.RuleSubsetDescriptive:
		return subsetRule(th), nil
	case insight.RuleCorrelation:
		return correlationRule(th), nil
	case insight.RuleOutlier:
		return outlierRule(th), nil
	case insight.RuleGapToInvestment:
		return gapToInvestmentRule(th), nil
	case insight.RuleVariation:
		return variationRule(th), nil
	default:
		return Rule{}, fmt.Errorf("%w: %s", core.ErrUnknownRule, id)
	}
}

// Catalog lists every configurable rule id in a stable order
func Catalog() []insight.RuleID {
	return []insight.RuleID{
		insight.RuleRanking,
		insight.RuleSingleEntityPositioning,
		insight.RuleSubsetDescriptive,
		insight.RuleCorrelation,
		insight.RuleOutlier,
		insight.RuleGapToInvestment,
		insight.RuleVariation,
	}
}

func newInsight(r Rule, severity insight.Severity, ev insight.Evidence) insight.Insight {
	return insight.Insight{
		RuleID:   r.ID,
		Category: r.Category,
		Severity: severity,
		Priority: r.Priority,
		Evidence: ev,
	}
}

func sufficient() insight.Evidence {
	return insight.Evidence{Status: insight.EvidenceSufficient}
}
