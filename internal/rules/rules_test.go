package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goinsight/domain/core"
	"goinsight/domain/insight"
	"goinsight/internal/calculators"
	"goinsight/internal/testkit"
)

var (
	regionRates   = []float64{12.40, 10.20, 9.15, 8.60, 7.95, 6.71, 5.80, 4.90, 5.68}
	regionWeights = []float64{10e6, 20e6, 10e6, 30e6, 20e6, 20e6, 10e6, 20e6, 10e6}
	regionDensity = []float64{410, 350, 300, 280, 240, 200, 150, 120, 140}
)

func regionSet() []calculators.GroupValue {
	set := make([]calculators.GroupValue, len(regionRates))
	for i, g := range testkit.Regions {
		set[i] = calculators.GroupValue{Group: g, Value: regionRates[i], Weight: regionWeights[i]}
	}
	return set
}

func testAppraisal() calculators.Appraisal {
	return calculators.Appraisal{DiscountRate: 0.06, HorizonYears: 20, Bands: calculators.DefaultBCRBands()}
}

func inputsFor(ctx insight.ViewContext) Inputs {
	ref := 7.89
	mean := 7.932
	in := Inputs{
		Context:        ctx,
		Config:         testkit.TransitMetric(),
		Appraisal:      testAppraisal(),
		Reference:      regionSet(),
		ReferenceValue: &ref,
		ReferenceMean:  &mean,
		View:           regionSet(),
		ViewValue:      &ref,
		ViewWeight:     150e6,
		Covariate:      append([]float64(nil), regionDensity...),
	}
	if ctx.Scope == insight.ScopeSingleEntity {
		for i, g := range testkit.Regions {
			if g == ctx.Entity {
				in.View = []calculators.GroupValue{{Group: g, Value: regionRates[i], Weight: regionWeights[i]}}
				in.ViewValue = insight.Float(regionRates[i])
				in.ViewWeight = regionWeights[i]
				in.Covariate = []float64{regionDensity[i]}
			}
		}
	}
	return in
}

func allContext() insight.ViewContext {
	return insight.ViewContext{Scope: insight.ScopeAll, GroupKey: "region", GroupCount: 9, ReferenceGroupCount: 9}
}

func singleContext(entity string) insight.ViewContext {
	return insight.ViewContext{
		Scope: insight.ScopeSingleEntity, GroupKey: "region", GroupCount: 1, ReferenceGroupCount: 9,
		Entity: entity, Filters: insight.Filters{Entities: []string{entity}},
	}
}

func subsetContext() insight.ViewContext {
	return insight.ViewContext{
		Scope: insight.ScopeSubset, GroupKey: "region", GroupCount: 1, ReferenceGroupCount: 9,
		Filters: insight.Filters{Entities: []string{"F"}, Subsets: map[string][]string{"area_type": {"urban"}}},
	}
}

// evaluate runs one rule the way the engine does
func evaluate(t *testing.T, id insight.RuleID, in Inputs) (insight.Evidence, bool, error) {
	t.Helper()
	rule, err := Lookup(id, in.Config.Thresholds)
	require.NoError(t, err)
	ev, err := rule.Evidence(in)
	if err != nil {
		return ev, false, err
	}
	return ev, rule.Applies(in.Context, ev), nil
}

func TestLookup(t *testing.T) {
	for _, id := range Catalog() {
		rule, err := Lookup(id, insight.Thresholds{})
		require.NoError(t, err, id)
		assert.Equal(t, id, rule.ID)
		assert.NotNil(t, rule.Evidence)
		assert.NotNil(t, rule.Applies)
		assert.NotNil(t, rule.Emit)
	}

	rule, err := Lookup(" Ranking ", insight.Thresholds{})
	require.NoError(t, err)
	assert.Equal(t, insight.RuleRanking, rule.ID)

	_, err = Lookup("sentiment", insight.Thresholds{})
	assert.ErrorIs(t, err, core.ErrUnknownRule)
}

func TestWithDefaults(t *testing.T) {
	th := WithDefaults(insight.Thresholds{MinSampleSize: 2, Alpha: 1.5})
	assert.Equal(t, MIN_CORRELATION_SAMPLES, th.MinSampleSize, "sample floor cannot be lowered")
	assert.Equal(t, DEFAULT_ALPHA, th.Alpha)
	assert.Equal(t, DEFAULT_GAP_PERCENT, th.GapPercent)

	th = WithDefaults(insight.Thresholds{MinSampleSize: 8, GapPercent: 10})
	assert.Equal(t, 8, th.MinSampleSize)
	assert.Equal(t, 10.0, th.GapPercent)
}

func TestRanking(t *testing.T) {
	ev, applies, err := evaluate(t, insight.RuleRanking, inputsFor(allContext()))
	require.NoError(t, err)
	assert.True(t, applies)
	assert.Equal(t, "A", ev.Group)
	assert.Equal(t, 1, *ev.Rank)
	assert.Equal(t, 9, *ev.N)
	assert.Equal(t, "H", ev.LowestGroup)
	assert.InDelta(t, -37.8961, *ev.LowestPct, 1e-3)
	assert.Equal(t, "high", ev.Classification)

	_, _, err = evaluate(t, insight.RuleRanking, inputsFor(singleContext("F")))
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestRanking_TooFewGroups(t *testing.T) {
	in := inputsFor(allContext())
	in.Reference = in.Reference[:2]
	in.Context.GroupCount = 2

	_, applies, err := evaluate(t, insight.RuleRanking, in)
	require.NoError(t, err)
	assert.False(t, applies)
}

func TestSingleEntity_ScenarioA(t *testing.T) {
	in := inputsFor(singleContext("F"))
	ev, applies, err := evaluate(t, insight.RuleSingleEntityPositioning, in)
	require.NoError(t, err)
	require.True(t, applies)

	assert.Equal(t, 6, *ev.Rank)
	assert.Equal(t, 9, *ev.N)
	assert.InDelta(t, -14.96, *ev.PctVsReference, 0.005)
	assert.InDelta(t, 37.5, *ev.Percentile, 1e-9)
	assert.Equal(t, sideWorse, ev.Side)

	rule, _ := Lookup(insight.RuleSingleEntityPositioning, insight.Thresholds{})
	ins := rule.Emit(in.Context, ev)
	assert.Equal(t, insight.SeverityNotice, ins.Severity)
	assert.Equal(t, PRIORITY_POSITIONING, ins.Priority)
}

func TestSingleEntity_UnknownGroup(t *testing.T) {
	_, _, err := evaluate(t, insight.RuleSingleEntityPositioning, inputsFor(singleContext("Z")))
	assert.ErrorIs(t, err, core.ErrGroupNotFound)
}

func TestSubset_NeverCarriesRank(t *testing.T) {
	in := inputsFor(subsetContext())
	in.View = []calculators.GroupValue{{Group: "F", Value: 7.5, Weight: 12e6}}
	in.ViewValue = insight.Float(7.5)

	ev, applies, err := evaluate(t, insight.RuleSubsetDescriptive, in)
	require.NoError(t, err)
	require.True(t, applies)
	assert.Nil(t, ev.Rank)
	assert.Nil(t, ev.Percentile)
	assert.InDelta(t, 7.89, *ev.Reference, 1e-9)
	assert.InDelta(t, -4.943, *ev.PctVsReference, 1e-3)
	assert.Equal(t, "F / area_type=urban", ev.Group)

	// Even a record that somehow carries a rank is not emitted with one
	rule, _ := Lookup(insight.RuleSubsetDescriptive, insight.Thresholds{})
	ev.Rank = insight.Int(6)
	assert.False(t, rule.Applies(in.Context, ev))
	assert.Nil(t, rule.Emit(in.Context, ev).Evidence.Rank)
}

func TestSubset_NotApplicableOutsideSubset(t *testing.T) {
	_, _, err := evaluate(t, insight.RuleSubsetDescriptive, inputsFor(allContext()))
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestCorrelation_Fires(t *testing.T) {
	ev, applies, err := evaluate(t, insight.RuleCorrelation, inputsFor(allContext()))
	require.NoError(t, err)
	assert.True(t, applies)
	assert.InDelta(t, 0.9949, *ev.Coefficient, 1e-3)
	assert.Less(t, *ev.PValue, 0.001)
	assert.Equal(t, 9, *ev.SampleSize)
	assert.Equal(t, "population density", ev.Covariate)
}

func TestCorrelation_BelowMinimumSample(t *testing.T) {
	in := inputsFor(allContext())
	in.View = in.View[:4]
	in.Covariate = in.Covariate[:4]

	_, _, err := evaluate(t, insight.RuleCorrelation, in)
	assert.True(t, core.IsInsufficientEvidence(err))
}

func TestCorrelation_NotSignificant(t *testing.T) {
	in := inputsFor(allContext())
	in.Covariate = []float64{300, 120, 410, 150, 350, 200, 280, 140, 240}

	ev, applies, err := evaluate(t, insight.RuleCorrelation, in)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, *ev.PValue, DEFAULT_ALPHA)
	assert.False(t, applies)
}

func TestCorrelation_NoCovariateConfigured(t *testing.T) {
	in := inputsFor(allContext())
	in.Config.CorrelateWith = nil

	_, _, err := evaluate(t, insight.RuleCorrelation, in)
	assert.ErrorIs(t, err, core.ErrNoCovariate)
}

func TestCorrelation_CovariateError(t *testing.T) {
	in := inputsFor(allContext())
	in.CovariateErr = core.NewMissingColumnError("density")

	_, _, err := evaluate(t, insight.RuleCorrelation, in)
	assert.True(t, core.IsMissingColumn(err))
}

func TestOutlier(t *testing.T) {
	in := inputsFor(allContext())
	_, applies, err := evaluate(t, insight.RuleOutlier, in)
	require.NoError(t, err)
	assert.False(t, applies, "no region is twice the next")

	in.Reference = append(regionSet(), calculators.GroupValue{Group: "J", Value: 30, Weight: 1e6})
	ev, applies, err := evaluate(t, insight.RuleOutlier, in)
	require.NoError(t, err)
	assert.True(t, applies)
	assert.Equal(t, sideHigh, ev.Side)
	assert.Equal(t, "J", ev.Group)
	assert.Equal(t, "A", ev.NextGroup)
	assert.InDelta(t, 30/12.4, *ev.OutlierRatio, 1e-9)
}

func TestOutlier_LowSide(t *testing.T) {
	in := inputsFor(allContext())
	in.Reference = append(regionSet(), calculators.GroupValue{Group: "J", Value: 1, Weight: 1e6})

	ev, applies, err := evaluate(t, insight.RuleOutlier, in)
	require.NoError(t, err)
	assert.True(t, applies)
	assert.Equal(t, sideLow, ev.Side)
	assert.Equal(t, "J", ev.Group)
	assert.Equal(t, "H", ev.NextGroup)
}

func TestOutlier_SingleEntityOnlyReportsEntity(t *testing.T) {
	in := inputsFor(singleContext("F"))
	in.Reference = append(regionSet(), calculators.GroupValue{Group: "J", Value: 30, Weight: 1e6})

	ev, applies, err := evaluate(t, insight.RuleOutlier, in)
	require.NoError(t, err)
	assert.Equal(t, "J", ev.Group)
	assert.False(t, applies)
}

func TestOutlier_TooFewGroups(t *testing.T) {
	in := inputsFor(allContext())
	in.Reference = in.Reference[:2]

	_, _, err := evaluate(t, insight.RuleOutlier, in)
	assert.True(t, core.IsInsufficientEvidence(err))
}

func TestVariation(t *testing.T) {
	ev, applies, err := evaluate(t, insight.RuleVariation, inputsFor(allContext()))
	require.NoError(t, err)
	assert.InDelta(t, 0.2891, *ev.CV, 1e-3)
	assert.False(t, applies, "cv below default threshold")
	assert.Equal(t, "A", ev.Group)
	assert.Equal(t, "H", ev.LowestGroup)

	in := inputsFor(allContext())
	in.Config.Thresholds.VariationCV = 0.25
	_, applies, err = evaluate(t, insight.RuleVariation, in)
	require.NoError(t, err)
	assert.True(t, applies)
}

func TestGapToInvestment_WorstGroup(t *testing.T) {
	ev, applies, err := evaluate(t, insight.RuleGapToInvestment, inputsFor(allContext()))
	require.NoError(t, err)
	require.True(t, applies)

	assert.Equal(t, "H", ev.Group)
	assert.InDelta(t, 598, *ev.UnitsNeeded, 1e-6)

	factor := 11.469921
	wantCost := 598*250000 + 598*40000*factor
	wantBenefit := 598 * 90000 * factor
	assert.InDelta(t, wantCost, *ev.CostPV, 10)
	assert.InDelta(t, wantBenefit, *ev.BenefitPV, 10)
	assert.InDelta(t, wantBenefit/wantCost, *ev.BenefitCostRatio, 1e-4)
	assert.Equal(t, "low", ev.BCRBand)
	assert.Equal(t, 0.06, *ev.DiscountRate)
	assert.Equal(t, 20, *ev.HorizonYears)
}

func TestGapToInvestment_DiscountRateIsConfigurable(t *testing.T) {
	in := inputsFor(allContext())
	base, _, err := evaluate(t, insight.RuleGapToInvestment, in)
	require.NoError(t, err)

	in.Appraisal.DiscountRate = 0.035
	lower, _, err := evaluate(t, insight.RuleGapToInvestment, in)
	require.NoError(t, err)
	assert.Greater(t, *lower.BenefitPV, *base.BenefitPV)
}

func TestGapToInvestment_GapBelowThreshold(t *testing.T) {
	ev, applies, err := evaluate(t, insight.RuleGapToInvestment, inputsFor(singleContext("F")))
	require.NoError(t, err)
	assert.Equal(t, "F", ev.Group)
	assert.False(t, applies, "a 15% gap is under the 20% gate")
}

func TestGapToInvestment_NeedsCostModel(t *testing.T) {
	in := inputsFor(allContext())
	in.Config.CostModel = nil
	_, _, err := evaluate(t, insight.RuleGapToInvestment, in)
	assert.ErrorIs(t, err, core.ErrNoCostModel)

	in = inputsFor(allContext())
	in.Config.NumeratorColumn = ""
	in.Config.ValueColumn = "rate"
	_, _, err = evaluate(t, insight.RuleGapToInvestment, in)
	assert.ErrorIs(t, err, core.ErrNoCostModel)
}

func TestGapToInvestment_FavourableGapNeverFires(t *testing.T) {
	in := inputsFor(singleContext("A"))
	ev, applies, err := evaluate(t, insight.RuleGapToInvestment, in)
	require.NoError(t, err)
	assert.Equal(t, sideBetter, ev.Side)
	assert.False(t, applies)
}

func TestEvidenceErrorsAreInsufficient(t *testing.T) {
	in := inputsFor(allContext())
	in.ReferenceValue = nil
	in.ReferenceErr = core.ErrZeroDenominator

	for _, id := range []insight.RuleID{insight.RuleRanking, insight.RuleGapToInvestment} {
		_, _, err := evaluate(t, id, in)
		assert.True(t, errors.Is(err, core.ErrInsufficientEvidence), id)
	}
}

func TestContextDisclaimer(t *testing.T) {
	ctx := insight.ViewContext{Scope: insight.ScopeSubset, Ambiguous: true, Disclaimer: "duplicate entity"}
	ins := ContextDisclaimer(ctx)
	assert.Equal(t, insight.RuleContextDisclaimer, ins.RuleID)
	assert.Equal(t, insight.SeverityWarning, ins.Severity)
	assert.Equal(t, "duplicate entity", ins.Evidence.Reason)
	assert.True(t, ins.Evidence.IsSufficient())
}

func TestOutlier_RatioAtMultipleDoesNotFire(t *testing.T) {
	in := inputsFor(allContext())
	in.Reference = []calculators.GroupValue{
		{Group: "A", Value: 5, Weight: 1},
		{Group: "B", Value: 5, Weight: 1},
		{Group: "C", Value: 10, Weight: 1},
	}

	ev, applies, err := evaluate(t, insight.RuleOutlier, in)
	require.NoError(t, err)
	assert.Equal(t, "C", ev.Group)
	assert.InDelta(t, DEFAULT_OUTLIER_MULTIPLE, *ev.OutlierRatio, 1e-12)
	assert.False(t, applies, "ten is exactly twice five")
}

func TestGateBoundaries(t *testing.T) {
	worseGap := func(pct float64) insight.Evidence {
		ev := sufficient()
		ev.Side = sideWorse
		ev.PctVsReference = insight.Float(pct)
		ev.CostPV = insight.Float(1e6)
		ev.BenefitCostRatio = insight.Float(1.2)
		return ev
	}
	outlier := func(ratio float64) insight.Evidence {
		ev := sufficient()
		ev.Group = "C"
		ev.OutlierRatio = insight.Float(ratio)
		return ev
	}
	spread := func(cv float64) insight.Evidence {
		ev := sufficient()
		ev.CV = insight.Float(cv)
		return ev
	}
	correlated := func(p float64) insight.Evidence {
		ev := sufficient()
		ev.SampleSize = insight.Int(MIN_CORRELATION_SAMPLES)
		ev.PValue = insight.Float(p)
		ev.Coefficient = insight.Float(-0.9)
		return ev
	}

	tests := []struct {
		name string
		rule insight.RuleID
		ev   insight.Evidence
		want bool
	}{
		{"outlier at multiple", insight.RuleOutlier, outlier(DEFAULT_OUTLIER_MULTIPLE), false},
		{"outlier above multiple", insight.RuleOutlier, outlier(DEFAULT_OUTLIER_MULTIPLE + 0.01), true},
		{"gap at threshold", insight.RuleGapToInvestment, worseGap(-DEFAULT_GAP_PERCENT), false},
		{"gap beyond threshold", insight.RuleGapToInvestment, worseGap(-DEFAULT_GAP_PERCENT - 0.01), true},
		{"cv at threshold", insight.RuleVariation, spread(DEFAULT_VARIATION_CV), false},
		{"cv above threshold", insight.RuleVariation, spread(DEFAULT_VARIATION_CV + 0.01), true},
		{"p at alpha", insight.RuleCorrelation, correlated(DEFAULT_ALPHA), false},
		{"p below alpha", insight.RuleCorrelation, correlated(0.049), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Lookup(tt.rule, insight.Thresholds{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule.Applies(allContext(), tt.ev))
		})
	}
}
