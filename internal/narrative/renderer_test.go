package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goinsight/domain/insight"
	"goinsight/internal/rules"
	"goinsight/internal/testkit"
)

func singleF() (insight.Insight, insight.ViewContext) {
	ev := insight.Evidence{
		Status:         insight.EvidenceSufficient,
		Group:          "F",
		Value:          insight.Float(6.71),
		Reference:      insight.Float(7.89),
		Rank:           insight.Int(6),
		N:              insight.Int(9),
		PctVsReference: insight.Float(-14.9556),
		Side:           "worse",
	}
	ctx := insight.ViewContext{Scope: insight.ScopeSingleEntity, Entity: "F", Filters: insight.Filters{Entities: []string{"F"}}}
	return insight.Insight{RuleID: insight.RuleSingleEntityPositioning, Evidence: ev}, ctx
}

func TestRender_SingleEntity(t *testing.T) {
	ins, ctx := singleF()
	text := Render(ins, ctx, testkit.TransitMetric())

	assert.Equal(t,
		"F records 6.71 routes per 100k residents, ranking 6 of 9 by region and 14.96% below the reference average of 7.89.",
		text)
	assert.Empty(t, Missing(ins, ctx, testkit.TransitMetric()))

	rec, ok := Recommend(ins, ctx, testkit.TransitMetric())
	require.True(t, ok)
	assert.Contains(t, rec, "14.96% gap")
}

func TestRender_NoRecommendationWhenFavourable(t *testing.T) {
	ins, ctx := singleF()
	ins.Evidence.Side = "better"
	ins.Evidence.PctVsReference = insight.Float(12)

	_, ok := Recommend(ins, ctx, testkit.TransitMetric())
	assert.False(t, ok)
}

func TestRender_AbsentEvidenceUsesDefaults(t *testing.T) {
	ins, ctx := singleF()
	ins.Evidence.Rank = nil
	ins.Evidence.N = nil
	ins.Evidence.Reference = nil

	text := Render(ins, ctx, testkit.TransitMetric())
	assert.Contains(t, text, "ranking unranked of all")
	assert.Contains(t, text, "reference average of not available")
	assert.ElementsMatch(t, []string{"rank", "n", "reference"}, Missing(ins, ctx, testkit.TransitMetric()))
}

func TestRender_SubsetHasNoRank(t *testing.T) {
	ev := insight.Evidence{
		Status:         insight.EvidenceSufficient,
		Group:          "F / area_type=urban",
		Value:          insight.Float(7.5),
		Reference:      insight.Float(7.89),
		PctVsReference: insight.Float(-4.943),
	}
	ctx := insight.ViewContext{Scope: insight.ScopeSubset}
	text := Render(insight.Insight{RuleID: insight.RuleSubsetDescriptive, Evidence: ev}, ctx, testkit.TransitMetric())

	assert.Contains(t, text, "4.94% below the reference average of 7.89")
	assert.NotContains(t, text, " of 9")
}

func TestRender_Correlation(t *testing.T) {
	ev := insight.Evidence{
		Status:      insight.EvidenceSufficient,
		Covariate:   "population density",
		Coefficient: insight.Float(0.9949),
		PValue:      insight.Float(0.0000002),
		SampleSize:  insight.Int(9),
	}
	text := Render(insight.Insight{RuleID: insight.RuleCorrelation, Evidence: ev}, insight.ViewContext{Scope: insight.ScopeAll}, testkit.TransitMetric())
	assert.Equal(t,
		"Public transit routes shows a strong positive association with population density (r = 0.99, p < 0.001, n = 9).",
		text)
}

func TestRender_InvestmentFormatsMoney(t *testing.T) {
	ev := insight.Evidence{
		Status:           insight.EvidenceSufficient,
		Group:            "H",
		Value:            insight.Float(4.9),
		Reference:        insight.Float(7.89),
		PctVsReference:   insight.Float(-37.8961),
		Side:             "worse",
		UnitsNeeded:      insight.Float(598),
		CostPV:           insight.Float(423862124.4),
		BenefitPV:        insight.Float(617316000.2),
		BenefitCostRatio: insight.Float(1.4564),
		BCRBand:          "very_high",
		DiscountRate:     insight.Float(0.06),
		HorizonYears:     insight.Int(20),
	}
	ins := insight.Insight{RuleID: insight.RuleGapToInvestment, Evidence: ev}
	ctx := insight.ViewContext{Scope: insight.ScopeAll}

	text := Render(ins, ctx, testkit.TransitMetric())
	assert.Contains(t, text, "H, the lowest-ranked region")
	assert.Contains(t, text, "about 598 routes")
	assert.Contains(t, text, "423,862,124 EUR")
	assert.Contains(t, text, "very high")
	assert.Contains(t, text, "6.0% over 20 years")

	ctx.Scope = insight.ScopeSingleEntity
	assert.NotContains(t, Render(ins, ctx, testkit.TransitMetric()), "lowest-ranked")
}

func TestRender_NeverFailsOnEmptyEvidence(t *testing.T) {
	ids := append(rules.Catalog(), insight.RuleContextDisclaimer)
	scopes := []insight.Scope{insight.ScopeAll, insight.ScopeSingleEntity, insight.ScopeSubset}

	for _, id := range ids {
		for _, scope := range scopes {
			ins := insight.Insight{RuleID: id, Evidence: insight.Evidence{Status: insight.EvidenceSufficient}}
			text := Render(ins, insight.ViewContext{Scope: scope}, insight.MetricConfig{})
			assert.NotEmpty(t, text, "%s/%s", id, scope)
			assert.NotContains(t, text, "<no value>", "%s/%s", id, scope)
			assert.NotContains(t, text, "{{", "%s/%s", id, scope)
		}
	}
}

func TestTemplates_EveryRuleHasAFinding(t *testing.T) {
	for _, id := range append(rules.Catalog(), insight.RuleContextDisclaimer) {
		found := false
		for _, tmpl := range Templates() {
			if tmpl.Rule == id && tmpl.Kind == KindFinding {
				found = true
			}
		}
		assert.True(t, found, id)
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, placeholders("{{.a}} and {{ .b }} then {{.a}}"))
}

func TestMarkdownAndHTML(t *testing.T) {
	ins, ctx := singleF()
	ins.Text = Render(ins, ctx, testkit.TransitMetric())
	result := insight.NarrativeResult{
		MetricName: "Public transit routes",
		Unit:       "routes per 100k residents",
		Context:    ctx,
		Summary:    ins.Text,
		KeyFinding: ins.Text,
		Insights:   []insight.Insight{ins},
		Sources:    testkit.TransitMetric().Sources,
		Evidence: map[string]insight.EvidenceRecord{
			"single_entity_positioning": {RuleID: insight.RuleSingleEntityPositioning, Outcome: insight.OutcomeFired},
			"ranking":                   {RuleID: insight.RuleRanking, Outcome: insight.OutcomeNotApplicable, Reason: "a|b"},
		},
	}

	md := Markdown(result)
	assert.True(t, strings.HasPrefix(md, "# Public transit routes\n"))
	assert.Contains(t, md, "scope: single_entity (F)")
	assert.Contains(t, md, "## Sources")
	assert.Contains(t, md, "Regional transit registry, Transport Statistics Office (2024)")
	assert.Less(t, strings.Index(md, "| ranking |"), strings.Index(md, "| single_entity_positioning |"))
	assert.Contains(t, md, `a\|b`)
	assert.NotContains(t, md, "**Key finding.**", "duplicate of the summary")

	out := string(HTML(result))
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<strong>Summary.</strong>")
}

func TestMarkdownAndHTML_EscapesUserText(t *testing.T) {
	ctx := insight.ViewContext{
		Scope: insight.ScopeSubset,
		Filters: insight.Filters{
			Entities: []string{"<img src=x onerror=alert(1)>"},
			Subsets:  map[string][]string{"area": {"<script>alert(2)</script>"}},
		},
	}
	result := insight.NarrativeResult{
		MetricName: "Routes <b>",
		Context:    ctx,
		Summary:    "Region [x](javascript:alert(3)) is *odd*",
		Sources:    []insight.Source{{Name: "Registry", URL: "javascript:alert(4)"}},
		Evidence: map[string]insight.EvidenceRecord{
			"ranking": {RuleID: insight.RuleRanking, Outcome: insight.OutcomeSkipped, Reason: "group not in reference set: <svg onload=x>"},
		},
	}

	md := Markdown(result)
	assert.Contains(t, md, `\<script\>`)
	assert.Contains(t, md, `\[x\]`)

	out := string(HTML(result))
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, "<svg")
	assert.NotContains(t, out, "<b>")
	assert.NotContains(t, out, `href="javascript`)
	assert.Contains(t, out, "&lt;script&gt;alert(2)&lt;/script&gt;")
	assert.Contains(t, out, "scope: subset")
}
