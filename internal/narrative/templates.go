package narrative

import (
	"text/template"

	"goinsight/domain/insight"
)

// Kind separates the finding sentence from the recommended action
type Kind string

const (
	KindFinding        Kind = "finding"
	KindRecommendation Kind = "recommendation"
)

// AnyScope matches every view scope
const AnyScope insight.Scope = ""

// NotAvailable is the neutral text for a placeholder with no value and no
// declared default.
const NotAvailable = "not available"

// Template is one parameterized sentence. Placeholders are {{.field}}
// references into the evidence map; Defaults declares what an absent field
// renders as.
type Template struct {
	Rule     insight.RuleID
	Scope    insight.Scope
	Kind     Kind
	Text     string
	Defaults map[string]string
	// When optionally restricts the template to some evidence
	When func(ev insight.Evidence) bool

	parsed *template.Template
}

func adverse(ev insight.Evidence) bool { return ev.Side == "worse" }

var table = []Template{
	// Ranking
	{
		Rule: insight.RuleRanking, Kind: KindFinding,
		Text: "{{.group}} leads on {{.metric}} at {{.value}} {{.unit}}, {{.pct_vs_reference}}% against the reference average of {{.reference}}. " +
			"{{.lowest_group}} trails at {{.lowest_value}} ({{.lowest_pct}}%).",
		Defaults: map[string]string{"lowest_group": "the lowest group", "lowest_pct": "n/a"},
	},
	{
		Rule: insight.RuleRanking, Kind: KindRecommendation,
		Text: "Use {{.group}} as the benchmark when planning for {{.lowest_group}}.",
	},

	// Single entity
	{
		Rule: insight.RuleSingleEntityPositioning, Scope: insight.ScopeSingleEntity, Kind: KindFinding,
		Text:     "{{.group}} records {{.value}} {{.unit}}, ranking {{.rank}} of {{.n}} by {{.group_noun}} and {{.abs_pct}}% {{.relation}} the reference average of {{.reference}}.",
		Defaults: map[string]string{"rank": "unranked", "n": "all"},
	},
	{
		Rule: insight.RuleSingleEntityPositioning, Scope: insight.ScopeSingleEntity, Kind: KindRecommendation,
		Text: "Compare {{.group}} with higher-ranked peers to identify what drives the {{.abs_pct}}% gap.",
		When: adverse,
	},

	// Subset
	{
		Rule: insight.RuleSubsetDescriptive, Scope: insight.ScopeSubset, Kind: KindFinding,
		Text: "For {{.group}}, {{.metric}} is {{.value}} {{.unit}}, {{.abs_pct}}% {{.relation}} the reference average of {{.reference}}. " +
			"Filtered subsets are compared descriptively and are not ranked.",
		Defaults: map[string]string{"group": "the selected subset"},
	},

	// Correlation
	{
		Rule: insight.RuleCorrelation, Kind: KindFinding,
		Text:     "{{.metric}} shows a {{.strength}} {{.sign}} association with {{.covariate}} (r = {{.coefficient}}, p {{.p_value}}, n = {{.sample_size}}).",
		Defaults: map[string]string{"covariate": "the paired variable"},
	},
	{
		Rule: insight.RuleCorrelation, Kind: KindRecommendation,
		Text:     "Account for {{.covariate}} when comparing {{.group_noun}} figures; the association does not establish cause.",
		Defaults: map[string]string{"covariate": "the paired variable"},
	},

	// Outlier
	{
		Rule: insight.RuleOutlier, Kind: KindFinding,
		Text: "{{.group}} is an outlier on the {{.side}} side at {{.value}} {{.unit}}, {{.outlier_ratio}} times the next {{.group_noun}} ({{.next_group}}, {{.next_value}}).",
	},
	{
		Rule: insight.RuleOutlier, Kind: KindRecommendation,
		Text: "Verify the source figures for {{.group}} before using it in comparisons.",
	},

	// Gap to investment
	{
		Rule: insight.RuleGapToInvestment, Scope: insight.ScopeAll, Kind: KindFinding,
		Text: "{{.group}}, the lowest-ranked {{.group_noun}}, sits {{.abs_pct}}% {{.relation}} the reference average of {{.reference}} {{.unit}}. " +
			"Closing the gap needs about {{.units_needed}} {{.units_label}}, costing {{.cost_pv}} {{.currency}} against {{.benefit_pv}} {{.currency}} of benefits " +
			"(BCR {{.benefit_cost_ratio}}, {{.bcr_band}}; {{.discount_rate_pct}}% over {{.horizon_years}} years).",
		Defaults: map[string]string{"currency": "", "bcr_band": "unbanded"},
	},
	{
		Rule: insight.RuleGapToInvestment, Kind: KindFinding,
		Text: "{{.group}} sits {{.abs_pct}}% {{.relation}} the reference average of {{.reference}} {{.unit}}. " +
			"Closing the gap needs about {{.units_needed}} {{.units_label}}, costing {{.cost_pv}} {{.currency}} against {{.benefit_pv}} {{.currency}} of benefits " +
			"(BCR {{.benefit_cost_ratio}}, {{.bcr_band}}; {{.discount_rate_pct}}% over {{.horizon_years}} years).",
		Defaults: map[string]string{"currency": "", "bcr_band": "unbanded"},
	},
	{
		Rule: insight.RuleGapToInvestment, Kind: KindRecommendation,
		Text:     "Appraise a programme of {{.units_needed}} {{.units_label}} for {{.group}}; value for money is {{.bcr_band}} at a BCR of {{.benefit_cost_ratio}}.",
		Defaults: map[string]string{"bcr_band": "unbanded"},
	},

	// Variation
	{
		Rule: insight.RuleVariation, Kind: KindFinding,
		Text: "{{.metric}} varies widely by {{.group_noun}} (coefficient of variation {{.cv}}, Gini {{.gini}}), from {{.lowest_value}} in {{.lowest_group}} to {{.value}} in {{.group}}.",
	},
	{
		Rule: insight.RuleVariation, Kind: KindRecommendation,
		Text: "Investigate what separates {{.group}} from {{.lowest_group}}.",
	},

	// Context disclaimer
	{
		Rule: insight.RuleContextDisclaimer, Kind: KindFinding,
		Text:     "{{.reason}}",
		Defaults: map[string]string{"reason": "The selected filters could not be resolved cleanly; figures are shown descriptively without ranking."},
	},
}

func init() {
	for i := range table {
		table[i].parsed = template.Must(template.New(string(table[i].Rule)).Option("missingkey=zero").Parse(table[i].Text))
	}
}

// lookup returns the most specific template for a rule, scope and kind. A
// scope-specific entry wins over an AnyScope one.
func lookup(rule insight.RuleID, scope insight.Scope, kind Kind, ev insight.Evidence) (Template, bool) {
	var fallback *Template
	for i := range table {
		t := &table[i]
		if t.Rule != rule || t.Kind != kind {
			continue
		}
		if t.When != nil && !t.When(ev) {
			continue
		}
		if t.Scope == scope {
			return *t, true
		}
		if t.Scope == AnyScope && fallback == nil {
			fallback = t
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Template{}, false
}

// Templates returns a copy of the registered table
func Templates() []Template {
	return append([]Template(nil), table...)
}
