// Package narrative turns fired insights into sentences and reports.
//
// Rendering never fails: a placeholder whose evidence is absent renders as
// the template's declared default or NotAvailable, and the absent keys are
// reported so callers can audit the fallback.
package narrative

import (
	"log"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"goinsight/domain/insight"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*\.(\w+)\s*\}\}`)
	printer            = message.NewPrinter(language.English)
)

// Number formats per placeholder; everything else uses two decimals
var formats = map[string]string{
	"pct_vs_reference":  "%+.2f",
	"lowest_pct":        "%+.2f",
	"percentile":        "%.0f",
	"outlier_ratio":     "%.1f",
	"units_needed":      "%.0f",
	"cost_pv":           "%.0f",
	"benefit_pv":        "%.0f",
	"discount_rate_pct": "%.1f",
}

// Render returns the finding sentence for a fired insight
func Render(ins insight.Insight, ctx insight.ViewContext, cfg insight.MetricConfig) string {
	text, _ := render(ins, ctx, cfg, KindFinding)
	return text
}

// Recommend returns the recommended action for a fired insight, if its rule
// declares one for this evidence.
func Recommend(ins insight.Insight, ctx insight.ViewContext, cfg insight.MetricConfig) (string, bool) {
	t, ok := lookup(ins.RuleID, ctx.Scope, KindRecommendation, ins.Evidence)
	if !ok {
		return "", false
	}
	text, _ := fill(t, data(ins, ctx, cfg))
	return text, true
}

// Missing lists the placeholders of the finding template that had no value
func Missing(ins insight.Insight, ctx insight.ViewContext, cfg insight.MetricConfig) []string {
	_, missing := render(ins, ctx, cfg, KindFinding)
	return missing
}

func render(ins insight.Insight, ctx insight.ViewContext, cfg insight.MetricConfig, kind Kind) (string, []string) {
	t, ok := lookup(ins.RuleID, ctx.Scope, kind, ins.Evidence)
	if !ok {
		log.Printf("[Narrative] no %s template for rule %s", kind, ins.RuleID)
		return NotAvailable, nil
	}
	return fill(t, data(ins, ctx, cfg))
}

func fill(t Template, values map[string]any) (string, []string) {
	vals := make(map[string]string)
	var missing []string
	for _, key := range placeholders(t.Text) {
		v, ok := values[key]
		if !ok || v == nil {
			missing = append(missing, key)
			if d, ok := t.Defaults[key]; ok {
				vals[key] = d
			} else {
				vals[key] = NotAvailable
			}
			continue
		}
		vals[key] = format(key, v)
	}

	var buf strings.Builder
	if err := t.parsed.Execute(&buf, vals); err != nil {
		log.Printf("[Narrative] template for %s failed: %v", t.Rule, err)
		return NotAvailable, missing
	}
	return strings.Join(strings.Fields(buf.String()), " "), missing
}

func placeholders(text string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

func format(key string, v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return printer.Sprintf("%d", x)
	case float64:
		f, ok := formats[key]
		if !ok {
			f = "%.2f"
		}
		return printer.Sprintf(f, x)
	default:
		return printer.Sprint(x)
	}
}

// data merges the evidence fields with metric labels and derived wording
func data(ins insight.Insight, ctx insight.ViewContext, cfg insight.MetricConfig) map[string]any {
	ev := ins.Evidence
	d := ev.Fields()

	d["metric"] = label(cfg.Name, cfg.ID)
	d["unit"] = label(cfg.Unit)
	d["group_noun"] = label(cfg.GroupNoun())
	d["scope"] = string(ctx.Scope)
	d["entity"] = label(ctx.Entity)
	d["subset"] = label(ctx.Filters.Describe())
	d["reason"] = label(ev.Reason, ctx.Disclaimer)

	if ev.PctVsReference != nil {
		pct := *ev.PctVsReference
		d["abs_pct"] = math.Abs(pct)
		switch {
		case pct > 0:
			d["relation"] = "above"
		case pct < 0:
			d["relation"] = "below"
		default:
			d["relation"] = "in line with"
		}
	}

	if ev.Coefficient != nil {
		r := *ev.Coefficient
		switch a := math.Abs(r); {
		case a >= 0.7:
			d["strength"] = "strong"
		case a >= 0.4:
			d["strength"] = "moderate"
		default:
			d["strength"] = "weak"
		}
		d["sign"] = "positive"
		if r < 0 {
			d["sign"] = "negative"
		}
	}
	if ev.PValue != nil {
		if *ev.PValue < 0.001 {
			d["p_value"] = "< 0.001"
		} else {
			d["p_value"] = printer.Sprintf("= %.3f", *ev.PValue)
		}
	}

	if ev.BCRBand != "" {
		d["bcr_band"] = strings.ReplaceAll(ev.BCRBand, "_", " ")
	}
	if ev.DiscountRate != nil {
		d["discount_rate_pct"] = *ev.DiscountRate * 100
	}
	if cm := cfg.CostModel; cm != nil {
		d["currency"] = label(cm.Currency)
		d["unit_label"] = label(cm.UnitLabel)
		if cm.UnitLabel != "" && ev.UnitsNeeded != nil {
			plural := cm.UnitLabel
			if math.Round(*ev.UnitsNeeded) != 1 {
				plural += "s"
			}
			d["units_label"] = plural
		}
	}
	return d
}

// label returns the first non-empty string, or nil
func label(candidates ...string) any {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return nil
}
