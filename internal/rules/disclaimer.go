package rules

import "goinsight/domain/insight"

// ContextDisclaimer is attached by the engine when the filter set could not
// be resolved cleanly. It is not configurable per metric.
func ContextDisclaimer(ctx insight.ViewContext) insight.Insight {
	ev := sufficient()
	ev.Reason = ctx.Disclaimer
	return insight.Insight{
		RuleID:   insight.RuleContextDisclaimer,
		Category: insight.CategoryContext,
		Severity: insight.SeverityWarning,
		Priority: PRIORITY_DISCLAIMER,
		Evidence: ev,
	}
}
