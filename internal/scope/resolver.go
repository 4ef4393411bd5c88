// Package scope classifies how comparable a filtered view is to the full
// reference population.
package scope

import (
	"fmt"
	"strings"

	"goinsight/domain/insight"
)

// Resolve classifies a filter set:
//   - no entity and no subsetting filter: all
//   - exactly one entity and no subsetting filter: single_entity
//   - any subsetting filter, or several entities: subset
//
// Self-contradictory filter sets fall back to subset, the most restrictive
// scope, and are flagged Ambiguous with a disclaimer.
func Resolve(filters insight.Filters) insight.ViewContext {
	return resolve(filters, "")
}

// ResolveFor classifies filters for one metric and fills in the group counts
// from the dataset. GroupCount counts groups in the filtered view;
// ReferenceGroupCount counts groups in the unfiltered dataset.
func ResolveFor(filters insight.Filters, ds insight.Dataset, cfg insight.MetricConfig) insight.ViewContext {
	ctx := resolve(filters, cfg.GroupColumn)
	ctx.GroupKey = cfg.GroupColumn
	ctx.ReferenceGroupCount = len(ds.Groups(cfg.GroupColumn))
	viewGroups := ds.Filter(ctx.Filters, cfg.GroupColumn).Groups(cfg.GroupColumn)
	ctx.GroupCount = len(viewGroups)

	// Entity filters match case-insensitively; carry the spelling of the data.
	if ctx.Scope == insight.ScopeSingleEntity && len(viewGroups) == 1 {
		ctx.Entity = viewGroups[0]
	}

	if ctx.Scope == insight.ScopeSingleEntity && ctx.GroupCount == 0 {
		ctx.Scope = insight.ScopeSubset
		ctx.Entity = ""
		ctx.Ambiguous = true
		ctx.Disclaimer = fmt.Sprintf("%s %q is not present in the data; no comparison against the reference set is possible.",
			cfg.GroupNoun(), filters.Entities[0])
	}
	return ctx
}

func resolve(filters insight.Filters, groupColumn string) insight.ViewContext {
	ctx := insight.ViewContext{Filters: filters.Clone()}

	if problem := contradiction(filters, groupColumn); problem != "" {
		ctx.Scope = insight.ScopeSubset
		ctx.Ambiguous = true
		ctx.Disclaimer = "The selected filters are ambiguous (" + problem +
			"); figures are shown descriptively without ranking."
		return ctx
	}

	switch {
	case len(filters.Subsets) > 0:
		ctx.Scope = insight.ScopeSubset
	case len(filters.Entities) == 1:
		ctx.Scope = insight.ScopeSingleEntity
		ctx.Entity = strings.TrimSpace(filters.Entities[0])
	case len(filters.Entities) > 1:
		ctx.Scope = insight.ScopeSubset
	default:
		ctx.Scope = insight.ScopeAll
	}
	return ctx
}

// contradiction describes why a filter set is self-contradictory, or "".
func contradiction(filters insight.Filters, groupColumn string) string {
	seen := make(map[string]bool, len(filters.Entities))
	for _, e := range filters.Entities {
		key := strings.ToLower(strings.TrimSpace(e))
		if key == "" {
			return "blank entity selection"
		}
		if seen[key] {
			return fmt.Sprintf("entity %q selected twice", e)
		}
		seen[key] = true
	}

	for _, key := range filters.SubsetKeys() {
		if strings.TrimSpace(key) == "" {
			return "unnamed subsetting filter"
		}
		if len(filters.Subsets[key]) == 0 {
			return fmt.Sprintf("filter %q has no allowed values", key)
		}
		if groupColumn != "" && key == groupColumn {
			return fmt.Sprintf("grouping column %q used as a subsetting filter", key)
		}
	}
	return ""
}
