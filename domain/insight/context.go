package insight

import (
	"sort"
	"strings"
)

// Scope classifies how comparable the current filtered view is
type Scope string

const (
	ScopeAll          Scope = "all"
	ScopeSingleEntity Scope = "single_entity"
	ScopeSubset       Scope = "subset"
)

// Filters is the active filter set of a request.
// Entities narrows the grouping column; Subsets are cross-cutting category
// filters (attribute -> allowed values).
type Filters struct {
	Entities []string            `json:"entities,omitempty" yaml:"entities,omitempty"`
	Subsets  map[string][]string `json:"subsets,omitempty" yaml:"subsets,omitempty"`
}

// IsEmpty reports whether no filter is active
func (f Filters) IsEmpty() bool {
	return len(f.Entities) == 0 && len(f.Subsets) == 0
}

// Clone returns a deep copy so a ViewContext never aliases caller memory
func (f Filters) Clone() Filters {
	out := Filters{}
	if len(f.Entities) > 0 {
		out.Entities = append([]string(nil), f.Entities...)
	}
	if len(f.Subsets) > 0 {
		out.Subsets = make(map[string][]string, len(f.Subsets))
		for k, v := range f.Subsets {
			out.Subsets[k] = append([]string(nil), v...)
		}
	}
	return out
}

// SubsetKeys returns the subsetting attribute names in sorted order
func (f Filters) SubsetKeys() []string {
	keys := make([]string, 0, len(f.Subsets))
	for k := range f.Subsets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Matches reports whether a row passes every active filter
func (f Filters) Matches(row Row, groupColumn string) bool {
	if len(f.Entities) > 0 && !contains(f.Entities, row.Attributes[groupColumn]) {
		return false
	}
	for key, allowed := range f.Subsets {
		value, ok := row.Attributes[key]
		if !ok || !contains(allowed, value) {
			return false
		}
	}
	return true
}

// Describe renders the subsetting filters for narrative text, e.g. "area=urban"
func (f Filters) Describe() string {
	parts := make([]string, 0, len(f.Subsets))
	for _, key := range f.SubsetKeys() {
		parts = append(parts, key+"="+strings.Join(f.Subsets[key], "|"))
	}
	return strings.Join(parts, ", ")
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

// ViewContext is the comparability classification of one request. It is a
// value type: copies never share state with the caller's filters.
type ViewContext struct {
	Scope               Scope   `json:"scope"`
	GroupKey            string  `json:"group_key,omitempty"`
	GroupCount          int     `json:"group_count"`
	ReferenceGroupCount int     `json:"reference_group_count"`
	Entity              string  `json:"entity,omitempty"`
	Filters             Filters `json:"filters"`
	Ambiguous           bool    `json:"ambiguous,omitempty"`
	Disclaimer          string  `json:"disclaimer,omitempty"`
}

// IsRankable reports whether ranks are commensurable in this context
func (c ViewContext) IsRankable() bool {
	return c.Scope != ScopeSubset
}
