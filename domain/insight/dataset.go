package insight

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Row is one record of the tabular input. Attributes hold categorical
// columns (including the grouping column); Values hold numeric columns.
// A missing numeric value is an absent key or NaN, never zero.
type Row struct {
	Attributes map[string]string  `json:"attributes"`
	Values     map[string]float64 `json:"values"`
}

// Value returns a numeric column and whether it is present
func (r Row) Value(column string) (float64, bool) {
	v, ok := r.Values[column]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Dataset is the read-only tabular input supplied by the data-loading layer
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// HasColumn reports whether any row carries the column
func (d Dataset) HasColumn(column string) bool {
	for _, c := range d.Columns {
		if c == column {
			return true
		}
	}
	for _, r := range d.Rows {
		if _, ok := r.Values[column]; ok {
			return true
		}
		if _, ok := r.Attributes[column]; ok {
			return true
		}
	}
	return false
}

// Filter returns the rows passing the filter set. The receiver is untouched.
func (d Dataset) Filter(filters Filters, groupColumn string) Dataset {
	out := Dataset{Columns: d.Columns}
	for _, r := range d.Rows {
		if filters.Matches(r, groupColumn) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Groups returns the distinct, sorted values of the grouping column.
// Spellings differing only in case or surrounding space count as one group,
// reported in the first spelling seen.
func (d Dataset) Groups(groupColumn string) []string {
	spelling := d.groupSpellings(groupColumn)
	groups := make([]string, 0, len(spelling))
	for _, g := range spelling {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// NormalizeGroups returns a copy whose grouping column carries one spelling
// per group, so aggregation keys agree with case-insensitive filters.
// Rows whose group is already canonical are shared with the receiver.
func (d Dataset) NormalizeGroups(groupColumn string) Dataset {
	spelling := d.groupSpellings(groupColumn)
	out := Dataset{Columns: d.Columns, Rows: make([]Row, len(d.Rows))}
	for i, r := range d.Rows {
		out.Rows[i] = r
		g, ok := r.Attributes[groupColumn]
		if !ok {
			continue
		}
		canonical := spelling[groupKey(g)]
		if canonical == g {
			continue
		}
		attrs := make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			attrs[k] = v
		}
		if canonical == "" {
			delete(attrs, groupColumn)
		} else {
			attrs[groupColumn] = canonical
		}
		out.Rows[i].Attributes = attrs
	}
	return out
}

// groupSpellings maps each folded group key to its first spelling
func (d Dataset) groupSpellings(groupColumn string) map[string]string {
	spelling := make(map[string]string)
	for _, r := range d.Rows {
		g := strings.TrimSpace(r.Attributes[groupColumn])
		if g == "" {
			continue
		}
		if _, ok := spelling[groupKey(g)]; !ok {
			spelling[groupKey(g)] = g
		}
	}
	return spelling
}

func groupKey(g string) string {
	return strings.ToLower(strings.TrimSpace(g))
}

// NewDataset builds a dataset from loosely typed records as produced by the
// loaders. Every non-empty cell is kept as text in Attributes so any column
// can be filtered on; cells that read as numbers are also stored in Values.
// When columns is nil the sorted union of record keys is used.
func NewDataset(columns []string, records []map[string]any) Dataset {
	if columns == nil {
		seen := make(map[string]bool)
		for _, rec := range records {
			for k := range rec {
				if !seen[k] {
					seen[k] = true
					columns = append(columns, k)
				}
			}
		}
		sort.Strings(columns)
	}

	ds := Dataset{Columns: append([]string(nil), columns...), Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		row := Row{Attributes: make(map[string]string), Values: make(map[string]float64)}
		for _, col := range columns {
			v, ok := rec[col]
			if !ok || v == nil {
				continue
			}
			text := cellText(v)
			if text == "" {
				continue
			}
			row.Attributes[col] = text
			if n, ok := cellNumber(v); ok {
				row.Values[col] = n
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func cellText(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func cellNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		return parseNumber(x)
	case []byte:
		return parseNumber(string(x))
	default:
		return 0, false
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
