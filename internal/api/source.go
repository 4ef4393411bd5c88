package api

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"goinsight/domain/insight"
)

// DatasetSource supplies the dataset a request is evaluated against
type DatasetSource interface {
	Dataset(ctx context.Context) (insight.Dataset, error)
}

// DatasetFunc adapts a loader function to DatasetSource
type DatasetFunc func(ctx context.Context) (insight.Dataset, error)

func (f DatasetFunc) Dataset(ctx context.Context) (insight.Dataset, error) { return f(ctx) }

// Static serves one dataset loaded up front
func Static(ds insight.Dataset) DatasetSource {
	return DatasetFunc(func(context.Context) (insight.Dataset, error) { return ds, nil })
}

// reservedParams are query keys that never become subset filters
var reservedParams = map[string]bool{"entity": true, "metric": true, "format": true}

// ParseFilters reads a filter set from query parameters. Every "entity"
// value narrows the grouping column; any other key is a subset filter, with
// comma-separated or repeated values.
func ParseFilters(values url.Values) insight.Filters {
	f := insight.Filters{Entities: splitValues(values["entity"])}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if reservedParams[k] {
			continue
		}
		vals := splitValues(values[k])
		if len(vals) == 0 {
			continue
		}
		if f.Subsets == nil {
			f.Subsets = make(map[string][]string)
		}
		f.Subsets[k] = vals
	}
	return f
}

func splitValues(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, v := range strings.Split(r, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
