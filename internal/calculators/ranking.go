package calculators

import (
	"sort"

	"goinsight/domain/core"
	"goinsight/domain/insight"
)

// RankResult is a group's position within a reference set
type RankResult struct {
	Group          string  `json:"group"`
	Value          float64 `json:"value"`
	Rank           int     `json:"rank"`
	N              int     `json:"n"`
	PctVsReference float64 `json:"pct_vs_reference"`
	Percentile     float64 `json:"percentile"`
}

// SortByPerformance returns a copy of set ordered best-first under dir.
// Ties are broken by group identifier, ascending, so the order never depends
// on input row order.
func SortByPerformance(set []GroupValue, dir insight.Direction) []GroupValue {
	sorted := append([]GroupValue(nil), set...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return dir.Better(sorted[i].Value, sorted[j].Value)
		}
		return sorted[i].Group < sorted[j].Group
	})
	return sorted
}

// PctGap returns (value/reference - 1) × 100
func PctGap(value, reference float64) (float64, error) {
	if !finite(value) || !finite(reference) {
		return 0, core.ErrMissingValue
	}
	if reference == 0 {
		return 0, core.ErrZeroDenominator
	}
	return (value/reference - 1) * 100, nil
}

// RankAndGap ranks group within the reference set and compares its value to
// the reference value. The reference set must be the full, unfiltered set of
// groups.
func RankAndGap(group string, referenceSet []GroupValue, reference float64, dir insight.Direction) (RankResult, error) {
	if len(referenceSet) == 0 {
		return RankResult{}, core.ErrEmptyDataset
	}

	sorted := SortByPerformance(referenceSet, dir)
	position := -1
	for i, g := range sorted {
		if g.Group == group {
			position = i
			break
		}
	}
	if position < 0 {
		return RankResult{}, core.NewGroupNotFoundError(group)
	}

	value := sorted[position].Value
	pct, err := PctGap(value, reference)
	if err != nil {
		return RankResult{}, err
	}

	n := len(sorted)
	rank := position + 1
	percentile := 100.0
	if n > 1 {
		percentile = float64(n-rank) / float64(n-1) * 100
	}

	return RankResult{
		Group:          group,
		Value:          value,
		Rank:           rank,
		N:              n,
		PctVsReference: pct,
		Percentile:     percentile,
	}, nil
}
