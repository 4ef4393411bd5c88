package calculators

import (
	"math/rand"
	"testing"

	"goinsight/domain/core"
	"goinsight/domain/insight"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regionSet() []GroupValue {
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	rates := regionRates()
	set := make([]GroupValue, len(names))
	for i, n := range names {
		set[i] = GroupValue{Group: n, Value: rates[i], Weight: regionPopulation[i]}
	}
	return set
}

func TestRankAndGap_ScenarioA(t *testing.T) {
	res, err := RankAndGap("F", regionSet(), 7.89, insight.HigherIsBetter)
	require.NoError(t, err)

	assert.Equal(t, 6, res.Rank)
	assert.Equal(t, 9, res.N)
	assert.InDelta(t, 6.71, res.Value, 1e-9)
	assert.InDelta(t, -14.96, res.PctVsReference, 0.005)
	assert.InDelta(t, 37.5, res.Percentile, 1e-9)
}

func TestRankAndGap_InvariantToOrder(t *testing.T) {
	set := regionSet()
	want, err := RankAndGap("F", set, 7.89, insight.HigherIsBetter)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]GroupValue(nil), set...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := RankAndGap("F", shuffled, 7.89, insight.HigherIsBetter)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRankAndGap_LowerIsBetter(t *testing.T) {
	res, err := RankAndGap("F", regionSet(), 7.89, insight.LowerIsBetter)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Rank)
}

func TestRankAndGap_TiesBrokenByGroup(t *testing.T) {
	set := []GroupValue{{Group: "zeta", Value: 5}, {Group: "alpha", Value: 5}, {Group: "mid", Value: 9}}

	alpha, err := RankAndGap("alpha", set, 5, insight.HigherIsBetter)
	require.NoError(t, err)
	zeta, err := RankAndGap("zeta", set, 5, insight.HigherIsBetter)
	require.NoError(t, err)

	assert.Equal(t, 2, alpha.Rank)
	assert.Equal(t, 3, zeta.Rank)
}

func TestRankAndGap_Errors(t *testing.T) {
	_, err := RankAndGap("A", nil, 1, insight.HigherIsBetter)
	assert.ErrorIs(t, err, core.ErrEmptyDataset)

	_, err = RankAndGap("missing", regionSet(), 7.89, insight.HigherIsBetter)
	assert.ErrorIs(t, err, core.ErrGroupNotFound)

	_, err = RankAndGap("A", regionSet(), 0, insight.HigherIsBetter)
	assert.ErrorIs(t, err, core.ErrZeroDenominator)
}

func TestSortByPerformance_DoesNotMutate(t *testing.T) {
	set := regionSet()
	first := set[0]
	_ = SortByPerformance(set, insight.LowerIsBetter)
	assert.Equal(t, first, set[0])
}
