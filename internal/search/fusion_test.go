package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRanksEmpty(t *testing.T) {
	results := FuseRanks(nil, nil, 0.6, 60)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestFuseRanksLexicalOnly(t *testing.T) {
	results := FuseRanks(nil, []int64{7, 3, 9}, 0.6, 60)

	require.Len(t, results, 3)
	assert.Equal(t, int64(7), results[0].ID)
	assert.Equal(t, int64(3), results[1].ID)
	assert.Equal(t, int64(9), results[2].ID)
	// Absent semantic list contributes nothing, not a penalty rank.
	assert.InDelta(t, 0.4/61.0, results[0].Score, 1e-12)
}

func TestFuseRanksSemanticOnly(t *testing.T) {
	results := FuseRanks([]int64{5, 2}, nil, 0.6, 60)

	require.Len(t, results, 2)
	assert.Equal(t, int64(5), results[0].ID)
	assert.InDelta(t, 0.6/61.0, results[0].Score, 1e-12)
	assert.InDelta(t, 0.6/62.0, results[1].Score, 1e-12)
}

func TestFuseRanksBothLists(t *testing.T) {
	// Entity 1: semantic rank 1, lexical rank 2.
	// Entity 2: semantic rank 2, lexical rank 1.
	results := FuseRanks([]int64{1, 2}, []int64{2, 1}, 0.6, 60)

	require.Len(t, results, 2)
	want1 := 0.6/61.0 + 0.4/62.0
	want2 := 0.6/62.0 + 0.4/61.0
	assert.Equal(t, int64(1), results[0].ID, "higher alpha favors the semantic leader")
	assert.InDelta(t, want1, results[0].Score, 1e-12)
	assert.InDelta(t, want2, results[1].Score, 1e-12)
}

func TestFuseRanksTieBreaksByIDAscending(t *testing.T) {
	// Symmetric ranks with alpha 0.5 give identical scores.
	results := FuseRanks([]int64{9, 4}, []int64{4, 9}, 0.5, 60)

	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-12)
	assert.Equal(t, int64(4), results[0].ID)
	assert.Equal(t, int64(9), results[1].ID)
}

func TestFuseRanksMonotonicity(t *testing.T) {
	// Entity 10 outranks entity 20 in both lists, so its fused score can
	// never be lower, at any alpha.
	for _, alpha := range []float64{0.0, 0.3, 0.5, 0.7, 1.0} {
		results := FuseRanks([]int64{10, 20}, []int64{10, 20}, alpha, 60)
		require.Len(t, results, 2)

		scores := map[int64]float64{}
		for _, r := range results {
			scores[r.ID] = r.Score
		}
		assert.GreaterOrEqual(t, scores[10], scores[20], "alpha %.1f", alpha)
	}
}

func TestFuseRanksPartialOverlap(t *testing.T) {
	// Entity 3 is in both lists; 1 only semantic, 2 only lexical.
	results := FuseRanks([]int64{3, 1}, []int64{3, 2}, 0.5, 60)

	require.Len(t, results, 3)
	assert.Equal(t, int64(3), results[0].ID, "dual presence must outrank single-list entries at equal ranks")
}
