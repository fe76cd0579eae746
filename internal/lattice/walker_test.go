package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pathKeys(path []Anchor) []string {
	var keys []string
	for _, a := range path {
		keys = append(keys, a.Node.Key())
	}
	return keys
}

func assertFullCoverage(t *testing.T, g *Grid, path []Anchor) {
	t.Helper()
	pos := 0
	for _, a := range path {
		require.Equal(t, pos, a.Location, "path must be contiguous")
		pos += a.Node.SpanningLength()
	}
	require.Equal(t, g.Length(), pos, "path must cover the whole grid")
}

func TestWalkEmptyGrid(t *testing.T) {
	g := NewGrid(testModel())
	assert.Empty(t, Walk(g))
}

func TestWalkPrefersPhraseNode(t *testing.T) {
	g := NewGrid(testModel())
	g.InsertReadingAtCursor("ㄋㄧˇ")
	g.InsertReadingAtCursor("ㄏㄠˇ")

	path := Walk(g)
	assertFullCoverage(t, g, path)
	// 你好 at -2.0 beats 你+好 at -7.1.
	require.Len(t, path, 1)
	assert.Equal(t, "你好", path[0].Node.CurrentValue())
}

func TestWalkSingleNode(t *testing.T) {
	g := NewGrid(testModel())
	g.InsertReadingAtCursor("ㄕˋ")

	path := Walk(g)
	require.Len(t, path, 1)
	assert.Equal(t, "是", path[0].Node.CurrentValue())
}

func TestWalkPinnedNodeForcesPath(t *testing.T) {
	g := NewGrid(testModel())
	g.InsertReadingAtCursor("ㄋㄧˇ")
	g.InsertReadingAtCursor("ㄏㄠˇ")

	// Pinning 妳 on the single-reading node must pull the path away
	// from the higher-scoring phrase node.
	_, ok := g.FixNodeSelectedCandidate(1, "妳")
	require.True(t, ok)

	path := Walk(g)
	assertFullCoverage(t, g, path)
	require.Len(t, path, 2)
	assert.Equal(t, "妳", path[0].Node.CurrentValue())
	assert.Equal(t, "好", path[1].Node.CurrentValue())
}

func TestWalkTieBreakPrefersEarliestNode(t *testing.T) {
	// Both decompositions score exactly -2.0: the single-reading pair
	// a+b, and the two-reading node ab. The node discovered first at
	// position 0 is the shorter one (ascending length), so the path
	// must go through "A" then "B".
	model := stubModel{
		"a":   {{Key: "a", Value: "A", Score: -1.0}},
		"b":   {{Key: "b", Value: "B", Score: -1.0}},
		"a-b": {{Key: "a-b", Value: "AB", Score: -2.0}},
	}
	g := NewGrid(model)
	g.InsertReadingAtCursor("a")
	g.InsertReadingAtCursor("b")

	path := Walk(g)
	assertFullCoverage(t, g, path)
	assert.Equal(t, []string{"a", "b"}, pathKeys(path))

	// The rule is deterministic: walking again yields the same path.
	assert.Equal(t, pathKeys(path), pathKeys(Walk(g)))
}

func TestWalkScoreOverrideBiasesPath(t *testing.T) {
	g := NewGrid(testModel())
	g.InsertReadingAtCursor("ㄋㄧˇ")
	g.InsertReadingAtCursor("ㄏㄠˇ")

	// Raise 妳 just above the phrase node's advantage.
	g.OverrideNodeScoreForSelectedCandidate(1, "妳", 5.0)

	path := Walk(g)
	require.Len(t, path, 2)
	assert.Equal(t, "妳", path[0].Node.CurrentValue())
}

func TestWalkCoverageAfterMutations(t *testing.T) {
	g := NewGrid(testModel())
	readings := []string{"ㄕˋ", "ㄋㄧˇ", "ㄏㄠˇ", "ㄕˋ"}
	for _, r := range readings {
		g.InsertReadingAtCursor(r)
		assertFullCoverage(t, g, Walk(g))
	}
	g.SetCursor(2)
	g.DeleteReadingBeforeCursor()
	assertFullCoverage(t, g, Walk(g))
}
