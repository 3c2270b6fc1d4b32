package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ResolvesParents(t *testing.T) {
	nodes := []*Node{
		{ID: "1", Kind: KindNormal, Parents: nil, Level: 0},
		{ID: "2", Kind: KindNormal, Parents: []string{"1"}, Level: 1},
	}
	g, err := New(nodes)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.NotNil(t, g.Node("1"))
	assert.Nil(t, g.Node("missing"))
}

func TestNew_UnresolvedParentIsMalformed(t *testing.T) {
	nodes := []*Node{
		{ID: "1", Kind: KindNormal, Parents: []string{"ghost"}, Level: 0},
	}
	_, err := New(nodes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unresolved parent")
}

func TestNew_DuplicateIDIsMalformed(t *testing.T) {
	nodes := []*Node{
		{ID: "1", Kind: KindNormal, Level: 0},
		{ID: "1", Kind: KindNormal, Level: 1},
	}
	_, err := New(nodes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNew_DetectsCycle(t *testing.T) {
	nodes := []*Node{
		{ID: "a", Parents: []string{"b"}},
		{ID: "b", Parents: []string{"a"}},
	}
	_, err := New(nodes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestNodesByLevel_StableSort(t *testing.T) {
	nodes := []*Node{
		{ID: "c", Level: 1},
		{ID: "a", Level: 0},
		{ID: "b", Level: 0},
	}
	g, err := New(nodes)
	require.NoError(t, err)

	sorted := g.NodesByLevel()
	require.Len(t, sorted, 3)
	assert.Equal(t, "a", sorted[0].ID)
	assert.Equal(t, "b", sorted[1].ID)
	assert.Equal(t, "c", sorted[2].ID)
}

func TestChildren_BuildsAdjacency(t *testing.T) {
	nodes := []*Node{
		{ID: "1"},
		{ID: "2", Parents: []string{"1"}},
		{ID: "3", Parents: []string{"1"}},
	}
	g, err := New(nodes)
	require.NoError(t, err)

	children := g.Children()
	assert.ElementsMatch(t, []string{"2", "3"}, children["1"])
}

func TestNodeClone_IsIndependent(t *testing.T) {
	n := &Node{ID: "1", Parents: []string{"a", "b"}}
	c := n.Clone()
	c.Parents[0] = "z"
	assert.Equal(t, "a", n.Parents[0])
	assert.Equal(t, "z", c.Parents[0])
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("FUSION")
	require.NoError(t, err)
	assert.Equal(t, KindFusion, k)

	_, err = ParseKind("BOGUS")
	assert.Error(t, err)
}
