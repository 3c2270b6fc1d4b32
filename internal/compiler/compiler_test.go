package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sptrsv/sptrsv-sim/internal/dag"
)

func mustDAG(t *testing.T, nodes []*dag.Node) *dag.DAG {
	t.Helper()
	g, err := dag.New(nodes)
	require.NoError(t, err)
	return g
}

func TestCompile_RootNodeMECIsOne(t *testing.T) {
	g := mustDAG(t, []*dag.Node{{ID: "root", Kind: dag.KindNormal, Level: 0}})
	res, err := Compile(g)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MEC["root"])
	assert.Equal(t, 1, res.MaxMEC)
}

func TestCompile_NormalNodeAddsUpdateCycle(t *testing.T) {
	g := mustDAG(t, []*dag.Node{
		{ID: "a", Level: 0},
		{ID: "b", Level: 0},
		{ID: "n", Kind: dag.KindNormal, Parents: []string{"a", "b"}, Level: 1},
	})
	res, err := Compile(g)
	require.NoError(t, err)
	// a,b both MEC 1. Serial PE: edge(a) finishes at 2, edge(b) at 3, update at 4.
	assert.Equal(t, 4, res.MEC["n"])
}

func TestCompile_PartialNodeHasNoUpdateCycle(t *testing.T) {
	g := mustDAG(t, []*dag.Node{
		{ID: "a", Level: 0},
		{ID: "b", Level: 0},
		{ID: "p", Kind: dag.KindPartial, Parents: []string{"a", "b"}, Level: 1},
	})
	res, err := Compile(g)
	require.NoError(t, err)
	// Same as NORMAL but without the +1 update cycle.
	assert.Equal(t, 3, res.MEC["p"])
}

func TestCompile_FusionNodeAddsTwoCycles(t *testing.T) {
	g := mustDAG(t, []*dag.Node{
		{ID: "p0", Level: 0},
		{ID: "p1", Level: 0},
		{ID: "f", Kind: dag.KindFusion, Parents: []string{"p0", "p1"}, Level: 1},
	})
	res, err := Compile(g)
	require.NoError(t, err)
	// p0, p1 are root nodes (Kind unset, so NORMAL); calcPENode gives roots mec 1.
	assert.Equal(t, 1, res.MEC["p0"])
	assert.Equal(t, 1, res.MEC["p1"])
	// data ready at 1, NFU free at 0 -> start=1, mec = 1+2 = 3
	assert.Equal(t, 3, res.MEC["f"])
}

func TestCompile_NFUScoreboardSerializesConcurrentFusions(t *testing.T) {
	// Two independent fusion nodes, both data-ready at cycle 1.
	g := mustDAG(t, []*dag.Node{
		{ID: "p0", Level: 0},
		{ID: "p1", Level: 0},
		{ID: "f1", Kind: dag.KindFusion, Parents: []string{"p0"}, Level: 1},
		{ID: "f2", Kind: dag.KindFusion, Parents: []string{"p1"}, Level: 1},
	})
	res, err := Compile(g)
	require.NoError(t, err)
	// f1 processed first (stable level sort, insertion order): start=1, mec=3, nfu free at 2.
	assert.Equal(t, 3, res.MEC["f1"])
	// f2 must wait for the NFU: data ready at 1 but resource free only at 2 -> start=2, mec=4.
	assert.Equal(t, 4, res.MEC["f2"])
}

func TestCompile_MonotoneAcrossChain(t *testing.T) {
	// A chain of NORMAL nodes; each node's MEC must exceed its parent's.
	g := mustDAG(t, []*dag.Node{
		{ID: "a", Level: 0},
		{ID: "b", Kind: dag.KindNormal, Parents: []string{"a"}, Level: 1},
		{ID: "c", Kind: dag.KindNormal, Parents: []string{"b"}, Level: 2},
	})
	res, err := Compile(g)
	require.NoError(t, err)
	assert.Greater(t, res.MEC["b"], res.MEC["a"])
	assert.Greater(t, res.MEC["c"], res.MEC["b"])
	assert.Equal(t, res.MEC["c"], res.MaxMEC)
}

func TestCompile_MissingParentMECIsAnError(t *testing.T) {
	// A level-ordering violation: child at the same level as its parent with
	// a stable sort that would process it first is not representable via
	// dag.New (cycle check would catch genuine cycles), so we exercise the
	// guard directly by building an otherwise-valid DAG where a level
	// inversion slips through the rewriter's contract.
	g := mustDAG(t, []*dag.Node{
		{ID: "child", Kind: dag.KindNormal, Parents: []string{"parent"}, Level: 0},
		{ID: "parent", Level: 1},
	})
	_, err := Compile(g)
	require.Error(t, err)
}
