package dag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNodes_CanonicalFields(t *testing.T) {
	data := []byte(`[
		{"id": "1", "parents": [], "level": 0},
		{"id": "2", "type": "NORMAL", "parents": ["1"], "level": 1, "cost": 2}
	]`)
	g, err := ParseNodes(data)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	n2 := g.Node("2")
	require.NotNil(t, n2)
	assert.Equal(t, KindNormal, n2.Kind)
	assert.Equal(t, 2, n2.Cost)
}

func TestParseNodes_LegacyFields(t *testing.T) {
	data := []byte(`[
		{"row_index": 1, "dependency_nodes": [], "level": 0},
		{"row_index": 2, "dependency_nodes": [1], "level": 1}
	]`)
	g, err := ParseNodes(data)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	n2 := g.Node("2")
	require.NotNil(t, n2)
	assert.Equal(t, []string{"1"}, n2.Parents)
	// default cost is fan-in + 1 when not supplied
	assert.Equal(t, 2, n2.Cost)
}

func TestParseNodes_NumericAndStringIDsMixFreely(t *testing.T) {
	data := []byte(`[
		{"id": 1, "parents": [], "level": 0},
		{"id": "P_1_0", "parents": ["1"], "level": 0, "type": "PARTIAL"}
	]`)
	g, err := ParseNodes(data)
	require.NoError(t, err)
	p := g.Node("P_1_0")
	require.NotNil(t, p)
	assert.Equal(t, KindPartial, p.Kind)
	assert.Equal(t, []string{"1"}, p.Parents)
}

func TestParseNodes_MalformedJSONIsWrapped(t *testing.T) {
	_, err := ParseNodes([]byte(`not json`))
	require.Error(t, err)
}

func TestParseNodes_UnresolvedParentIsRejected(t *testing.T) {
	data := []byte(`[{"id": "1", "parents": ["2"], "level": 0}]`)
	_, err := ParseNodes(data)
	require.Error(t, err)
}

func TestDAG_WriteRoundTrips(t *testing.T) {
	nodes := []*Node{
		{ID: "1", Kind: KindNormal, Level: 0, Cost: 1},
		{ID: "2", Kind: KindFusion, Parents: []string{"1"}, Level: 1, Cost: 2},
	}
	g, err := New(nodes)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, g.Write(&buf))

	g2, err := ParseNodes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, g.Len(), g2.Len())
	assert.Equal(t, KindFusion, g2.Node("2").Kind)
}
