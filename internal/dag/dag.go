package dag

import (
	"fmt"
	"sort"

	"github.com/sptrsv/sptrsv-sim/pkg/collections"
	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
)

// DAG is a validated dependency graph: every parent referenced by a node is
// present, and the graph contains no cycle.
type DAG struct {
	nodes map[string]*Node
	// order preserves the order nodes were supplied in, so that output
	// (rewritten DAG JSON, MEC debug text) is deterministic and matches the
	// input's node ordering where the source doesn't otherwise impose one.
	order []string
}

// New validates a flat slice of nodes and builds a DAG from them.
//
// Validation enforces that every parent id resolves to a node present in
// the slice and that the resulting graph has no cycle. It does not require
// level monotonicity; callers that care about level ordering (the compiler)
// sort nodes by level themselves.
func New(nodes []*Node) (*DAG, error) {
	g := &DAG{
		nodes: make(map[string]*Node, len(nodes)),
		order: make([]string, 0, len(nodes)),
	}
	for _, n := range nodes {
		if _, exists := g.nodes[n.ID]; exists {
			return nil, apperrors.Wrap(apperrors.CodeMalformedDag,
				fmt.Sprintf("duplicate node id %q", n.ID), nil)
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	for _, n := range nodes {
		for _, p := range n.Parents {
			if _, ok := g.nodes[p]; !ok {
				return nil, apperrors.Wrap(apperrors.CodeMalformedDag,
					fmt.Sprintf("node %q references unresolved parent %q", n.ID, p), nil)
			}
		}
	}

	if err := g.detectCycle(); err != nil {
		return nil, err
	}

	return g, nil
}

// Node returns the node with the given id, or nil if it is not present.
func (g *DAG) Node(id string) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes in the DAG.
func (g *DAG) Len() int {
	return len(g.order)
}

// Nodes returns the DAG's nodes in their original insertion order.
func (g *DAG) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// NodesByLevel returns the DAG's nodes sorted by ascending level. Ties are
// broken by insertion order, matching the reference compiler's
// level-stable sort.
func (g *DAG) NodesByLevel() []*Node {
	out := g.Nodes()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Level < out[j].Level
	})
	return out
}

// Children returns, for every node id, the list of node ids that name it as
// a parent, in the order those children were inserted. This is the
// adjacency list the scheduler walks forward from a finished node.
func (g *DAG) Children() map[string][]string {
	adj := make(map[string][]string)
	for _, id := range g.order {
		n := g.nodes[id]
		for _, p := range n.Parents {
			adj[p] = append(adj[p], id)
		}
	}
	return adj
}

// index assigns each node id a dense integer index, used for bitset-backed
// cycle detection.
func (g *DAG) index() map[string]int {
	idx := make(map[string]int, len(g.order))
	for i, id := range g.order {
		idx[id] = i
	}
	return idx
}

// detectCycle runs a recursive DFS over the parent relation using a
// Bitset for the visiting/visited marks, reporting the first cycle found.
func (g *DAG) detectCycle() error {
	idx := g.index()
	visiting := collections.NewBitset(len(g.order))
	visited := collections.NewBitset(len(g.order))

	var walk func(id string) error
	walk = func(id string) error {
		i := idx[id]
		if visited.Test(i) {
			return nil
		}
		if visiting.Test(i) {
			return apperrors.Wrap(apperrors.CodeMalformedDag,
				fmt.Sprintf("cycle detected at node %q", id), nil)
		}
		visiting.Set(i)
		for _, p := range g.nodes[id].Parents {
			if err := walk(p); err != nil {
				return err
			}
		}
		visiting.Clear(i)
		visited.Set(i)
		return nil
	}

	for _, id := range g.order {
		if err := walk(id); err != nil {
			return err
		}
	}
	return nil
}
