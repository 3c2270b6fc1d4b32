// Package compiler computes the Minimum Execution Cycle (MEC) of every node
// in a rewritten dependency graph: the earliest logical cycle by which a
// node's result becomes visible to its dependents, assuming no structural
// hazards beyond the single-PE-per-node and single-NFU resource model.
//
// MEC is a lower bound, not a schedule. The scheduler (package
// internal/scheduler) is responsible for realizing an actual dispatch order
// that respects MEC deadlines along with the PE pool's finite capacity.
package compiler

import (
	"fmt"

	"github.com/sptrsv/sptrsv-sim/internal/dag"
	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
)

// MECMap maps a node id to its computed MEC value.
type MECMap map[string]int

// Result holds the outcome of a compile pass.
type Result struct {
	MEC    MECMap
	MaxMEC int
}

// nfuSchedule tracks the single NFU's next free physical cycle across the
// whole compile pass, so that two FUSION nodes ready in the same cycle are
// serialized rather than both assumed to start immediately. This mirrors
// the reference compiler's nfu_next_free_time scoreboard.
type nfuSchedule struct {
	nextFree int
}

// Compile walks g in ascending level order and computes every node's MEC.
// Level order is sufficient topological order because a rewrite pass never
// produces a node whose level is lower than any of its parents'.
func Compile(g *dag.DAG) (*Result, error) {
	mec := make(MECMap, g.Len())
	nfu := &nfuSchedule{}
	maxMEC := 0

	for _, n := range g.NodesByLevel() {
		parentMECs := make([]int, 0, len(n.Parents))
		for _, pid := range n.Parents {
			v, ok := mec[pid]
			if !ok {
				return nil, apperrors.Wrap(apperrors.CodeMissingMec,
					fmt.Sprintf("parent %q of node %q has no computed mec yet (level ordering violated)", pid, n.ID), nil)
			}
			parentMECs = append(parentMECs, v)
		}

		var m int
		switch n.Kind {
		case dag.KindFusion:
			m = calcFusionNode(parentMECs, nfu)
		default:
			m = calcPENode(n.Kind, parentMECs)
		}

		mec[n.ID] = m
		if m > maxMEC {
			maxMEC = m
		}
	}

	return &Result{MEC: mec, MaxMEC: maxMEC}, nil
}

// calcPENode computes the MEC of a NORMAL or PARTIAL node: a single PE
// serially accumulates one incoming edge per cycle, processing parents in
// ascending arrival order (data-driven, earliest-ready-first), then a
// NORMAL node spends one additional cycle on its update.
func calcPENode(kind dag.Kind, parentMECs []int) int {
	if len(parentMECs) == 0 {
		// Root node: ready in the first cycle.
		return 1
	}

	sorted := append([]int(nil), parentMECs...)
	insertionSortInts(sorted)

	current := 0
	for _, arrival := range sorted {
		start := current
		if arrival > start {
			start = arrival
		}
		current = start + 1
	}

	if kind == dag.KindNormal {
		return current + 1
	}
	return current
}

// calcFusionNode computes the MEC of a FUSION node: it may begin combining
// its PARTIAL parents only once all of them have produced their partial sum
// (data ready) and the shared NFU is free (resource ready). Execution takes
// one cycle, after which the NFU is free again, and the result becomes
// visible to dependents one further write-back cycle later.
func calcFusionNode(parentMECs []int, nfu *nfuSchedule) int {
	dataReady := 0
	for _, v := range parentMECs {
		if v > dataReady {
			dataReady = v
		}
	}

	start := dataReady
	if nfu.nextFree > start {
		start = nfu.nextFree
	}

	nfu.nextFree = start + 1
	return start + 2
}

// insertionSortInts sorts small slices without incurring sort.Slice's
// reflection overhead; node fan-in after rewriting is bounded by the chunk
// size, so this stays fast.
func insertionSortInts(a []int) {
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i - 1
		for j >= 0 && a[j] > v {
			a[j+1] = a[j]
			j--
		}
		a[j+1] = v
	}
}
