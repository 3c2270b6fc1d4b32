package scheduler

import (
	"context"
	"fmt"

	"github.com/sptrsv/sptrsv-sim/internal/dag"
	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
)

// baselineEvent is one operation in flight on a baseline PE: either a
// parent edge landing on its target, or a node's own accumulate/update,
// each occupying one PE for exactly one physical cycle.
type baselineEvent struct {
	target     string
	src        string
	isUpdate   bool
	finishTime int
}

// RunBaseline simulates g -- the original, un-rewritten dependency graph,
// never a Rewrite output -- on a single homogeneous pool of peLimit
// identical PEs. Every parent edge and every node's own update/accumulate
// consumes one PE for one physical cycle; there is no dedicated fusion
// unit, no MEC deadline, and no slack-based promotion, so a node that
// would be split into Partial/Fusion stages elsewhere here just burns
// through its parent edges one PE-cycle at a time before its own update
// fires. It is a flat greedy list-scheduler: whatever is ready dispatches
// to the next free PE in deterministic node order.
//
// This deliberately shares no machinery with Run's LC/PC engine -- it
// exists only as an upper-bound oracle for the compare CLI command and for
// testable property S6, and must never be handed a rewritten graph.
func RunBaseline(ctx context.Context, g *dag.DAG, peLimit int, maxPC int) (*Result, error) {
	if peLimit <= 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "pe limit must be positive", nil)
	}
	if maxPC <= 0 {
		maxPC = DefaultConfig().MaxLC
	}

	order := make([]string, 0, g.Len())
	pendingParents := make(map[string][]string, g.Len())
	finished := make(map[string]bool, g.Len())
	updateQueued := make(map[string]bool, g.Len())
	for _, n := range g.Nodes() {
		order = append(order, n.ID)
		pendingParents[n.ID] = append([]string(nil), n.Parents...)
	}
	total := g.Len()

	var inFlight []baselineEvent
	var trace []TraceEntry
	var stats Stats

	pc := 0
	doneCount := 0
	for doneCount < total {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(apperrors.CodeTimeout, "baseline scheduling cancelled", ctx.Err())
		}
		if pc > maxPC {
			stats.TotalCycles = pc
			return &Result{Stats: stats, Trace: trace, FinalLC: pc, TimedOut: true}, nil
		}
		pc++

		var stillInFlight []baselineEvent
		for _, ev := range inFlight {
			if ev.finishTime > pc {
				stillInFlight = append(stillInFlight, ev)
				continue
			}
			if ev.isUpdate {
				finished[ev.target] = true
				doneCount++
			}
			// a completed edge needs no further action: it already left its
			// target's pendingParents list at dispatch time.
		}
		inFlight = stillInFlight

		locked := make(map[string]bool, len(inFlight))
		for _, ev := range inFlight {
			locked[ev.target] = true
		}

		freePEs := peLimit - len(inFlight)
		var dispatched []string

		for _, id := range order {
			if freePEs <= 0 {
				break
			}
			if finished[id] || locked[id] {
				continue
			}
			if len(pendingParents[id]) == 0 {
				if updateQueued[id] {
					continue
				}
				inFlight = append(inFlight, baselineEvent{target: id, isUpdate: true, finishTime: pc + 1})
				updateQueued[id] = true
				locked[id] = true
				freePEs--
				dispatched = append(dispatched, fmt.Sprintf("Update(%s)", id))
				continue
			}

			parents := pendingParents[id]
			readyIdx := -1
			for i, p := range parents {
				if finished[p] {
					readyIdx = i
					break
				}
			}
			if readyIdx < 0 {
				continue
			}
			src := parents[readyIdx]
			pendingParents[id] = append(append([]string(nil), parents[:readyIdx]...), parents[readyIdx+1:]...)
			inFlight = append(inFlight, baselineEvent{target: id, src: src, finishTime: pc + 1})
			locked[id] = true
			freePEs--
			dispatched = append(dispatched, fmt.Sprintf("Edge(%s->%s)", src, id))
		}

		peBusy := len(inFlight)
		stats.PEActiveCycles += peBusy
		stats.TotalCycles = pc
		if len(dispatched) > 0 {
			trace = append(trace, TraceEntry{LC: pc, PC: pc, PEBusy: peBusy, Ops: dispatched})
		}
	}

	return &Result{Stats: stats, Trace: trace, FinalLC: pc, TimedOut: false}, nil
}
