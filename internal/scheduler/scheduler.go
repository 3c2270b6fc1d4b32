package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/sptrsv/sptrsv-sim/internal/compiler"
	"github.com/sptrsv/sptrsv-sim/internal/dag"
	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
)

// engine holds the full mutable runtime state of one simulation run. It is
// not safe for concurrent use and is never shared across DAGs: one engine
// processes exactly one graph from start to finish.
type engine struct {
	cfg Config

	adj      map[string][]string
	nodes    map[string]nodeInfo
	order    []string // deterministic node iteration order, source insertion order
	total    int
	nodeRem  map[string]int // remaining non-fusion dependency count
	fusionRem map[string]int // remaining fusion parent count

	currentLC          int
	pc                 int
	finished           map[string]bool
	finishedLastLC      []string

	optionalQueue  []task
	mandatoryQueue []task

	peEvents  []event
	nfuEvents []event

	freePEs      int
	nfuBusyTimer int

	trace       []TraceEntry
	lcSnapshots []LCSnapshot
	stats       Stats
}

// Run simulates dispatch of g's edges and updates over cfg's PE/NFU
// resources, using mec as each node's scheduling deadline, until every node
// has finished or the logical-cycle budget is exhausted.
func Run(ctx context.Context, g *dag.DAG, mec compiler.MECMap, cfg Config) (*Result, error) {
	if cfg.PELimit <= 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "pe limit must be positive", nil)
	}
	if cfg.NFULimit != 1 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "exactly one nfu is supported", nil)
	}
	if cfg.MaxLC <= 0 {
		cfg.MaxLC = DefaultConfig().MaxLC
	}

	e := &engine{
		cfg:       cfg,
		adj:       make(map[string][]string),
		nodes:     make(map[string]nodeInfo, g.Len()),
		nodeRem:   make(map[string]int),
		fusionRem: make(map[string]int),
		finished:  make(map[string]bool, g.Len()),
		freePEs:   cfg.PELimit,
	}

	for _, n := range g.Nodes() {
		m, ok := mecMapLookup(mec, n.ID)
		if !ok {
			return nil, apperrors.Wrap(apperrors.CodeMissingMec,
				fmt.Sprintf("node %q has no entry in the mec map", n.ID), nil)
		}
		var nk opKindNode
		switch n.Kind {
		case dag.KindPartial:
			nk = nodePartial
		case dag.KindFusion:
			nk = nodeFusion
		default:
			nk = nodeNormal
		}
		e.nodes[n.ID] = nodeInfo{kind: nk, mec: m, parents: n.Parents}
		for _, p := range n.Parents {
			e.adj[p] = append(e.adj[p], n.ID)
		}
		if nk == nodeFusion {
			e.fusionRem[n.ID] = len(n.Parents)
		} else {
			e.nodeRem[n.ID] = len(n.Parents)
		}
		e.order = append(e.order, n.ID)
	}
	e.total = g.Len()

	timedOut := false
	for len(e.finished) < e.total {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(apperrors.CodeTimeout, "scheduling cancelled", ctx.Err())
		}
		if e.currentLC > cfg.MaxLC {
			timedOut = true
			break
		}
		e.advanceLC()
	}

	return &Result{
		Stats:       e.stats,
		Trace:       e.trace,
		LCSnapshots: e.lcSnapshots,
		FinalLC:     e.currentLC,
		TimedOut:    timedOut,
	}, nil
}

// advanceLC runs one full logical cycle: batch-release the edges unblocked
// by nodes finished in the previous LC, promote any node whose MEC deadline
// has now arrived (or whose slack has collapsed) into the mandatory queue,
// snapshot the queues, then drain the resulting physical-cycle loop.
func (e *engine) advanceLC() {
	e.currentLC++

	// Step A: release edge tasks for children of nodes that physically
	// finished in the previous LC.
	for _, srcID := range e.finishedLastLC {
		for _, childID := range e.adj[srcID] {
			child := e.nodes[childID]
			if child.kind == nodeFusion {
				// Fusion's dependency count was already decremented at
				// completion time; no edge task to release.
				continue
			}
			e.optionalQueue = append(e.optionalQueue, task{
				kind:   opEdge,
				target: childID,
				src:    srcID,
				mec:    child.mec,
			})
		}
	}
	e.finishedLastLC = nil

	// Step B: any unfinished node whose data dependencies are already
	// satisfied and whose MEC deadline has arrived becomes mandatory
	// (its UPDATE or FUSION op), unless it's already queued or running.
	for _, id := range e.order {
		info := e.nodes[id]
		if e.finished[id] || info.mec > e.currentLC {
			continue
		}
		ready := false
		if info.kind == nodeFusion {
			ready = e.fusionRem[id] == 0
		} else if info.kind == nodeNormal {
			ready = e.nodeRem[id] == 0
		}
		if !ready {
			continue
		}

		opType := opUpdate
		if info.kind == nodeFusion {
			opType = opFusion
		}
		if e.isQueuedOrRunning(id, opType) {
			continue
		}
		e.mandatoryQueue = append(e.mandatoryQueue, task{
			kind:   opType,
			target: id,
			mec:    info.mec,
			slack:  -999,
		})
	}

	// Step C: slack-based promotion. Group optional edges by target,
	// recompute slack, and promote at most one edge per target once its
	// slack has collapsed to zero or below.
	e.promoteBySlack()

	e.recordLCSnapshot()

	e.finishedLastLC = e.runPCLoop()
}

// isQueuedOrRunning reports whether a node's UPDATE/FUSION op is already
// present in the mandatory queue or occupying a PE/NFU event, preventing a
// duplicate mandatory task from being created on a later LC before the
// first one dispatches.
func (e *engine) isQueuedOrRunning(target string, kind opKind) bool {
	for _, t := range e.mandatoryQueue {
		if t.target == target && (t.kind == opUpdate || t.kind == opFusion) {
			return true
		}
	}
	for _, ev := range e.peEvents {
		if ev.target == target && ev.kind == kind {
			return true
		}
	}
	for _, ev := range e.nfuEvents {
		if ev.target == target && ev.kind == kind {
			return true
		}
	}
	return false
}

// slack returns how much room remains before a node's deadline is missed:
// its MEC minus the current LC minus the number of dependency edges it is
// still waiting on.
func (e *engine) slack(target string) int {
	info := e.nodes[target]
	rem := e.nodeRem[target]
	return info.mec - e.currentLC - rem
}

// promoteBySlack regroups the optional queue by target, and for any target
// whose slack has reached zero or gone negative, promotes exactly one of
// its pending edges into the mandatory queue -- matching the MEC model's
// one-operation-per-cycle assumption -- leaving the rest optional.
func (e *engine) promoteBySlack() {
	byTarget := make(map[string][]task)
	var order []string
	for _, t := range e.optionalQueue {
		if _, seen := byTarget[t.target]; !seen {
			order = append(order, t.target)
		}
		byTarget[t.target] = append(byTarget[t.target], t)
	}
	e.optionalQueue = nil

	for _, tid := range order {
		tasks := byTarget[tid]
		s := e.slack(tid)
		for i := range tasks {
			tasks[i].slack = s
		}
		if s <= 0 && len(tasks) > 0 {
			e.mandatoryQueue = append(e.mandatoryQueue, tasks[0])
			e.optionalQueue = append(e.optionalQueue, tasks[1:]...)
		} else {
			e.optionalQueue = append(e.optionalQueue, tasks...)
		}
	}
}

// runPCLoop drains the mandatory queue at increasing physical cycles,
// retiring finished events before issuing new ones each cycle, and returns
// the ids of nodes that finished (logically, for FUSION at dispatch time;
// for UPDATE at dispatch time) during this logical cycle.
func (e *engine) runPCLoop() []string {
	var finishedThisLC []string

	firstPass := true
	for firstPass || len(e.mandatoryQueue) > 0 {
		firstPass = false
		e.pc++

		e.retire()

		locked := make(map[string]bool, len(e.peEvents))
		for _, ev := range e.peEvents {
			locked[ev.target] = true
		}

		var dispatched []string

		sort.SliceStable(e.mandatoryQueue, func(i, j int) bool {
			return e.mandatoryQueue[i].slack < e.mandatoryQueue[j].slack
		})
		var stillMandatory []task
		for _, t := range e.mandatoryQueue {
			ok := e.tryDispatch(t, locked, &dispatched)
			if ok {
				if t.kind == opUpdate || t.kind == opFusion {
					finishedThisLC = append(finishedThisLC, t.target)
				}
			} else {
				stillMandatory = append(stillMandatory, t)
			}
		}
		e.mandatoryQueue = stillMandatory

		sort.SliceStable(e.optionalQueue, func(i, j int) bool {
			if e.optionalQueue[i].slack != e.optionalQueue[j].slack {
				return e.optionalQueue[i].slack < e.optionalQueue[j].slack
			}
			return e.optionalQueue[i].mec < e.optionalQueue[j].mec
		})
		var stillOptional []task
		for _, t := range e.optionalQueue {
			if e.freePEs <= 0 {
				stillOptional = append(stillOptional, t)
				continue
			}
			if !e.tryDispatch(t, locked, &dispatched) {
				stillOptional = append(stillOptional, t)
			}
		}
		e.optionalQueue = stillOptional

		e.recordCycle(dispatched)

		if len(e.mandatoryQueue) == 0 {
			break
		}
	}

	return finishedThisLC
}

// retire advances in-flight events and applies every event whose
// finishTime has arrived, then recomputes free-PE count and ticks the NFU
// busy timer down.
func (e *engine) retire() {
	var stillPE []event
	for _, ev := range e.peEvents {
		if ev.finishTime <= e.pc {
			e.complete(ev)
		} else {
			stillPE = append(stillPE, ev)
		}
	}
	e.peEvents = stillPE
	e.freePEs = e.cfg.PELimit - len(e.peEvents)

	var stillNFU []event
	for _, ev := range e.nfuEvents {
		if ev.finishTime <= e.pc {
			e.complete(ev)
		} else {
			stillNFU = append(stillNFU, ev)
		}
	}
	e.nfuEvents = stillNFU

	if e.nfuBusyTimer > 0 {
		e.nfuBusyTimer--
	}
}

// tryDispatch attempts to issue t onto a PE or the NFU, enforcing the
// structural hazards: a target already occupying a PE this cycle cannot
// receive a second op, and the NFU accepts at most one FUSION at a time.
func (e *engine) tryDispatch(t task, locked map[string]bool, dispatched *[]string) bool {
	if locked[t.target] {
		return false
	}

	switch t.kind {
	case opFusion:
		if e.nfuBusyTimer != 0 {
			return false
		}
		e.nfuBusyTimer = 1
		e.nfuEvents = append(e.nfuEvents, event{
			kind: opFusion, target: t.target, startPC: e.pc,
			finishTime: e.pc + 2, mec: t.mec,
		})
		*dispatched = append(*dispatched, fmt.Sprintf("NFU:%s", t.target))
		return true

	case opEdge, opUpdate:
		if e.freePEs <= 0 {
			return false
		}
		e.freePEs--
		op := fmt.Sprintf("Update(%s)", t.target)
		if t.kind == opEdge {
			op = fmt.Sprintf("Edge(%s->%s)", t.src, t.target)
		}
		e.peEvents = append(e.peEvents, event{
			kind: t.kind, target: t.target, src: t.src, startPC: e.pc,
			finishTime: e.pc + 1, mec: t.mec,
		})
		locked[t.target] = true
		*dispatched = append(*dispatched, op)
		return true
	}
	return false
}

// complete applies the side effects of a retired event: an EDGE completion
// decrements its target's remaining dependency count and, for a PARTIAL
// target whose count reaches zero, marks it finished; an UPDATE or FUSION
// completion always marks its target finished.
func (e *engine) complete(ev event) {
	switch ev.kind {
	case opEdge:
		e.nodeRem[ev.target]--
		if e.nodes[ev.target].kind == nodePartial && e.nodeRem[ev.target] == 0 {
			e.markFinished(ev.target)
		}
	case opUpdate, opFusion:
		e.markFinished(ev.target)
	}
}

// markFinished records a node as physically complete and decrements the
// fusion-parent counter of any FUSION child waiting on it. Edge-task
// release for non-fusion children happens at the start of the next LC
// (Step A), not here.
func (e *engine) markFinished(id string) {
	e.finished[id] = true
	for _, childID := range e.adj[id] {
		if e.nodes[childID].kind == nodeFusion {
			e.fusionRem[childID]--
		}
	}
}

func (e *engine) recordLCSnapshot() {
	mand := make([]string, 0, len(e.mandatoryQueue))
	for _, t := range e.mandatoryQueue {
		switch t.kind {
		case opEdge:
			mand = append(mand, fmt.Sprintf("E(%s->%s)", t.src, t.target))
		case opUpdate:
			mand = append(mand, fmt.Sprintf("U(%s)", t.target))
		case opFusion:
			mand = append(mand, fmt.Sprintf("F(%s)", t.target))
		}
	}
	opt := make([]string, 0, len(e.optionalQueue))
	for _, t := range e.optionalQueue {
		opt = append(opt, fmt.Sprintf("E(%s->%s,S:%d)", t.src, t.target, t.slack))
	}
	e.lcSnapshots = append(e.lcSnapshots, LCSnapshot{
		LC:        e.currentLC,
		PCStart:   e.pc + 1,
		Mandatory: mand,
		Optional:  opt,
	})
}

func (e *engine) recordCycle(dispatched []string) {
	peBusy := e.cfg.PELimit - e.freePEs
	nfuBusy := 0
	if e.nfuBusyTimer > 0 {
		nfuBusy = 1
	}
	e.stats.PEActiveCycles += peBusy
	e.stats.NFUActiveCycles += nfuBusy
	e.stats.TotalCycles = e.pc

	if len(dispatched) > 0 {
		e.trace = append(e.trace, TraceEntry{
			LC: e.currentLC, PC: e.pc, PEBusy: peBusy, NFUBusy: nfuBusy,
			Ops: dispatched,
		})
	}
}
