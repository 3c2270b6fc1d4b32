// Package scheduler runs the cycle-accurate, heterogeneous LC/PC-driven
// simulation that dispatches a compiled dependency graph's edge and update
// operations onto a fixed pool of PEs plus a single shared NFU.
//
// The simulation is deterministic and single-threaded by design: one
// logical cycle (LC) advances the MEC deadlines and releases the edge
// operations a finished node unblocked, while nested physical cycles (PC)
// retire in-flight operations and issue new ones against the structural
// hazards (PE occupancy, NFU occupancy) of the target hardware.
package scheduler

import "github.com/sptrsv/sptrsv-sim/internal/compiler"

// opKind identifies what a dispatched operation actually does.
type opKind int

const (
	opEdge opKind = iota
	opUpdate
	opFusion
)

func (k opKind) String() string {
	switch k {
	case opEdge:
		return "EDGE"
	case opUpdate:
		return "UPDATE"
	case opFusion:
		return "FUSION"
	default:
		return "UNKNOWN"
	}
}

// task is a unit of work waiting for dispatch: either an accumulation edge
// (src -> target) or a target node's own update/fusion.
type task struct {
	kind   opKind
	target string
	src    string // only set for opEdge
	mec    int
	slack  int
}

// event is an in-flight operation occupying a PE or the NFU until
// finishTime.
type event struct {
	kind       opKind
	target     string
	src        string
	startPC    int
	finishTime int
	mec        int
}

// Config bounds the simulated hardware and the simulation's own runaway
// guard.
type Config struct {
	// PELimit is the number of PEs available for EDGE and UPDATE
	// operations, each occupying one PE for one physical cycle.
	PELimit int
	// NFULimit is the number of fusion units available. The reference
	// hardware and this simulator model exactly one NFU; the field is kept
	// for forward compatibility with a wider accelerator but any value
	// other than 1 is rejected today.
	NFULimit int
	// MaxLC bounds the number of logical cycles the simulation will run
	// before declaring a timeout.
	MaxLC int
}

// DefaultConfig matches the reference scheduler's defaults.
func DefaultConfig() Config {
	return Config{PELimit: 10, NFULimit: 1, MaxLC: 5000}
}

// nodeInfo is the scheduler's read-only view of one graph node.
type nodeInfo struct {
	kind    opKindNode
	mec     int
	parents []string
}

// opKindNode mirrors dag.Kind without importing it into every call site;
// kept distinct from opKind since a node's kind and the operation it is
// currently running are different concepts (a NORMAL node's EDGE ops and
// its UPDATE op share one nodeInfo.kind but two different opKinds).
type opKindNode int

const (
	nodeNormal opKindNode = iota
	nodePartial
	nodeFusion
)

// Stats summarizes resource utilization across the whole run.
type Stats struct {
	TotalCycles    int
	PEActiveCycles int
	NFUActiveCycles int
}

// Result is the full output of a scheduling run.
type Result struct {
	Stats       Stats
	Trace       []TraceEntry
	LCSnapshots []LCSnapshot
	FinalLC     int
	TimedOut    bool
}

// TraceEntry is one physical-cycle line of dispatch activity, written only
// for cycles where at least one operation was issued.
type TraceEntry struct {
	LC      int
	PC      int
	PEBusy  int
	NFUBusy int
	Ops     []string
}

// LCSnapshot records the mandatory/optional queue contents at the start of
// a logical cycle, before any physical-cycle dispatch happens. It exists
// purely for human-facing debugging output.
type LCSnapshot struct {
	LC        int
	PCStart   int
	Mandatory []string
	Optional  []string
}

func mecMapLookup(mec compiler.MECMap, id string) (int, bool) {
	v, ok := mec[id]
	return v, ok
}
