package scheduler

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
)

// WriteTrace writes the run's dispatch trace as lines of the form
// "LC <lc> | PC <pc> | <op> <op> ...", one line per physical cycle that
// issued at least one operation.
func (r *Result) WriteTrace(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, t := range r.Trace {
		if _, err := fmt.Fprintf(bw, "LC %d | PC %d | %s\n", t.LC, t.PC, strings.Join(t.Ops, " ")); err != nil {
			return apperrors.Wrap(apperrors.CodeIOFailure, "write trace line", err)
		}
	}
	return bw.Flush()
}

// WriteTraceFile writes the run's trace to path.
func (r *Result) WriteTraceFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "create trace file", err)
	}
	defer f.Close()
	return r.WriteTrace(f)
}

// WriteLCDebug writes the per-LC mandatory/optional queue snapshots in a
// human-readable form, mirroring the reference scheduler's lc debug dump.
func (r *Result) WriteLCDebug(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, s := range r.LCSnapshots {
		if _, err := fmt.Fprintf(bw, "LC %04d starting at PC %04d\n", s.LC, s.PCStart); err != nil {
			return apperrors.Wrap(apperrors.CodeIOFailure, "write lc debug line", err)
		}
		if len(s.Mandatory) > 0 {
			fmt.Fprintf(bw, "  MAND: %s\n", strings.Join(s.Mandatory, ", "))
		}
		if len(s.Optional) > 0 {
			fmt.Fprintf(bw, "  OPT:  %s\n", strings.Join(s.Optional, ", "))
		}
	}
	return bw.Flush()
}
