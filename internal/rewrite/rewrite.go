// Package rewrite implements the fan-in splitting pass that turns a raw
// dependency graph into one where every accumulation node's parent count is
// bounded by a chunk size, at the cost of introducing synthetic Partial and
// Fusion nodes.
package rewrite

import (
	"fmt"

	"github.com/sptrsv/sptrsv-sim/internal/dag"
	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
)

// Options configures a rewrite pass.
type Options struct {
	// Threshold is the maximum parent count a node may keep without being
	// split. A node with exactly Threshold parents is left as NORMAL.
	Threshold int
	// ChunkSize is the maximum parent count assigned to each PARTIAL node
	// produced when splitting. The final chunk may be smaller.
	ChunkSize int
}

// DefaultOptions matches the reference rewriter's defaults.
func DefaultOptions() Options {
	return Options{Threshold: 5, ChunkSize: 5}
}

// Rewrite splits every node whose parent count exceeds opts.Threshold into
// fixed-size PARTIAL chunks feeding a single FUSION node, and leaves every
// other node unchanged as NORMAL. It processes nodes in the source DAG's
// insertion order so the rewritten graph's node order is deterministic.
func Rewrite(src *dag.DAG, opts Options) (*dag.DAG, error) {
	if opts.ChunkSize <= 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("chunk size must be positive, got %d", opts.ChunkSize), nil)
	}
	if opts.Threshold < 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("threshold must be non-negative, got %d", opts.Threshold), nil)
	}

	out := make([]*dag.Node, 0, src.Len())

	for _, n := range src.Nodes() {
		if len(n.Parents) <= opts.Threshold {
			out = append(out, &dag.Node{
				ID:      n.ID,
				Kind:    dag.KindNormal,
				Parents: append([]string(nil), n.Parents...),
				Level:   n.Level,
				Cost:    len(n.Parents) + 1,
			})
			continue
		}

		partialIDs := make([]string, 0, (len(n.Parents)+opts.ChunkSize-1)/opts.ChunkSize)
		chunkIdx := 0
		for i := 0; i < len(n.Parents); i += opts.ChunkSize {
			end := i + opts.ChunkSize
			if end > len(n.Parents) {
				end = len(n.Parents)
			}
			chunkParents := n.Parents[i:end]

			pid := fmt.Sprintf("P_%s_%d", n.ID, chunkIdx)
			partialIDs = append(partialIDs, pid)

			out = append(out, &dag.Node{
				ID:      pid,
				Kind:    dag.KindPartial,
				Parents: append([]string(nil), chunkParents...),
				Level:   n.Level,
				Cost:    len(chunkParents),
			})

			chunkIdx++
		}

		out = append(out, &dag.Node{
			ID:      n.ID,
			Kind:    dag.KindFusion,
			Parents: partialIDs,
			Level:   n.Level + 1,
			Cost:    2,
		})
	}

	return dag.New(out)
}
