// Package gen produces synthetic sparse lower-triangular dependency graphs
// for exercising the rewrite/compile/schedule pipeline without needing a
// real sparse matrix on disk. It mirrors the two generators the reference
// toolchain shipped as standalone scripts -- a uniform-sparsity generator
// and a long-tail generator that seeds a handful of high-fan-in "super"
// rows -- reduced to their DAG-JSON output; neither writes the spy-plot
// visualization the originals produced alongside it.
package gen

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sptrsv/sptrsv-sim/internal/dag"
	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
)

// SyntheticOptions configures a uniform-sparsity lower-triangular DAG.
type SyntheticOptions struct {
	// Dim is the number of rows (nodes) to generate.
	Dim int
	// Sparsity is the probability, independently per (i, j) pair with
	// j < i, that row i depends on row j.
	Sparsity float64
	// Seed seeds the random source; the same seed and options always
	// produce the same graph.
	Seed int64
}

// Synthetic generates a uniform-sparsity lower-triangular dependency graph:
// each row i independently depends on each earlier row j with probability
// opts.Sparsity.
func Synthetic(opts SyntheticOptions) (*dag.DAG, error) {
	if opts.Dim <= 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("dim must be positive, got %d", opts.Dim), nil)
	}
	if opts.Sparsity < 0 || opts.Sparsity > 1 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("sparsity must be in [0,1], got %f", opts.Sparsity), nil)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	nodes := make([]*dag.Node, 0, opts.Dim)
	levels := make([]int, opts.Dim)

	for i := 0; i < opts.Dim; i++ {
		var parents []string
		maxParentLevel := -1
		for j := 0; j < i; j++ {
			if rng.Float64() < opts.Sparsity {
				parents = append(parents, rowID(j))
				if levels[j] > maxParentLevel {
					maxParentLevel = levels[j]
				}
			}
		}
		levels[i] = maxParentLevel + 1
		nodes = append(nodes, &dag.Node{
			ID:      rowID(i),
			Kind:    dag.KindNormal,
			Parents: parents,
			Level:   levels[i],
			Cost:    len(parents) + 1,
		})
	}

	return dag.New(nodes)
}

// LongTailOptions configures a long-tail DAG: most rows are sparse, but a
// chosen fraction of rows ("super rows") are given a deliberately high
// in-degree so the rewriter's fan-in threshold actually triggers a split.
type LongTailOptions struct {
	Dim int
	// SuperNodeRatio is the fraction of rows (beyond the first 10, which
	// have too few candidate parents to be worth promoting) selected as
	// super rows.
	SuperNodeRatio float64
	// SuperDegreeMin/SuperDegreeMax bound a super row's in-degree,
	// inclusive. Defaults to 20..40 when both are zero.
	SuperDegreeMin int
	SuperDegreeMax int
	// NormalDegreeMax bounds a non-super row's in-degree, inclusive.
	// Defaults to 10 when zero.
	NormalDegreeMax int
	Seed            int64
}

func (o LongTailOptions) withDefaults() LongTailOptions {
	if o.SuperDegreeMin == 0 && o.SuperDegreeMax == 0 {
		o.SuperDegreeMin, o.SuperDegreeMax = 20, 40
	}
	if o.NormalDegreeMax == 0 {
		o.NormalDegreeMax = 10
	}
	return o
}

// LongTail generates a long-tail dependency graph: a small set of super
// rows each draw a high-degree random parent sample (deliberately above a
// typical rewrite threshold), while the rest draw a low-degree sample.
func LongTail(opts LongTailOptions) (*dag.DAG, error) {
	if opts.Dim <= 0 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("dim must be positive, got %d", opts.Dim), nil)
	}
	if opts.SuperNodeRatio < 0 || opts.SuperNodeRatio > 1 {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput,
			fmt.Sprintf("super node ratio must be in [0,1], got %f", opts.SuperNodeRatio), nil)
	}
	opts = opts.withDefaults()

	rng := rand.New(rand.NewSource(opts.Seed))
	superIndices := pickSuperIndices(rng, opts.Dim, opts.SuperNodeRatio)

	nodes := make([]*dag.Node, 0, opts.Dim)
	levels := make([]int, opts.Dim)

	for i := 0; i < opts.Dim; i++ {
		degree := rng.Intn(opts.NormalDegreeMax + 1)
		if superIndices[i] {
			span := opts.SuperDegreeMax - opts.SuperDegreeMin + 1
			degree = opts.SuperDegreeMin + rng.Intn(span)
		}
		if degree > i {
			degree = i
		}

		parentRows := sampleDistinct(rng, i, degree)
		sort.Ints(parentRows)

		parents := make([]string, len(parentRows))
		maxParentLevel := -1
		for k, j := range parentRows {
			parents[k] = rowID(j)
			if levels[j] > maxParentLevel {
				maxParentLevel = levels[j]
			}
		}
		if len(parents) > 0 {
			levels[i] = maxParentLevel + 1
		}

		nodes = append(nodes, &dag.Node{
			ID:      rowID(i),
			Kind:    dag.KindNormal,
			Parents: parents,
			Level:   levels[i],
			Cost:    len(parents) + 1,
		})
	}

	return dag.New(nodes)
}

// pickSuperIndices samples floor(dim*ratio) row indices from [10, dim) to
// mark as super rows, matching the reference generator's exclusion of the
// first 10 rows (too few candidate parents to be worth promoting).
func pickSuperIndices(rng *rand.Rand, dim int, ratio float64) map[int]bool {
	super := make(map[int]bool)
	if dim <= 10 {
		return super
	}
	pool := make([]int, 0, dim-10)
	for i := 10; i < dim; i++ {
		pool = append(pool, i)
	}
	count := int(float64(dim) * ratio)
	if count > len(pool) {
		count = len(pool)
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	for _, idx := range pool[:count] {
		super[idx] = true
	}
	return super
}

// sampleDistinct draws count distinct integers from [0, n) without
// replacement.
func sampleDistinct(rng *rand.Rand, n, count int) []int {
	if count <= 0 {
		return nil
	}
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	rng.Shuffle(n, func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	out := append([]int(nil), pool[:count]...)
	return out
}

func rowID(i int) string {
	return fmt.Sprintf("%d", i)
}
