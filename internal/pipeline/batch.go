package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/sptrsv/sptrsv-sim/internal/scheduler"
	"github.com/sptrsv/sptrsv-sim/internal/scheduler/source"
	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

// BatchResult pairs one input's CSV-ready summary with the full pipeline
// output it was computed from, or the error that stopped it short.
type BatchResult struct {
	Name    string
	Summary scheduler.Summary
	Output  *Output
	Err     error
}

// Dir runs every *.json file in dir through the pipeline, one at a time, in
// lexical filename order. A single DAG's failure is recorded in its
// BatchResult and does not stop the remaining files from running.
func Dir(ctx context.Context, dir string, deps Deps, opts Options) ([]BatchResult, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	results := make([]BatchResult, 0, len(matches))
	for _, path := range matches {
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			results = append(results, BatchResult{Name: name, Err: err})
			continue
		}

		out, err := Run(ctx, data, name, deps, opts)
		if err != nil {
			results = append(results, BatchResult{Name: name, Err: err})
			continue
		}

		results = append(results, BatchResult{
			Name:    name,
			Summary: scheduler.Summarize(name, out.Rewritten.Len(), out.MEC.MaxMEC, out.Schedule),
			Output:  out,
		})
	}

	return results, nil
}

// Batch drains jobs from agg one at a time until ctx is cancelled or agg's
// job channel closes, running each through the pipeline and acking or
// nacking it against its originating source. Jobs are never processed
// concurrently: one DAG runs start-to-finish before the next is dispatched,
// matching the scheduler's single-engine-per-graph design.
func Batch(ctx context.Context, agg *source.Aggregator, deps Deps, opts Options) error {
	log := deps.Logger
	if log == nil {
		log = utils.GetGlobalLogger()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-agg.Jobs():
			if !ok {
				return nil
			}

			out, err := Run(ctx, job.DAGJSON, job.SourceName, deps, opts)
			if err != nil {
				log.Error("job %s from %s/%s failed: %v", job.ID, job.SourceType, job.Origin, err)
				if nackErr := agg.Nack(ctx, job, err.Error()); nackErr != nil {
					log.Warn("failed to nack job %s: %v", job.ID, nackErr)
				}
				continue
			}

			if ackErr := agg.Ack(ctx, job); ackErr != nil {
				log.Warn("failed to ack job %s: %v", job.ID, ackErr)
			}

			log.Info("job %s completed: nodes=%d max_mec=%d", job.ID, out.Rewritten.Len(), out.MEC.MaxMEC)
		}
	}
}
