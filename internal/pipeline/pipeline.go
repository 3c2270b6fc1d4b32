// Package pipeline drives one dependency graph through the full
// rewrite -> compile -> schedule chain, persisting the run's outcome and
// uploading its artifacts. It is the single place that ties together
// internal/dag, internal/rewrite, internal/compiler, internal/scheduler,
// internal/repository, and internal/storage into one operation, and the
// thing internal/scheduler/source job envelopes are ultimately fed into.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/sptrsv/sptrsv-sim/internal/compiler"
	"github.com/sptrsv/sptrsv-sim/internal/dag"
	"github.com/sptrsv/sptrsv-sim/internal/repository"
	"github.com/sptrsv/sptrsv-sim/internal/rewrite"
	"github.com/sptrsv/sptrsv-sim/internal/scheduler"
	"github.com/sptrsv/sptrsv-sim/internal/storage"
	"github.com/sptrsv/sptrsv-sim/pkg/compression"
	apperrors "github.com/sptrsv/sptrsv-sim/pkg/errors"
	"github.com/sptrsv/sptrsv-sim/pkg/model"
	"github.com/sptrsv/sptrsv-sim/pkg/parallel"
	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

const tracerName = "sptrsv-sim/pipeline"

// Options configures one pipeline invocation.
type Options struct {
	Rewrite       rewrite.Options
	Scheduler     scheduler.Config
	UploadTrace   bool
	UploadRewrite bool
	UploadMEC     bool
}

// DefaultOptions matches the reference rewriter/scheduler defaults.
func DefaultOptions() Options {
	return Options{
		Rewrite:       rewrite.DefaultOptions(),
		Scheduler:     scheduler.DefaultConfig(),
		UploadTrace:   true,
		UploadRewrite: false,
		UploadMEC:     false,
	}
}

// Deps are the pipeline's external collaborators. Repo and Store are
// optional: a nil Repo skips persistence, a nil Store skips artifact
// upload, so the pipeline also works standalone from the CLI against a
// local filesystem path with no database or bucket configured.
type Deps struct {
	Repo   repository.RunRepository
	Store  storage.Storage
	Logger utils.Logger
}

// Output is everything one pipeline invocation produced.
type Output struct {
	Run       *model.Run
	Rewritten *dag.DAG
	MEC       *compiler.Result
	Schedule  *scheduler.Result
}

// Run executes the rewrite -> compile -> schedule chain over dagJSON and
// persists/uploads the outcome through deps. sourceName identifies the
// input for logging and the run record (typically the source file's
// basename or the originating job source's name).
func Run(ctx context.Context, dagJSON []byte, sourceName string, deps Deps, opts Options) (*Output, error) {
	tracer := otel.Tracer(tracerName)
	log := deps.Logger
	if log == nil {
		log = utils.GetGlobalLogger()
	}

	ctx, span := tracer.Start(ctx, "pipeline.run", oteltrace.WithAttributes(
		attribute.String("source.name", sourceName),
	))
	defer span.End()

	run := model.NewRun(newRunUUID(sourceName), sourceName)
	run.Status = model.RunStatusRunning
	now := time.Now()
	run.BeginTime = &now

	if deps.Repo != nil {
		if err := deps.Repo.CreateRun(ctx, run); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "create run record", err)
		}
	}

	out, timer, err := execute(ctx, tracer, dagJSON, opts)
	if err != nil {
		if deps.Repo != nil {
			_ = deps.Repo.UpdateRunStatus(ctx, run.RunUUID, model.RunStatusFailed, err.Error())
		}
		return nil, err
	}
	out.Run = run

	status := model.RunStatusCompleted
	if out.Schedule.TimedOut {
		status = model.RunStatusTimedOut
	}
	run.Status = status
	run.NodeCount = out.Rewritten.Len()
	run.MaxMEC = out.MEC.MaxMEC
	run.TotalCycles = out.Schedule.Stats.TotalCycles
	run.PEActiveCycles = out.Schedule.Stats.PEActiveCycles
	run.NFUActiveCycles = out.Schedule.Stats.NFUActiveCycles

	span.SetAttributes(
		attribute.Int("dag.node_count", run.NodeCount),
		attribute.Int("dag.max_mec", run.MaxMEC),
		attribute.Int("dag.total_cycles", run.TotalCycles),
	)
	log.Debug("%s", timer.Summary())

	if deps.Store != nil {
		if err := uploadArtifacts(ctx, deps.Store, run, out, opts); err != nil {
			log.Warn("run %s: artifact upload failed: %v", run.RunUUID, err)
		}
	}

	if deps.Repo != nil {
		if err := deps.Repo.CompleteRun(ctx, run.RunUUID, status, run.NodeCount, run.MaxMEC,
			run.TotalCycles, run.PEActiveCycles, run.NFUActiveCycles, run.TraceBucket, run.TraceKey); err != nil {
			log.Warn("run %s: failed to persist completion: %v", run.RunUUID, err)
		}
	}

	log.Info("run %s finished: status=%s nodes=%d max_mec=%d total_cycles=%d",
		run.RunUUID, status.String(), run.NodeCount, run.MaxMEC, run.TotalCycles)

	return out, nil
}

// execute runs the three compute stages, each wrapped in its own span, and
// returns their combined output with no side effects on persistence or
// artifact upload. The returned Timer carries a human-readable per-stage
// breakdown for debug logging, independent of the OTEL spans.
func execute(ctx context.Context, tracer oteltrace.Tracer, dagJSON []byte, opts Options) (*Output, *utils.Timer, error) {
	timer := utils.NewTimer("pipeline")

	src, err := dag.ParseNodes(dagJSON)
	if err != nil {
		return nil, timer, err
	}

	_, rewriteSpan := tracer.Start(ctx, "pipeline.rewrite")
	rewritePhase := timer.Start("rewrite")
	rewritten, err := rewrite.Rewrite(src, opts.Rewrite)
	rewritePhase.Stop()
	rewriteSpan.End()
	if err != nil {
		return nil, timer, err
	}

	_, compileSpan := tracer.Start(ctx, "pipeline.compile")
	compilePhase := timer.Start("compile")
	mec, err := compiler.Compile(rewritten)
	compilePhase.Stop()
	compileSpan.End()
	if err != nil {
		return nil, timer, err
	}

	_, scheduleSpan := tracer.Start(ctx, "pipeline.schedule")
	schedulePhase := timer.Start("schedule")
	result, err := scheduler.Run(ctx, rewritten, mec.MEC, opts.Scheduler)
	schedulePhase.Stop()
	scheduleSpan.End()
	if err != nil {
		return nil, timer, err
	}

	return &Output{Rewritten: rewritten, MEC: mec, Schedule: result}, timer, nil
}

func newRunUUID(sourceName string) string {
	return fmt.Sprintf("run-%s-%s", sourceName, uuid.NewString())
}

// artifact is one independent output file a run produces: a render
// function that serializes it and the storage key it belongs at.
type artifact struct {
	key    string
	render func() ([]byte, error)
	assign func(key string)
}

// uploadArtifacts renders and uploads a run's output files. The files are
// independent of one another, so they're fanned out over pkg/parallel's
// worker pool rather than written one at a time.
func uploadArtifacts(ctx context.Context, store storage.Storage, run *model.Run, out *Output, opts Options) error {
	var artifacts []artifact

	if opts.UploadTrace {
		artifacts = append(artifacts, artifact{
			key:    fmt.Sprintf("runs/%s/trace.log.zst", run.RunUUID),
			render: func() ([]byte, error) {
				var buf bytes.Buffer
				err := out.Schedule.WriteTrace(&buf)
				return buf.Bytes(), err
			},
			assign: func(key string) { run.TraceKey = key },
		})
	}
	if opts.UploadRewrite {
		artifacts = append(artifacts, artifact{
			key: fmt.Sprintf("runs/%s/rewritten.json.zst", run.RunUUID),
			render: func() ([]byte, error) {
				var buf bytes.Buffer
				err := out.Rewritten.Write(&buf)
				return buf.Bytes(), err
			},
		})
	}
	if opts.UploadMEC {
		artifacts = append(artifacts, artifact{
			key: fmt.Sprintf("runs/%s/mec.json.zst", run.RunUUID),
			render: func() ([]byte, error) {
				var buf bytes.Buffer
				err := out.MEC.Write(&buf)
				return buf.Bytes(), err
			},
		})
	}

	// Each worker creates and closes its own compressor for the artifact it
	// handles.
	_, err := parallel.ForEach(ctx, artifacts, parallel.DefaultPoolConfig(), func(ctx context.Context, a artifact) error {
		data, err := a.render()
		if err != nil {
			return err
		}
		comp := compression.Fast()
		defer compression.Close(comp)
		compressed, err := comp.Compress(data)
		if err != nil {
			return fmt.Errorf("compress %s: %w", a.key, err)
		}
		if err := store.Upload(ctx, a.key, bytes.NewReader(compressed)); err != nil {
			return err
		}
		if a.assign != nil {
			a.assign(a.key)
		}
		return nil
	})
	return err
}
