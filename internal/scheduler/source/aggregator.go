package source

import (
	"context"
	"sync"

	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

// Aggregator aggregates multiple DAGSources into a single unified job
// channel. It starts all sources in parallel and forwards their jobs to a
// single output channel; it never touches scheduler runtime state itself,
// only the job envelopes pipeline.Batch drains one at a time.
type Aggregator struct {
	sources    []DAGSource
	sourceMap  map[string]DAGSource // key: "type:name"
	outputChan chan *DAGJob
	bufferSize int
	logger     utils.Logger

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
	stopCh  chan struct{}
}

// NewAggregator creates a new Aggregator with the given sources.
func NewAggregator(sources []DAGSource, bufferSize int, logger utils.Logger) *Aggregator {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	sourceMap := make(map[string]DAGSource)
	for _, src := range sources {
		key := buildSourceKey(src.Type(), src.Name())
		sourceMap[key] = src
	}

	return &Aggregator{
		sources:    sources,
		sourceMap:  sourceMap,
		outputChan: make(chan *DAGJob, bufferSize),
		bufferSize: bufferSize,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// buildSourceKey creates a unique key for source lookup.
func buildSourceKey(sourceType SourceType, name string) string {
	return string(sourceType) + ":" + name
}

// Start starts all sources and begins forwarding jobs.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.mu.Unlock()

	a.logger.Info("Starting aggregator with %d sources", len(a.sources))

	for _, src := range a.sources {
		if err := src.Start(ctx); err != nil {
			a.logger.Error("Failed to start source %s/%s: %v", src.Type(), src.Name(), err)
			a.Stop()
			return err
		}

		a.logger.Info("Started source: %s/%s", src.Type(), src.Name())

		a.wg.Add(1)
		go a.forward(ctx, src)
	}

	return nil
}

// forward forwards jobs from a single source to the aggregated output channel.
func (a *Aggregator) forward(ctx context.Context, src DAGSource) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case job, ok := <-src.Jobs():
			if !ok {
				a.logger.Info("Source %s/%s channel closed", src.Type(), src.Name())
				return
			}

			job.SourceType = src.Type()
			job.Origin = src.Name()

			select {
			case a.outputChan <- job:
			case <-ctx.Done():
				return
			case <-a.stopCh:
				return
			}
		}
	}
}

// Stop stops all sources and the aggregator.
func (a *Aggregator) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	a.logger.Info("Stopping aggregator...")

	close(a.stopCh)

	for _, src := range a.sources {
		if err := src.Stop(); err != nil {
			a.logger.Error("Failed to stop source %s/%s: %v", src.Type(), src.Name(), err)
		}
	}

	a.wg.Wait()

	close(a.outputChan)

	a.logger.Info("Aggregator stopped")
	return nil
}

// Jobs returns the aggregated job channel.
func (a *Aggregator) Jobs() <-chan *DAGJob {
	return a.outputChan
}

// GetSource retrieves a specific source by type and name.
func (a *Aggregator) GetSource(sourceType SourceType, name string) DAGSource {
	a.mu.RLock()
	defer a.mu.RUnlock()

	key := buildSourceKey(sourceType, name)
	return a.sourceMap[key]
}

// GetSourceForJob retrieves the source that produced the given job.
func (a *Aggregator) GetSourceForJob(job *DAGJob) DAGSource {
	return a.GetSource(job.SourceType, job.Origin)
}

// Ack acknowledges a job by delegating to the appropriate source.
func (a *Aggregator) Ack(ctx context.Context, job *DAGJob) error {
	src := a.GetSourceForJob(job)
	if src == nil {
		return nil
	}
	return src.Ack(ctx, job)
}

// Nack rejects a job by delegating to the appropriate source.
func (a *Aggregator) Nack(ctx context.Context, job *DAGJob, reason string) error {
	src := a.GetSourceForJob(job)
	if src == nil {
		return nil
	}
	return src.Nack(ctx, job, reason)
}

// HealthCheck performs health checks on all sources.
func (a *Aggregator) HealthCheck(ctx context.Context) error {
	for _, src := range a.sources {
		if err := src.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Sources returns all registered sources.
func (a *Aggregator) Sources() []DAGSource {
	return a.sources
}

// SourceCount returns the number of sources.
func (a *Aggregator) SourceCount() int {
	return len(a.sources)
}
