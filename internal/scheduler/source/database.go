package source

import (
	"context"
	"sync"
	"time"

	"github.com/sptrsv/sptrsv-sim/internal/repository"
	"github.com/sptrsv/sptrsv-sim/pkg/model"
	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

// SourceTypeDB is the source type constant for the database source.
const SourceTypeDB SourceType = "database"

func init() {
	Register(SourceTypeDB, NewDatabaseSource)
}

// DatabaseOptions holds database source specific configuration.
type DatabaseOptions struct {
	// PollInterval is how often to poll for new pending runs.
	PollInterval time.Duration

	// BatchSize is the maximum number of runs to claim per poll.
	BatchSize int
}

// DefaultDatabaseOptions returns the default options.
func DefaultDatabaseOptions() *DatabaseOptions {
	return &DatabaseOptions{
		PollInterval: 2 * time.Second,
		BatchSize:    10,
	}
}

// DatabaseSource implements DAGSource by polling RunRepository for pending
// runs that carry a DAG JSON payload (submitted out-of-band, e.g. by an
// external enqueuing tool writing directly to the runs table).
type DatabaseSource struct {
	name    string
	options *DatabaseOptions
	logger  utils.Logger

	runRepo repository.RunRepository

	jobChan chan *DAGJob
	stopCh  chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewDatabaseSource creates a new database source from configuration.
// The repository must be attached via SetRepository before Start.
func NewDatabaseSource(cfg *SourceConfig) (DAGSource, error) {
	opts := &DatabaseOptions{
		PollInterval: cfg.GetDuration("poll_interval", 2*time.Second),
		BatchSize:    cfg.GetInt("batch_size", 10),
	}

	return &DatabaseSource{
		name:    cfg.Name,
		options: opts,
		jobChan: make(chan *DAGJob, opts.BatchSize*2),
		stopCh:  make(chan struct{}),
	}, nil
}

// NewDatabaseSourceWithDeps creates a new database source with explicit dependencies.
func NewDatabaseSourceWithDeps(name string, opts *DatabaseOptions, runRepo repository.RunRepository, logger utils.Logger) *DatabaseSource {
	if opts == nil {
		opts = DefaultDatabaseOptions()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &DatabaseSource{
		name:    name,
		options: opts,
		logger:  logger,
		runRepo: runRepo,
		jobChan: make(chan *DAGJob, opts.BatchSize*2),
		stopCh:  make(chan struct{}),
	}
}

// SetRepository sets the run repository. Must be called before Start if
// using the factory-created source.
func (s *DatabaseSource) SetRepository(runRepo repository.RunRepository) {
	s.runRepo = runRepo
}

// SetLogger sets the logger.
func (s *DatabaseSource) SetLogger(logger utils.Logger) {
	s.logger = logger
}

// Type returns the source type.
func (s *DatabaseSource) Type() SourceType {
	return SourceTypeDB
}

// Name returns the source instance name.
func (s *DatabaseSource) Name() string {
	return s.name
}

// Start starts the database polling loop.
func (s *DatabaseSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}

	if s.runRepo == nil {
		s.mu.Unlock()
		return nil // No repository configured, skip
	}

	s.running = true
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("Database source %s starting with poll_interval=%v, batch_size=%d",
			s.name, s.options.PollInterval, s.options.BatchSize)
	}

	go s.pollLoop(ctx)
	return nil
}

// Stop stops the database source.
func (s *DatabaseSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	return nil
}

// Jobs returns the job channel.
func (s *DatabaseSource) Jobs() <-chan *DAGJob {
	return s.jobChan
}

// Ack marks a run as completed is handled by pipeline.Run itself via
// RunRepository.CompleteRun; here Ack is a no-op since ClaimPendingRuns
// already transitioned the run to Running.
func (s *DatabaseSource) Ack(ctx context.Context, job *DAGJob) error {
	if s.logger != nil {
		s.logger.Debug("Database source %s acked run %s", s.name, job.ID)
	}
	return nil
}

// Nack marks a claimed run as failed so it is not retried silently.
func (s *DatabaseSource) Nack(ctx context.Context, job *DAGJob, reason string) error {
	if s.runRepo == nil {
		return nil
	}
	return s.runRepo.UpdateRunStatus(ctx, job.ID, model.RunStatusFailed, reason)
}

// HealthCheck checks the database connection.
func (s *DatabaseSource) HealthCheck(ctx context.Context) error {
	if s.runRepo == nil {
		return nil
	}
	_, err := s.runRepo.ListRuns(ctx, 1)
	return err
}

// pollLoop continuously polls the repository for claimable runs.
func (s *DatabaseSource) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.options.PollInterval)
	defer ticker.Stop()

	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll claims pending runs and emits them to the job channel.
func (s *DatabaseSource) poll(ctx context.Context) {
	if s.runRepo == nil {
		return
	}

	runs, err := s.runRepo.ClaimPendingRuns(ctx, s.options.BatchSize)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Database source %s failed to claim runs: %v", s.name, err)
		}
		return
	}

	for _, run := range runs {
		job := NewDAGJob(run.RunUUID, run.SourceName, run.DAGJSON, SourceTypeDB, s.name).
			WithMetadata("claimed_at", time.Now().Format(time.RFC3339))

		select {
		case s.jobChan <- job:
			if s.logger != nil {
				s.logger.Debug("Database source %s emitted run %s", s.name, run.RunUUID)
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
			if s.logger != nil {
				s.logger.Warn("Database source %s job channel full, run %s will stall until retried", s.name, run.RunUUID)
			}
		}
	}
}
