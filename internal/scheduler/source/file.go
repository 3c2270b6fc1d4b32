package source

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

// SourceTypeFile is the source type constant for the file source.
const SourceTypeFile SourceType = "file"

func init() {
	Register(SourceTypeFile, NewFileSource)
}

// FileOptions holds file source specific configuration.
type FileOptions struct {
	// Dir is the directory to poll for DAG JSON files.
	Dir string

	// Pattern is the glob pattern matched against file names (e.g. "*.json").
	Pattern string

	// PollInterval is how often to re-scan the directory.
	PollInterval time.Duration

	// ProcessedDir, when non-empty, is where processed files are moved to
	// on Ack so they are not re-emitted on the next scan.
	ProcessedDir string
}

// DefaultFileOptions returns the default options.
func DefaultFileOptions() *FileOptions {
	return &FileOptions{
		Pattern:      "*.json",
		PollInterval: 2 * time.Second,
	}
}

// FileSource implements DAGSource by polling a directory for DAG JSON
// files, the thin batch-discovery collaborator used by pipeline.Batch when
// run against a directory of fixture DAGs.
type FileSource struct {
	name    string
	options *FileOptions
	logger  utils.Logger

	jobChan chan *DAGJob
	stopCh  chan struct{}
	seen    map[string]bool

	mu      sync.Mutex
	running bool
}

// NewFileSource creates a new file source from configuration.
func NewFileSource(cfg *SourceConfig) (DAGSource, error) {
	opts := &FileOptions{
		Dir:          cfg.GetString("dir", "."),
		Pattern:      cfg.GetString("pattern", "*.json"),
		PollInterval: cfg.GetDuration("poll_interval", 2*time.Second),
		ProcessedDir: cfg.GetString("processed_dir", ""),
	}

	return &FileSource{
		name:    cfg.Name,
		options: opts,
		jobChan: make(chan *DAGJob, 16),
		stopCh:  make(chan struct{}),
		seen:    make(map[string]bool),
	}, nil
}

// NewFileSourceWithOptions creates a new file source with explicit options.
func NewFileSourceWithOptions(name string, opts *FileOptions, logger utils.Logger) *FileSource {
	if opts == nil {
		opts = DefaultFileOptions()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &FileSource{
		name:    name,
		options: opts,
		logger:  logger,
		jobChan: make(chan *DAGJob, 16),
		stopCh:  make(chan struct{}),
		seen:    make(map[string]bool),
	}
}

// SetLogger sets the logger.
func (s *FileSource) SetLogger(logger utils.Logger) {
	s.logger = logger
}

// Type returns the source type.
func (s *FileSource) Type() SourceType {
	return SourceTypeFile
}

// Name returns the source instance name.
func (s *FileSource) Name() string {
	return s.name
}

// Start starts the directory polling loop.
func (s *FileSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("File source %s starting on dir=%s pattern=%s", s.name, s.options.Dir, s.options.Pattern)
	}

	go s.pollLoop(ctx)
	return nil
}

// Stop stops the file source.
func (s *FileSource) Stop() error {
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
func (s *FileSource) Jobs() <-chan *DAGJob {
	return s.jobChan
}

// Ack moves the processed file into ProcessedDir, if configured.
func (s *FileSource) Ack(ctx context.Context, job *DAGJob) error {
	path, ok := job.AckToken.(string)
	if !ok || s.options.ProcessedDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.options.ProcessedDir, 0755); err != nil {
		return err
	}
	dest := filepath.Join(s.options.ProcessedDir, filepath.Base(path))
	return os.Rename(path, dest)
}

// Nack logs the failure; the file stays in place and stays marked seen, so
// this source does not emit it again.
func (s *FileSource) Nack(ctx context.Context, job *DAGJob, reason string) error {
	if s.logger != nil {
		s.logger.Warn("File source %s nacked %s: %s", s.name, job.ID, reason)
	}
	return nil
}

// HealthCheck verifies the configured directory is reachable.
func (s *FileSource) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(s.options.Dir)
	return err
}

// pollLoop continuously scans the directory for new DAG JSON files.
func (s *FileSource) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.options.PollInterval)
	defer ticker.Stop()

	s.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

// scan globs the directory and emits a job for each unseen file.
func (s *FileSource) scan(ctx context.Context) {
	matches, err := filepath.Glob(filepath.Join(s.options.Dir, s.options.Pattern))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("File source %s glob error: %v", s.name, err)
		}
		return
	}
	sort.Strings(matches)

	for _, path := range matches {
		s.mu.Lock()
		already := s.seen[path]
		s.seen[path] = true
		s.mu.Unlock()
		if already {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("File source %s failed to read %s: %v", s.name, path, err)
			}
			continue
		}

		job := NewDAGJob(path, filepath.Base(path), data, SourceTypeFile, s.name).WithAckToken(path)

		select {
		case s.jobChan <- job:
			if s.logger != nil {
				s.logger.Debug("File source %s emitted %s", s.name, path)
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}
