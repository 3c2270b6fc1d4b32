package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

// SourceTypeHTTP is the source type constant for the HTTP source.
const SourceTypeHTTP SourceType = "http"

func init() {
	Register(SourceTypeHTTP, NewHTTPSource)
}

// HTTPOptions holds HTTP source specific configuration.
type HTTPOptions struct {
	// ListenAddr is the address to listen on (e.g., ":8080").
	ListenAddr string

	// Path is the HTTP path for receiving DAG submissions.
	Path string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64
}

// DefaultHTTPOptions returns the default options.
func DefaultHTTPOptions() *HTTPOptions {
	return &HTTPOptions{
		ListenAddr:   ":8080",
		Path:         "/runs",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		MaxBodySize:  4 << 20, // 4MB, DAG JSON bodies can be large
	}
}

// HTTPRunResponse represents the response for a DAG submission.
type HTTPRunResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"run_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// HTTPSource implements DAGSource for HTTP-submitted DAG run requests. The
// request body is the raw DAG JSON; the source name comes from the
// "X-Source-Name" header or falls back to the instance name.
type HTTPSource struct {
	name    string
	options *HTTPOptions
	logger  utils.Logger

	server  *http.Server
	jobChan chan *DAGJob
	stopCh  chan struct{}

	mu      sync.RWMutex
	running bool
	seq     int64
}

// NewHTTPSource creates a new HTTP source from configuration.
func NewHTTPSource(cfg *SourceConfig) (DAGSource, error) {
	opts := &HTTPOptions{
		ListenAddr:   cfg.GetString("listen_addr", ":8080"),
		Path:         cfg.GetString("path", "/runs"),
		ReadTimeout:  cfg.GetDuration("read_timeout", 30*time.Second),
		WriteTimeout: cfg.GetDuration("write_timeout", 30*time.Second),
		MaxBodySize:  int64(cfg.GetInt("max_body_size", 4<<20)),
	}

	return &HTTPSource{
		name:    cfg.Name,
		options: opts,
		jobChan: make(chan *DAGJob, 100),
		stopCh:  make(chan struct{}),
	}, nil
}

// NewHTTPSourceWithOptions creates a new HTTP source with explicit options.
func NewHTTPSourceWithOptions(name string, opts *HTTPOptions, logger utils.Logger) *HTTPSource {
	if opts == nil {
		opts = DefaultHTTPOptions()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &HTTPSource{
		name:    name,
		options: opts,
		logger:  logger,
		jobChan: make(chan *DAGJob, 100),
		stopCh:  make(chan struct{}),
	}
}

// SetLogger sets the logger.
func (s *HTTPSource) SetLogger(logger utils.Logger) {
	s.logger = logger
}

// Type returns the source type.
func (s *HTTPSource) Type() SourceType {
	return SourceTypeHTTP
}

// Name returns the source instance name.
func (s *HTTPSource) Name() string {
	return s.name
}

// Start starts the HTTP server.
func (s *HTTPSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(s.options.Path, s.handleRun)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         s.options.ListenAddr,
		Handler:      mux,
		ReadTimeout:  s.options.ReadTimeout,
		WriteTimeout: s.options.WriteTimeout,
	}

	if s.logger != nil {
		s.logger.Info("HTTP source %s starting on %s%s", s.name, s.options.ListenAddr, s.options.Path)
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Error("HTTP source %s server error: %v", s.name, err)
			}
		}
	}()

	return nil
}

// Stop stops the HTTP server.
func (s *HTTPSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}

	return nil
}

// Jobs returns the job channel.
func (s *HTTPSource) Jobs() <-chan *DAGJob {
	return s.jobChan
}

// Ack acknowledges a job has been processed successfully.
// HTTP is synchronous; the response was already sent at submission time.
func (s *HTTPSource) Ack(ctx context.Context, job *DAGJob) error {
	if s.logger != nil {
		s.logger.Debug("HTTP source %s acked run %s", s.name, job.ID)
	}
	return nil
}

// Nack indicates a job failed to process.
func (s *HTTPSource) Nack(ctx context.Context, job *DAGJob, reason string) error {
	if s.logger != nil {
		s.logger.Warn("HTTP source %s nacked run %s: %s", s.name, job.ID, reason)
	}
	return nil
}

// HealthCheck checks if the HTTP server is running.
func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()

	if !running {
		return fmt.Errorf("HTTP source %s is not running", s.name)
	}
	return nil
}

// handleRun handles incoming DAG run submissions.
func (s *HTTPSource) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxBodySize)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) == 0 {
		s.sendError(w, http.StatusBadRequest, "request body is required")
		return
	}

	sourceName := r.Header.Get("X-Source-Name")
	if sourceName == "" {
		sourceName = s.name
	}

	s.mu.Lock()
	s.seq++
	runID := fmt.Sprintf("http-%s-%d", s.name, s.seq)
	s.mu.Unlock()

	job := NewDAGJob(runID, sourceName, body, SourceTypeHTTP, s.name)

	select {
	case s.jobChan <- job:
		s.sendSuccess(w, runID, "run accepted")
		if s.logger != nil {
			s.logger.Debug("HTTP source %s received run %s", s.name, runID)
		}
	default:
		s.sendError(w, http.StatusServiceUnavailable, "job queue is full")
	}
}

// handleHealth handles health check requests.
func (s *HTTPSource) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"source": s.name,
		"type":   string(SourceTypeHTTP),
	})
}

// sendError sends an error response.
func (s *HTTPSource) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPRunResponse{
		Success: false,
		Message: message,
	})
}

// sendSuccess sends a success response.
func (s *HTTPSource) sendSuccess(w http.ResponseWriter, runID, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(HTTPRunResponse{
		Success: true,
		RunID:   runID,
		Message: message,
	})
}
