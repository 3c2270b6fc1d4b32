// Package webui serves a minimal run list and per-run trace viewer over
// the data a pipeline run produced, reading run metadata from the
// repository layer and trace/artifact bytes from the storage layer.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/sptrsv/sptrsv-sim/internal/repository"
	"github.com/sptrsv/sptrsv-sim/internal/storage"
	"github.com/sptrsv/sptrsv-sim/pkg/compression"
	"github.com/sptrsv/sptrsv-sim/pkg/model"
	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// runView is the run list/detail JSON shape served to the browser.
type runView struct {
	RunID       string `json:"run_id"`
	SourceName  string `json:"source_name"`
	Status      string `json:"status"`
	NodeCount   int    `json:"node_count"`
	MaxMEC      int    `json:"max_mec"`
	TotalCycles int    `json:"total_cycles"`
	CreateTime  string `json:"create_time"`
	TraceKey    string `json:"trace_key,omitempty"`
}

func toRunView(r *model.Run) runView {
	return runView{
		RunID:       r.RunUUID,
		SourceName:  r.SourceName,
		Status:      r.Status.String(),
		NodeCount:   r.NodeCount,
		MaxMEC:      r.MaxMEC,
		TotalCycles: r.TotalCycles,
		CreateTime:  r.CreateTime.Format(time.RFC3339),
		TraceKey:    r.TraceKey,
	}
}

// Server serves the run list and trace viewer.
type Server struct {
	listLimit int
	logger    utils.Logger
	repo      repository.RunRepository
	store     storage.Storage
	server    *http.Server
	port      int
}

// NewServer creates a web UI server backed by repo for run metadata and
// store for trace/artifact bytes.
func NewServer(repo repository.RunRepository, store storage.Storage, port int, logger utils.Logger) *Server {
	if logger == nil {
		logger = utils.GetGlobalLogger()
	}
	return &Server{
		listLimit: 100,
		logger:    logger,
		repo:      repo,
		store:     store,
		port:      port,
	}
}

// Start starts the web server and blocks until it stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	staticSubFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("failed to create static sub-filesystem: %w", err)
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSubFS))))

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/run", s.handleRunPage)
	mux.HandleFunc("/api/runs", s.handleListRuns)
	mux.HandleFunc("/api/trace", s.handleTrace)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("Starting web server at http://localhost:%d", s.port)
	s.logger.Info("Press Ctrl+C to stop")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		http.Error(w, "Template error", http.StatusInternalServerError)
		s.logger.Error("Failed to parse index template: %v", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, map[string]interface{}{"DataDir": "repository"}); err != nil {
		s.logger.Error("Failed to execute index template: %v", err)
	}
}

func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("id")
	if runID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/run.html")
	if err != nil {
		http.Error(w, "Template error", http.StatusInternalServerError)
		s.logger.Error("Failed to parse run template: %v", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, map[string]interface{}{"RunID": runID}); err != nil {
		s.logger.Error("Failed to execute run template: %v", err)
	}
}

// handleListRuns returns the most recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		http.Error(w, "no repository configured", http.StatusServiceUnavailable)
		return
	}

	runs, err := s.repo.ListRuns(r.Context(), s.listLimit)
	if err != nil {
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		s.logger.Error("Failed to list runs: %v", err)
		return
	}

	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, toRunView(run))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(views)
}

// handleTrace streams a run's dispatch trace from storage.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("id")
	if runID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	if s.repo == nil || s.store == nil {
		http.Error(w, "repository or storage not configured", http.StatusServiceUnavailable)
		return
	}

	run, err := s.repo.GetRunByUUID(r.Context(), runID)
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if run.TraceKey == "" {
		http.Error(w, "run has no trace artifact", http.StatusNotFound)
		return
	}

	reader, err := s.store.Download(r.Context(), run.TraceKey)
	if err != nil {
		http.Error(w, "failed to fetch trace", http.StatusNotFound)
		s.logger.Error("Failed to download trace for run %s: %v", runID, err)
		return
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		http.Error(w, "failed to read trace", http.StatusInternalServerError)
		s.logger.Error("Failed to read trace for run %s: %v", runID, err)
		return
	}

	plain, err := compression.AutoDecompress(data)
	if err != nil {
		http.Error(w, "failed to decompress trace", http.StatusInternalServerError)
		s.logger.Error("Failed to decompress trace for run %s: %v", runID, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(plain)
}
