package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zgpcy/lapwatch/internal/clock"
	"github.com/zgpcy/lapwatch/internal/collector"
	"github.com/zgpcy/lapwatch/internal/config"
	"github.com/zgpcy/lapwatch/internal/logger"
	"github.com/zgpcy/lapwatch/internal/stage"
	"github.com/zgpcy/lapwatch/internal/version"
)

//go:embed templates/index.html
var indexTemplate string

var indexTmpl = template.Must(template.New("index").Parse(indexTemplate))

// ScrapeStage is the stage that times each /metrics request
const ScrapeStage = "scrape"

// HTTP server timeout constants
const (
	DefaultReadTimeout  = 15 * time.Second // Maximum duration for reading the entire request
	DefaultWriteTimeout = 15 * time.Second // Maximum duration before timing out writes of the response
	DefaultIdleTimeout  = 60 * time.Second // Maximum amount of time to wait for the next request
)

// indexPageData holds template data for the index page
type indexPageData struct {
	StatusClass  string
	StatusText   string
	Version      string
	LastScrape   string
	StageCount   int
	LoopInterval int
	ClockBits    int
	Stages       []collector.StageReading
}

// Server represents the HTTP server
type Server struct {
	server    *http.Server
	collector *collector.LapCollector
	scrape    *stage.Stage
	cfg       *config.Config
	logger    *logger.Logger
	clock     clock.Wall

	mu         sync.RWMutex
	lastScrape time.Time
}

// NewServer creates a new HTTP server. Metrics are served from gatherer;
// each scrape is timed in the "scrape" stage of reg.
func NewServer(cfg *config.Config, lapCollector *collector.LapCollector, reg *stage.Registry, gatherer prometheus.Gatherer, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:      mux,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
		},
		collector: lapCollector,
		scrape:    reg.Stage(ScrapeStage),
		cfg:       cfg,
		logger:    log,
		clock:     clock.RealWall{},
	}

	// Register handlers
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/stages", s.handleStages)
	mux.Handle("/metrics", s.timeScrape(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// LastScrapeTime returns the wall-clock time of the last /metrics request
func (s *Server) LastScrapeTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScrape
}

// timeScrape wraps the metrics handler in the scrape stage.
// Concurrent scrapes share one stage, so they are serialised here.
func (s *Server) timeScrape(next http.Handler) http.Handler {
	var serial sync.Mutex
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serial.Lock()
		defer serial.Unlock()

		s.scrape.MarkStart()
		next.ServeHTTP(w, r)
		lap := s.scrape.MarkEnd()

		s.mu.Lock()
		s.lastScrape = s.clock.Now()
		s.mu.Unlock()

		s.logger.Debug("Served metrics scrape", "duration_ms", lap.Duration, "max_duration_ms", lap.MaxDuration)
	})
}

// handleIndex serves a simple landing page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	ready := s.collector.IsReady()
	statusClass := "not-ready"
	statusText := "Not Ready"
	if ready {
		statusClass = "ready"
		statusText = "Ready"
	}

	lastScrape := s.LastScrapeTime()
	lastScrapeText := "Never"
	if !lastScrape.IsZero() {
		lastScrapeText = lastScrape.Format("2006-01-02 15:04:05 MST")
	}

	data := indexPageData{
		StatusClass:  statusClass,
		StatusText:   statusText,
		Version:      version.String(),
		LastScrape:   lastScrapeText,
		StageCount:   s.collector.StageCount(),
		LoopInterval: s.cfg.LoopInterval,
		ClockBits:    s.cfg.ClockBits,
		Stages:       s.collector.Readings(),
	}

	w.Header().Set("Content-Type", "text/html")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("Failed to execute index template", "error", err)
	}
}

// handleHealth handles health check requests (always returns 200 for liveness)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
		s.logger.Error("Failed to write health response", "error", err)
	}
}

// handleReady handles readiness check requests (returns 200 once the control loop has ticked)
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.collector.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte(`{"status":"not ready","message":"waiting for first control loop tick"}`)); err != nil {
			s.logger.Error("Failed to write ready response", "error", err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ready"}`)); err != nil {
		s.logger.Error("Failed to write ready response", "error", err)
	}
}

// handleStages returns every stage reading as JSON
func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.collector.Readings()); err != nil {
		s.logger.Error("Failed to write stages response", "error", err)
	}
}
