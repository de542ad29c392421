package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/lapwatch/internal/clock"
	"github.com/zgpcy/lapwatch/internal/collector"
	"github.com/zgpcy/lapwatch/internal/config"
	"github.com/zgpcy/lapwatch/internal/logger"
	"github.com/zgpcy/lapwatch/internal/loop"
	"github.com/zgpcy/lapwatch/internal/stage"
	"github.com/zgpcy/lapwatch/internal/stopwatch"
)

// testLogger creates a logger for testing (error level to suppress test output)
func testLogger() *logger.Logger {
	return logger.New("error")
}

// fixedWall is a clock.Wall that always returns the same time
type fixedWall struct {
	t time.Time
}

func (f fixedWall) Now() time.Time { return f.t }

type testEnv struct {
	server    *Server
	collector *collector.LapCollector
	stages    *stage.Registry
	clock     *clock.Manual[uint32]
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{HTTPPort: 8080, LoopInterval: 1000, ClockBits: 32}
	clk := clock.NewManual[uint32](1)
	stages := stage.NewRegistry(stopwatch.FactoryFor[uint32](clk))
	coll := collector.NewLapCollector(stages)

	reg := prometheus.NewRegistry()
	reg.MustRegister(coll)

	return &testEnv{
		server:    NewServer(cfg, coll, stages, reg, testLogger()),
		collector: coll,
		stages:    stages,
		clock:     clk,
	}
}

// tick completes one lap of the control loop period stage
func (e *testEnv) tick() {
	period := e.stages.Stage(loop.PeriodStage)
	period.MarkEnd()
	period.MarkStart()
}

func get(t *testing.T, s *Server, path string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, req)

	resp := w.Result()
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return resp, string(body)
}

// TestNewServer tests server creation
func TestNewServer(t *testing.T) {
	env := newTestEnv(t)
	server := env.server

	if server.server == nil {
		t.Fatal("server.server should not be nil")
	}
	if server.collector == nil {
		t.Error("server.collector should not be nil")
	}
	if server.scrape == nil || server.scrape.Name() != ScrapeStage {
		t.Error("server.scrape should be the scrape stage")
	}
	if server.server.Addr != ":8080" {
		t.Errorf("server address: got %v, want :8080", server.server.Addr)
	}
}

// TestHandleHealth tests the /health endpoint
func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := get(t, env.server, "/health")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status code: got %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %v, want application/json", ct)
	}
	if body != `{"status":"healthy"}` {
		t.Errorf("Response body: got %v, want %v", body, `{"status":"healthy"}`)
	}
}

// TestHandleReady_StateTransitions tests readiness before and after the first tick
func TestHandleReady_StateTransitions(t *testing.T) {
	env := newTestEnv(t)

	resp, body := get(t, env.server, "/ready")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Status code before first tick: got %v, want %v", resp.StatusCode, http.StatusServiceUnavailable)
	}
	if !strings.Contains(body, "not ready") {
		t.Errorf("Response body should mention not ready, got %v", body)
	}

	env.tick()

	resp, body = get(t, env.server, "/ready")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status code after first tick: got %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if body != `{"status":"ready"}` {
		t.Errorf("Response body: got %v, want %v", body, `{"status":"ready"}`)
	}
}

// TestHandleIndex tests the landing page lists stages
func TestHandleIndex(t *testing.T) {
	env := newTestEnv(t)
	env.tick()
	work := env.stages.Stage("step.work")
	work.MarkStart()
	env.clock.Advance(42)
	work.MarkEnd()

	resp, body := get(t, env.server, "/")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status code: got %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html" {
		t.Errorf("Content-Type: got %v, want text/html", ct)
	}

	required := []string{"lapwatch", "Ready", "Never", "1000 ms", "32 bits", "step.work", "<td>42</td>", "/metrics"}
	for _, want := range required {
		if !strings.Contains(body, want) {
			t.Errorf("Response should contain %q", want)
		}
	}
}

// TestHandleIndex_UnknownPath tests that the catch-all route 404s
func TestHandleIndex_UnknownPath(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := get(t, env.server, "/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status code: got %v, want %v", resp.StatusCode, http.StatusNotFound)
	}
}

// TestMetricsEndpoint tests /metrics serves lap metrics and times itself
func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	scrapedAt := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	env.server.clock = fixedWall{t: scrapedAt}
	env.tick()

	resp, _ := get(t, env.server, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status code: got %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("Content-Type should contain text/plain, got %v", ct)
	}

	// The second scrape sees the lap recorded by the first
	_, body := get(t, env.server, "/metrics")

	expectedMetrics := []string{
		`lapwatch_lap_duration_seconds{stage="loop"} 0`,
		`lapwatch_laps_total{stage="scrape"} 1`,
		`lapwatch_stage_running{stage="scrape"} 1`,
		"lapwatch_build_info",
	}
	for _, expected := range expectedMetrics {
		if !strings.Contains(body, expected) {
			t.Errorf("Metrics should contain %q", expected)
		}
	}

	if got := env.server.LastScrapeTime(); !got.Equal(scrapedAt) {
		t.Errorf("LastScrapeTime: got %v, want %v", got, scrapedAt)
	}
	if r := env.server.scrape.Reading(); r.Laps != 2 {
		t.Errorf("scrape laps: got %d, want 2", r.Laps)
	}

	_, page := get(t, env.server, "/")
	if !strings.Contains(page, "2026-01-15 10:00:00 UTC") {
		t.Error("Landing page should show the last scrape time")
	}
}

// TestHandleStages tests the JSON stage listing
func TestHandleStages(t *testing.T) {
	env := newTestEnv(t)
	env.tick()
	env.clock.Advance(2500)
	env.tick()

	resp, body := get(t, env.server, "/stages")
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %v, want application/json", ct)
	}

	var readings []collector.StageReading
	if err := json.Unmarshal([]byte(body), &readings); err != nil {
		t.Fatalf("Failed to decode stages: %v", err)
	}

	// scrape is registered by NewServer, loop by the first tick
	if len(readings) != 2 {
		t.Fatalf("Expected 2 stages, got %d", len(readings))
	}
	if readings[0].Stage != ScrapeStage || readings[1].Stage != loop.PeriodStage {
		t.Errorf("stage order: got [%s %s]", readings[0].Stage, readings[1].Stage)
	}
	if readings[1].Duration != 2500 || readings[1].Laps != 2 {
		t.Errorf("loop reading: got duration %d laps %d, want 2500 and 2", readings[1].Duration, readings[1].Laps)
	}
	if !strings.Contains(body, `"state":"running"`) {
		t.Errorf("stages body should report state by name: %s", body)
	}
}

// TestConcurrency_MultipleRequests tests handling multiple concurrent requests
func TestConcurrency_MultipleRequests(t *testing.T) {
	env := newTestEnv(t)
	env.tick()

	endpoints := []string{"/", "/health", "/ready", "/metrics", "/stages"}

	var wg sync.WaitGroup
	numRequests := 20

	for _, endpoint := range endpoints {
		for i := 0; i < numRequests; i++ {
			wg.Add(1)
			go func(ep string) {
				defer wg.Done()

				req := httptest.NewRequest(http.MethodGet, ep, nil)
				w := httptest.NewRecorder()

				env.server.server.Handler.ServeHTTP(w, req)

				resp := w.Result()
				defer resp.Body.Close()

				if resp.StatusCode != http.StatusOK {
					t.Errorf("Endpoint %s returned status %v, want %v", ep, resp.StatusCode, http.StatusOK)
				}
			}(endpoint)
		}
	}

	wg.Wait()

	if r := env.server.scrape.Reading(); r.Laps != uint64(numRequests) {
		t.Errorf("scrape laps: got %d, want %d", r.Laps, numRequests)
	}
}

// TestServerTimeouts tests that server has proper timeout configurations
func TestServerTimeouts(t *testing.T) {
	env := newTestEnv(t)
	server := env.server

	if server.server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout: got %v, want 15s", server.server.ReadTimeout)
	}
	if server.server.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout: got %v, want 15s", server.server.WriteTimeout)
	}
	if server.server.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout: got %v, want 60s", server.server.IdleTimeout)
	}
}

// TestStartShutdown tests the server lifecycle on a real listener
func TestStartShutdown(t *testing.T) {
	env := newTestEnv(t)
	env.server.server.Addr = "127.0.0.1:0"

	errs := make(chan error, 1)
	go func() {
		errs <- env.server.Start()
	}()

	// Give ListenAndServe a moment before shutting down
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	select {
	case err := <-errs:
		if err != nil {
			t.Errorf("Start() error = %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
