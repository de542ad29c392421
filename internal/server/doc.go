// Package server provides an HTTP server for exposing lap metrics.
//
// Available endpoints:
//   - /           : Web UI showing status and a table of stages
//   - /metrics    : Prometheus metrics endpoint, each request timed in the "scrape" stage
//   - /stages     : JSON list of every stage reading
//   - /health     : Liveness probe (always returns 200)
//   - /ready      : Readiness probe (returns 200 once the control loop has ticked)
//
// The server is configured with sensible timeout defaults:
//   - Read timeout: 15 seconds
//   - Write timeout: 15 seconds
//   - Idle timeout: 60 seconds
//
// Example usage:
//
//	srv := server.NewServer(cfg, lapCollector, stages, prometheus.DefaultGatherer, log)
//
//	serverErrors := make(chan error, 1)
//	go func() {
//		serverErrors <- srv.Start()
//	}()
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	if err := srv.Shutdown(ctx); err != nil {
//		log.Error("Error during shutdown", "error", err)
//	}
package server
