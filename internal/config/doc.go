// Package config provides configuration management for lapwatch.
//
// This package handles loading configuration from YAML files, applying
// environment variable overrides, setting defaults, and validating the
// configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// Supported environment variables:
//   - LAPWATCH_CLOCK_BITS: Width of the millisecond counter (16, 32 or 64)
//   - LAPWATCH_LOOP_INTERVAL_MS: Control loop interval in milliseconds (minimum: 10)
//   - LAPWATCH_SLOW_LAP_THRESHOLD_MS: Warn when a lap exceeds this many milliseconds (0 disables)
//   - LAPWATCH_HTTP_PORT: HTTP server port (1-65535)
//   - LAPWATCH_LOG_LEVEL: Log level (debug, info, warn, error)
//   - LAPWATCH_LOG_FORMAT: Log format (json, text)
//
// Example configuration file (config.yaml):
//
//	clock_bits: 32            # matches a 32-bit embedded tick counter
//	loop_interval_ms: 1000
//	slow_lap_threshold_ms: 250
//	http_port: 9105
//	log_level: "info"
//	log_format: "json"
//
// Example usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//		log.Fatalf("Failed to load config: %v", err)
//	}
//
//	fmt.Printf("Loop every %s on a %d-bit clock\n", cfg.LoopPeriod(), cfg.ClockBits)
package config
