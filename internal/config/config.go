package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation constants
const (
	MinLoopInterval = 10      // Minimum loop interval in milliseconds
	MaxLoopInterval = 3600000 // Maximum loop interval in milliseconds (1 hour)
	MinPort         = 1       // Minimum valid port number
	MaxPort         = 65535   // Maximum valid port number

	// Max16BitLap is the longest loop interval plus slow lap threshold allowed
	// on a 16-bit clock. Half the counter range leaves room for late ticks.
	Max16BitLap = 32767

	// Default values
	DefaultClockBits        = 32
	DefaultLoopInterval     = 1000 // 1 second in milliseconds
	DefaultSlowLapThreshold = 0    // Disabled
	DefaultHTTPPort         = 9105
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
)

// Config represents the application configuration
type Config struct {
	ClockBits        int    `yaml:"clock_bits"`            // Width of the millisecond counter: 16, 32 or 64
	LoopInterval     int    `yaml:"loop_interval_ms"`      // milliseconds
	SlowLapThreshold int    `yaml:"slow_lap_threshold_ms"` // milliseconds, 0 disables
	HTTPPort         int    `yaml:"http_port"`
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
}

// Load loads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 -- Config file path is provided by administrator via CLI flag, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a configuration from YAML bytes, applying defaults, environment
// overrides and validation in that order
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment variable error: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoopPeriod returns the loop interval as a time.Duration
func (c *Config) LoopPeriod() time.Duration {
	return time.Duration(c.LoopInterval) * time.Millisecond
}

// applyDefaults sets default values for configuration
func applyDefaults(cfg *Config) {
	if cfg.ClockBits == 0 {
		cfg.ClockBits = DefaultClockBits
	}
	if cfg.LoopInterval == 0 {
		cfg.LoopInterval = DefaultLoopInterval
	}
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = DefaultHTTPPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"LAPWATCH_CLOCK_BITS", &cfg.ClockBits},
		{"LAPWATCH_LOOP_INTERVAL_MS", &cfg.LoopInterval},
		{"LAPWATCH_SLOW_LAP_THRESHOLD_MS", &cfg.SlowLapThreshold},
		{"LAPWATCH_HTTP_PORT", &cfg.HTTPPort},
	}
	for _, o := range ints {
		val := os.Getenv(o.name)
		if val == "" {
			continue
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: must be an integer, got %q", o.name, val)
		}
		*o.dst = i
	}

	if val := os.Getenv("LAPWATCH_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := os.Getenv("LAPWATCH_LOG_FORMAT"); val != "" {
		cfg.LogFormat = strings.ToLower(val)
	}

	return nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.ClockBits {
	case 16, 32, 64:
	default:
		return fmt.Errorf("clock_bits must be 16, 32 or 64, got %d", cfg.ClockBits)
	}

	if cfg.LoopInterval < MinLoopInterval || cfg.LoopInterval > MaxLoopInterval {
		return fmt.Errorf("loop_interval_ms must be between %d and %d, got %d", MinLoopInterval, MaxLoopInterval, cfg.LoopInterval)
	}

	if cfg.SlowLapThreshold < 0 {
		return fmt.Errorf("slow_lap_threshold_ms cannot be negative, got %d", cfg.SlowLapThreshold)
	}

	// A 16-bit counter wraps every 65536ms; longer periods alias to short ones
	if cfg.ClockBits == 16 && cfg.LoopInterval+cfg.SlowLapThreshold > Max16BitLap {
		return fmt.Errorf("loop_interval_ms %d plus slow_lap_threshold_ms %d must not exceed %d on a 16-bit clock",
			cfg.LoopInterval, cfg.SlowLapThreshold, Max16BitLap)
	}

	if cfg.HTTPPort < MinPort || cfg.HTTPPort > MaxPort {
		return fmt.Errorf("http_port must be between %d and %d", MinPort, MaxPort)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %q", cfg.LogFormat)
	}

	return nil
}
