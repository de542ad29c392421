package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/lapwatch/internal/collector"
	"github.com/zgpcy/lapwatch/internal/config"
	"github.com/zgpcy/lapwatch/internal/logger"
	"github.com/zgpcy/lapwatch/internal/loop"
	"github.com/zgpcy/lapwatch/internal/server"
	"github.com/zgpcy/lapwatch/internal/stage"
	"github.com/zgpcy/lapwatch/internal/stopwatch"
	"github.com/zgpcy/lapwatch/internal/version"
)

const (
	// DefaultShutdownTimeout is the maximum time to wait for graceful shutdown
	DefaultShutdownTimeout = 30 * time.Second
)

var configPath = flag.String("config", "config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration first (need log level from config)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel, logger.WithFormat(cfg.LogFormat))
	logger.Info("lapwatch starting",
		"version", version.String(),
		"config_path", *configPath)

	logger.Info("Configuration loaded successfully",
		"clock_bits", cfg.ClockBits,
		"loop_interval_ms", cfg.LoopInterval,
		"slow_lap_threshold_ms", cfg.SlowLapThreshold,
		"http_port", cfg.HTTPPort,
		"log_format", cfg.LogFormat)

	newTimer, err := stopwatch.NewFactory(cfg.ClockBits)
	if err != nil {
		logger.Error("Failed to create stopwatch factory", "error", err)
		os.Exit(1)
	}
	stages := stage.NewRegistry(newTimer)

	lapCollector := collector.NewLapCollector(stages)
	if err := registerCollectors(prometheus.DefaultRegisterer, lapCollector); err != nil {
		logger.Error("Failed to register collectors", "error", err)
		os.Exit(1)
	}
	logger.Info("Collectors registered with Prometheus")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controlLoop := loop.New(cfg.LoopPeriod(), stages, logger.WithFields("component", "loop"),
		[]loop.Step{loop.RuntimeSample(logger)},
		loop.WithSlowLapThreshold(cfg.SlowLapThreshold),
		loop.WithErrorHook(lapCollector.RecordStepError))

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		controlLoop.Run(ctx)
	}()

	logger.Info("Creating HTTP server", "port", cfg.HTTPPort)
	srv := server.NewServer(cfg, lapCollector, stages, prometheus.DefaultGatherer, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", "error", err)
		cancel()
		<-loopDone
		os.Exit(1)

	case sig := <-shutdown:
		logger.Info("Received shutdown signal, starting graceful shutdown", "signal", sig.String())

		cancel()
		<-loopDone

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during server shutdown", "error", err)
			os.Exit(1)
		}

		logger.Info("Server stopped gracefully")
	}
}

// registerCollectors registers the lap collector together with the Go runtime
// and process collectors. The default registerer already carries the latter
// two, so an AlreadyRegisteredError for them is not a failure.
func registerCollectors(reg prometheus.Registerer, lapCollector prometheus.Collector) error {
	if err := reg.Register(lapCollector); err != nil {
		return fmt.Errorf("lap collector: %w", err)
	}

	runtime := []prometheus.Collector{
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	}
	for _, c := range runtime {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return fmt.Errorf("runtime collector: %w", err)
			}
		}
	}
	return nil
}
