// Package collector implements a Prometheus collector for stage lap metrics.
//
// The collector reads every stage in a stage.Registry at scrape time and
// exports its last and longest lap. Laps are kept in integer milliseconds by
// the stopwatches and converted to seconds here.
//
// The collector exposes the following metrics:
//   - lapwatch_lap_duration_seconds: Last completed lap, per stage
//   - lapwatch_lap_max_duration_seconds: Longest lap since startup, per stage
//   - lapwatch_laps_total: Completed laps, per stage
//   - lapwatch_stage_running: 1 while a lap is in progress, per stage
//   - lapwatch_step_errors_total: Failed control loop steps, per step
//   - lapwatch_build_info: Build version information
//
// Example usage:
//
//	reg := stage.NewRegistry(factory)
//	lapCollector := collector.NewLapCollector(reg)
//	prometheus.MustRegister(lapCollector)
//
//	l := loop.New(time.Second, reg, log, steps,
//		loop.WithErrorHook(lapCollector.RecordStepError))
package collector
