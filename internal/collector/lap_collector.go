package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zgpcy/lapwatch/internal/loop"
	"github.com/zgpcy/lapwatch/internal/stage"
	"github.com/zgpcy/lapwatch/internal/stopwatch"
	"github.com/zgpcy/lapwatch/internal/version"
)

// LapCollector implements prometheus.Collector for stage lap metrics
type LapCollector struct {
	registry *stage.Registry

	// Metrics
	durationMetric    *prometheus.Desc
	maxDurationMetric *prometheus.Desc
	lapsMetric        *prometheus.Desc
	runningMetric     *prometheus.Desc
	stepErrorsTotal   *prometheus.CounterVec // Survives across scrapes
	buildInfo         *prometheus.GaugeVec   // Build version information
}

// NewLapCollector creates a LapCollector reading the stages in reg
func NewLapCollector(reg *stage.Registry) *LapCollector {
	stepErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lapwatch_step_errors_total",
			Help: "Total number of failed control loop steps since startup",
		},
		[]string{"step"},
	)

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lapwatch_build_info",
			Help: "Build version information",
		},
		[]string{"version", "git_commit", "build_date", "go_version"},
	)

	versionInfo := version.Info()
	buildInfo.With(prometheus.Labels{
		"version":    versionInfo["version"],
		"git_commit": versionInfo["git_commit"],
		"build_date": versionInfo["build_date"],
		"go_version": versionInfo["go_version"],
	}).Set(1)

	return &LapCollector{
		registry: reg,
		durationMetric: prometheus.NewDesc(
			"lapwatch_lap_duration_seconds",
			"Duration of the most recent completed lap",
			[]string{"stage"},
			nil,
		),
		maxDurationMetric: prometheus.NewDesc(
			"lapwatch_lap_max_duration_seconds",
			"Longest lap observed since startup",
			[]string{"stage"},
			nil,
		),
		lapsMetric: prometheus.NewDesc(
			"lapwatch_laps_total",
			"Number of completed laps",
			[]string{"stage"},
			nil,
		),
		runningMetric: prometheus.NewDesc(
			"lapwatch_stage_running",
			"Whether a lap is in progress (1 = running, 0 = idle)",
			[]string{"stage"},
			nil,
		),
		stepErrorsTotal: stepErrorsTotal,
		buildInfo:       buildInfo,
	}
}

// Describe implements prometheus.Collector
func (c *LapCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.durationMetric
	ch <- c.maxDurationMetric
	ch <- c.lapsMetric
	ch <- c.runningMetric
	c.stepErrorsTotal.Describe(ch)
	c.buildInfo.Describe(ch)
}

// Collect implements prometheus.Collector
func (c *LapCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.registry.Stages() {
		r := s.Reading()
		name := s.Name()

		ch <- prometheus.MustNewConstMetric(c.durationMetric, prometheus.GaugeValue, millisToSeconds(r.Duration), name)
		ch <- prometheus.MustNewConstMetric(c.maxDurationMetric, prometheus.GaugeValue, millisToSeconds(r.MaxDuration), name)
		ch <- prometheus.MustNewConstMetric(c.lapsMetric, prometheus.CounterValue, float64(r.Laps), name)

		running := 0.0
		if r.State == stopwatch.Running {
			running = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.runningMetric, prometheus.GaugeValue, running, name)
	}

	c.stepErrorsTotal.Collect(ch)
	c.buildInfo.Collect(ch)
}

// RecordStepError counts a failed step. It matches loop.ErrorHook.
func (c *LapCollector) RecordStepError(step string, _ error) {
	c.stepErrorsTotal.With(prometheus.Labels{"step": step}).Inc()
}

// IsReady returns true once the control loop has completed at least one lap
func (c *LapCollector) IsReady() bool {
	s, ok := c.registry.Lookup(loop.PeriodStage)
	return ok && s.Reading().Laps > 0
}

// StageCount returns the number of stages being tracked
func (c *LapCollector) StageCount() int {
	return len(c.registry.Stages())
}

// StageReading is a stage's reading together with its name
type StageReading struct {
	Stage string `json:"stage"`
	stopwatch.Reading
}

// Readings returns the current reading of every stage in creation order
func (c *LapCollector) Readings() []StageReading {
	stages := c.registry.Stages()
	out := make([]StageReading, 0, len(stages))
	for _, s := range stages {
		out = append(out, StageReading{Stage: s.Name(), Reading: s.Reading()})
	}
	return out
}

func millisToSeconds(ms uint64) float64 {
	return float64(ms) / 1000
}
