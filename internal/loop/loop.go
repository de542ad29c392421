// Package loop runs a fixed-interval control loop and times every part of it.
//
// Each tick first closes and reopens the PeriodStage lap, so that stage
// measures the time between consecutive ticks. Every Step then runs inside
// its own "step.<name>" stage.
package loop

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/zgpcy/lapwatch/internal/logger"
	"github.com/zgpcy/lapwatch/internal/stage"
)

// PeriodStage is the stage that measures the time between ticks
const PeriodStage = "loop"

// StepStagePrefix prefixes the stage name of every step
const StepStagePrefix = "step."

// Step is one unit of work run on every tick
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// ErrorHook is told about every failed step
type ErrorHook func(step string, err error)

type boundStep struct {
	Step
	stage *stage.Stage
}

// Loop times a periodic sequence of steps
type Loop struct {
	interval  time.Duration
	threshold uint64 // milliseconds, 0 disables slow lap warnings
	period    *stage.Stage
	steps     []boundStep
	onError   ErrorHook
	logger    *logger.Logger

	ticks   atomic.Uint64
	running atomic.Bool
}

// Option configures a Loop
type Option func(*Loop)

// WithSlowLapThreshold logs a warning for every lap longer than ms milliseconds
func WithSlowLapThreshold(ms int) Option {
	return func(l *Loop) {
		if ms > 0 {
			l.threshold = uint64(ms)
		}
	}
}

// WithErrorHook calls hook whenever a step returns an error
func WithErrorHook(hook ErrorHook) Option {
	return func(l *Loop) { l.onError = hook }
}

// New creates a Loop ticking every interval. Stages are taken from reg.
func New(interval time.Duration, reg *stage.Registry, log *logger.Logger, steps []Step, opts ...Option) *Loop {
	l := &Loop{
		interval: interval,
		period:   reg.Stage(PeriodStage),
		logger:   log,
	}
	for _, s := range steps {
		l.steps = append(l.steps, boundStep{
			Step:  s,
			stage: reg.Stage(StepStagePrefix + s.Name),
		})
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run ticks immediately and then every interval until ctx is cancelled.
// Only one Run may be active at a time; extra calls return at once.
func (l *Loop) Run(ctx context.Context) {
	if !l.running.CompareAndSwap(false, true) {
		l.logger.Warn("Control loop already running, skipping")
		return
	}
	defer l.running.Store(false)

	l.logger.Info("Starting control loop", "interval", l.interval.String(), "steps", len(l.steps))

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping control loop", "ticks", l.ticks.Load())
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs one iteration of the loop
func (l *Loop) Tick(ctx context.Context) {
	// End of the previous period is the start of this one
	period := l.period.MarkEnd()
	l.period.MarkStart()
	l.ticks.Add(1)
	// The period always includes the interval itself
	l.checkSlow(PeriodStage, period.Duration, uint64(l.interval.Milliseconds()))

	for _, s := range l.steps {
		if ctx.Err() != nil {
			return
		}

		s.stage.MarkStart()
		err := s.Run(ctx)
		r := s.stage.MarkEnd()

		if err != nil {
			l.logger.Error("Step failed", "step", s.Name, "duration_ms", r.Duration, "error", err)
			if l.onError != nil {
				l.onError(s.Name, err)
			}
			continue
		}
		l.checkSlow(s.stage.Name(), r.Duration, 0)
	}
}

// Ticks returns the number of completed ticks
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

func (l *Loop) checkSlow(name string, durMillis, allowance uint64) {
	if l.threshold == 0 || durMillis <= allowance+l.threshold {
		return
	}
	l.logger.Warn("Slow lap",
		"stage", name,
		"duration_ms", durMillis,
		"threshold_ms", allowance+l.threshold)
}
