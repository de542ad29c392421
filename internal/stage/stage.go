// Package stage names stopwatches and makes them safe to share.
//
// A Stage wraps a stopwatch.Timer with a mutex and a lap counter so that the
// goroutine taking marks and the goroutine reading them (a metrics scrape,
// an HTTP handler) can use it at the same time. A Registry hands out stages
// by name.
package stage

import (
	"sync"

	"github.com/zgpcy/lapwatch/internal/stopwatch"
)

// Stage is a named, mutex-guarded stopwatch
type Stage struct {
	name string

	mu    sync.Mutex
	timer stopwatch.Timer
	laps  uint64
}

// New creates a Stage around timer
func New(name string, timer stopwatch.Timer) *Stage {
	return &Stage{name: name, timer: timer}
}

// Name returns the stage name
func (s *Stage) Name() string {
	return s.name
}

// MarkStart starts a lap
func (s *Stage) MarkStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.MarkStart()
}

// MarkEnd ends a lap and returns the resulting reading
func (s *Stage) MarkEnd() stopwatch.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer.MarkEnd()
	s.laps++
	return s.readingLocked()
}

// Reading returns the current reading
func (s *Stage) Reading() stopwatch.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readingLocked()
}

func (s *Stage) readingLocked() stopwatch.Reading {
	r := s.timer.Snapshot()
	r.Laps = s.laps
	return r
}

// Registry creates stages on first use and remembers them in creation order
type Registry struct {
	newTimer stopwatch.Factory

	mu     sync.RWMutex
	stages map[string]*Stage
	order  []*Stage
}

// NewRegistry creates an empty Registry whose stages get timers from newTimer
func NewRegistry(newTimer stopwatch.Factory) *Registry {
	return &Registry{
		newTimer: newTimer,
		stages:   make(map[string]*Stage),
	}
}

// Stage returns the stage called name, creating it if needed
func (r *Registry) Stage(name string) *Stage {
	r.mu.RLock()
	s, ok := r.stages[name]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stages[name]; ok {
		return s
	}
	s = New(name, r.newTimer())
	r.stages[name] = s
	r.order = append(r.order, s)
	return s
}

// Lookup returns the stage called name if it exists
func (r *Registry) Lookup(name string) (*Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[name]
	return s, ok
}

// Stages returns all stages in creation order
func (r *Registry) Stages() []*Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Stage, len(r.order))
	copy(out, r.order)
	return out
}
