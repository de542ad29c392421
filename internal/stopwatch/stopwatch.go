package stopwatch

import (
	"fmt"
	"math/bits"

	"github.com/zgpcy/lapwatch/internal/clock"
)

// State of a Stopwatch between marks
type State int

const (
	// Idle means no lap is in progress
	Idle State = iota
	// Running means a start mark was taken and its end mark is pending
	Running
)

// String returns the lower-case state name
func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	default:
		return fmt.Errorf("unknown stopwatch state %q", text)
	}
	return nil
}

// Stopwatch measures laps between a start mark and an end mark and keeps the
// longest lap seen. All values are milliseconds in the width of T, and lap
// arithmetic wraps at that width.
//
// A Stopwatch is not safe for concurrent use.
type Stopwatch[T clock.Width] struct {
	clock clock.Source[T]

	start   T
	started bool
	end     T
	dur     T
	maxDur  T
	state   State
}

// New creates an idle Stopwatch reading src
func New[T clock.Width](src clock.Source[T]) *Stopwatch[T] {
	return &Stopwatch[T]{clock: src}
}

// MarkStart records the start of a lap
func (s *Stopwatch[T]) MarkStart() {
	s.start = s.clock.Millis()
	s.started = true
	s.state = Running
}

// MarkEnd records the end of a lap and updates the last and longest lap.
//
// Without a prior start mark the end mark doubles as the start, so the lap
// is zero-length. This lets one Stopwatch time alternating phases by calling
// MarkEnd and then MarkStart at each boundary.
func (s *Stopwatch[T]) MarkEnd() {
	s.end = s.clock.Millis()
	if !s.started {
		s.start = s.end
		s.started = true
	}
	s.dur = s.end - s.start
	if s.dur > s.maxDur {
		s.maxDur = s.dur
	}
	s.state = Idle
}

// Start returns the most recent start mark, 0 if none was taken
func (s *Stopwatch[T]) Start() T { return s.start }

// Started reports whether a start mark is present
func (s *Stopwatch[T]) Started() bool { return s.started }

// End returns the most recent end mark
func (s *Stopwatch[T]) End() T { return s.end }

// Duration returns the last lap in milliseconds
func (s *Stopwatch[T]) Duration() T { return s.dur }

// DurationSeconds returns the last lap in whole seconds
func (s *Stopwatch[T]) DurationSeconds() T { return s.dur / 1000 }

// MaxDuration returns the longest lap in milliseconds
func (s *Stopwatch[T]) MaxDuration() T { return s.maxDur }

// MaxDurationSeconds returns the longest lap in whole seconds
func (s *Stopwatch[T]) MaxDurationSeconds() T { return s.maxDur / 1000 }

// State returns Running between MarkStart and MarkEnd, Idle otherwise
func (s *Stopwatch[T]) State() State { return s.state }

// Snapshot returns the current values widened to uint64
func (s *Stopwatch[T]) Snapshot() Reading {
	return Reading{
		Start:       uint64(s.start),
		End:         uint64(s.end),
		Duration:    uint64(s.dur),
		MaxDuration: uint64(s.maxDur),
		Started:     s.started,
		State:       s.state,
		Bits:        bits.Len64(uint64(^T(0))),
	}
}
