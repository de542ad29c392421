package clock

import (
	"sync"
	"time"
)

// Width is the set of unsigned counter widths a millisecond source may report in.
// Values wrap to zero once the width's maximum is exceeded.
type Width interface {
	~uint16 | ~uint32 | ~uint64
}

// Source provides the current time in milliseconds since an arbitrary epoch
type Source[T Width] interface {
	Millis() T
}

// Func adapts a plain function to a Source
type Func[T Width] func() T

// Millis calls f
func (f Func[T]) Millis() T {
	return f()
}

// Monotonic is a millisecond counter backed by the runtime's monotonic clock.
// It starts at zero when created and wraps at the width of T.
type Monotonic[T Width] struct {
	epoch time.Time
}

// NewMonotonic creates a Monotonic counter starting now
func NewMonotonic[T Width]() *Monotonic[T] {
	return &Monotonic[T]{epoch: time.Now()}
}

// Millis returns the milliseconds elapsed since the counter was created,
// truncated to the width of T
func (m *Monotonic[T]) Millis() T {
	return T(uint64(time.Since(m.epoch).Milliseconds()))
}

// Manual is a Source whose value only changes when told to.
// It is safe for concurrent use.
type Manual[T Width] struct {
	mu  sync.Mutex
	now T
}

// NewManual creates a Manual source reading start
func NewManual[T Width](start T) *Manual[T] {
	return &Manual[T]{now: start}
}

// Millis returns the current value
func (m *Manual[T]) Millis() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the counter to v
func (m *Manual[T]) Set(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = v
}

// Advance moves the counter forward by d milliseconds, wrapping at the width of T
func (m *Manual[T]) Advance(d T) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
	return m.now
}

// Wall provides wall-clock time and can be mocked for testing
type Wall interface {
	Now() time.Time
}

// RealWall implements Wall using actual system time
type RealWall struct{}

// Now returns the current system time
func (RealWall) Now() time.Time {
	return time.Now()
}
