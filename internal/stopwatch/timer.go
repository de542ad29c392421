package stopwatch

import (
	"errors"
	"fmt"

	"github.com/zgpcy/lapwatch/internal/clock"
)

// ErrUnsupportedWidth is returned by NewFactory for counter widths other than 16, 32 or 64 bits
var ErrUnsupportedWidth = errors.New("unsupported clock width")

// Timer is the width-independent view of a Stopwatch
type Timer interface {
	MarkStart()
	MarkEnd()
	Snapshot() Reading
}

// Reading is a point-in-time copy of a Stopwatch's marks and laps, in milliseconds
type Reading struct {
	Start       uint64 `json:"start_ms"`
	End         uint64 `json:"end_ms"`
	Duration    uint64 `json:"duration_ms"`
	MaxDuration uint64 `json:"max_duration_ms"`
	Started     bool   `json:"started"`
	State       State  `json:"state"`
	Bits        int    `json:"clock_bits"`
	Laps        uint64 `json:"laps"` // Filled in by callers that count laps
}

// DurationSeconds returns the last lap in whole seconds
func (r Reading) DurationSeconds() uint64 { return r.Duration / 1000 }

// MaxDurationSeconds returns the longest lap in whole seconds
func (r Reading) MaxDurationSeconds() uint64 { return r.MaxDuration / 1000 }

// Factory creates Timers that share one clock
type Factory func() Timer

// NewFactory returns a Factory whose timers read a shared Monotonic counter of
// the given width in bits
func NewFactory(bits int) (Factory, error) {
	switch bits {
	case 16:
		return FactoryFor[uint16](clock.NewMonotonic[uint16]()), nil
	case 32:
		return FactoryFor[uint32](clock.NewMonotonic[uint32]()), nil
	case 64:
		return FactoryFor[uint64](clock.NewMonotonic[uint64]()), nil
	default:
		return nil, fmt.Errorf("%w: %d bits", ErrUnsupportedWidth, bits)
	}
}

// FactoryFor returns a Factory whose timers read src
func FactoryFor[T clock.Width](src clock.Source[T]) Factory {
	return func() Timer {
		return New(src)
	}
}
