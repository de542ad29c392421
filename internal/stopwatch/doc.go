// Package stopwatch measures laps against a wrapping millisecond counter.
//
// A Stopwatch records a start mark and an end mark read from a clock.Source
// and keeps two results: the duration of the last lap and the longest lap
// seen since it was created. Marks and durations use the counter's own
// unsigned width, so a lap that spans a counter rollover still comes out
// right through modular subtraction.
//
// Calling MarkEnd without any earlier MarkStart yields a zero-length lap and
// keeps the end mark as the start. One Stopwatch can therefore time the
// period of a loop by calling MarkEnd followed by MarkStart at the top of
// every iteration.
//
// There is no reset. The longest lap is kept for the life of the Stopwatch.
//
// Example usage:
//
//	sw := stopwatch.New[uint32](clock.NewMonotonic[uint32]())
//	for {
//		sw.MarkStart()
//		work()
//		sw.MarkEnd()
//		fmt.Printf("lap %d ms, worst %d ms\n", sw.Duration(), sw.MaxDuration())
//	}
//
// Timer and Reading give a width-independent view for code that picks the
// counter width at runtime, see NewFactory.
package stopwatch
