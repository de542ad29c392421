package loop

import (
	"context"
	"runtime"

	"github.com/zgpcy/lapwatch/internal/logger"
)

// RuntimeSample returns a step that reads Go memory statistics and logs them at debug level
func RuntimeSample(log *logger.Logger) Step {
	return Step{
		Name: "runtime_sample",
		Run: func(ctx context.Context) error {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			log.DebugContext(ctx, "Runtime sample",
				"goroutines", runtime.NumGoroutine(),
				"heap_alloc_bytes", ms.HeapAlloc,
				"num_gc", ms.NumGC)
			return nil
		},
	}
}
