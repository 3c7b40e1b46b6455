package gridcalc

import "runtime"

// Config tunes the parallel evaluator. NewParallel replaces a zero or
// negative field with its DefaultConfig value.
type Config struct {
	// NumWorkers is the number of goroutines spawned per evaluator run.
	// Defaults to runtime.NumCPU(), one worker per hardware thread.
	NumWorkers int

	// FallbackRatio is the fraction of cells that must be affected by an
	// edit before ChangeCell discards invalidation state and reruns the
	// full bulk evaluation. Defaults to 0.8.
	FallbackRatio float64
}

// DefaultConfig returns one worker per hardware thread and an 0.8
// bulk-fallback threshold.
func DefaultConfig() Config {
	return Config{
		NumWorkers:    runtime.NumCPU(),
		FallbackRatio: 0.8,
	}
}
