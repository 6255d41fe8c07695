package harness

import (
	"time"

	"github.com/rs/zerolog"
)

type settings struct {
	trials        int
	seed          int64
	stepTimeout   time.Duration
	numConcurrent int
	shrink        bool
	logger        zerolog.Logger
}

func defaultSettings() settings {
	return settings{
		trials:        100,
		seed:          time.Now().UnixNano(),
		stepTimeout:   5 * time.Second,
		numConcurrent: 1,
		shrink:        true,
		logger:        zerolog.Nop(),
	}
}

// An Option configures the harness.
type Option func(*settings)

// Configure the minimum number of randomized trials to run.
//
// Default value is 100.
func Trials(n int) Option {
	return func(s *settings) { s.trials = n }
}

// Configure the master seed from which per-trial seeds are drawn.
// Running with the same seed reproduces the same sequence of trials.
//
// Default value is the current time.
func Seed(seed int64) Option {
	return func(s *settings) { s.seed = seed }
}

// Configure the bounded wait for a single interval's output.
// Exceeding it is reported as a stalled pipeline.
//
// Default value is 5 seconds.
func StepTimeout(d time.Duration) Option {
	return func(s *settings) { s.stepTimeout = d }
}

// Configure the number of trials executed concurrently. Trials are fully
// isolated: each has its own pipeline instance and generator seed. Within a
// trial, step delivery is always strictly sequential.
//
// Default value is 1.
func NumConcurrent(n int) Option {
	return func(s *settings) { s.numConcurrent = n }
}

// Disable counterexample shrinking.
func NoShrink() Option {
	return func(s *settings) { s.shrink = false }
}

// Configure the logger used for per-trial events.
//
// Default value is a no-op logger.
func Logger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}
