package harness

import (
	"context"

	"streamcheck/trace"
)

// Pipeline is the capability the harness drives one trial against.
//
// The pipeline consumes one input batch per interval and materializes one
// output batch per interval. It may carry windowed aggregation state across
// intervals within a trial; the harness constructs a fresh instance per
// trial so no state leaks between independently sampled trials.
type Pipeline[I, O any] interface {
	// Deliver the batch for the next interval. Advance must block until the
	// interval's output is fully materialized, including any internal
	// windowed state update, and should respect cancellation of ctx.
	Advance(ctx context.Context, input trace.Batch[I]) error

	// The output batch of the most recently completed interval.
	Output() trace.Batch[O]
}

// A Factory constructs a fresh, isolated pipeline instance for one trial.
type Factory[I, O any] func() (Pipeline[I, O], error)
