// Package streamcheck is a property-based testing engine for
// stream-processing pipelines that operate on discrete time-indexed batches.
//
// A property combines a randomized trace generator, a bounded temporal
// formula over the sequence of (input, output) batch pairs, and a factory
// for the pipeline under test. Checking a property runs many randomized
// trials, drives the pipeline one batch per interval, evaluates the formula
// incrementally, and reports the first falsifying trial together with the
// seed and trace needed to reproduce it.
package streamcheck

import (
	"context"

	"streamcheck/formula"
	"streamcheck/gen"
	"streamcheck/harness"
	"streamcheck/trace"
)

// A Property of a pipeline under a generated input shape.
//
// The formula is an immutable value: the same property can be checked many
// times, against many independently sampled traces.
type Property[I, O any] struct {
	// Name identifies the property in reports and logs.
	Name string
	// Trace generates the randomized input schedule for each trial.
	Trace gen.TraceGen[I]
	// Formula is the temporal assertion over (input, output) steps.
	Formula formula.Formula[trace.Step[I, O]]
	// Pipeline constructs a fresh pipeline instance for each trial.
	Pipeline harness.Factory[I, O]
}

// Check runs randomized trials of the property and reports the first
// falsifying trial, if any.
func Check[I, O any](ctx context.Context, p Property[I, O], opts ...harness.Option) harness.Result[I] {
	h, err := harness.New(p.Trace, p.Formula, p.Pipeline, opts...)
	if err != nil {
		return harness.Result[I]{Err: err}
	}
	return h.Run(ctx)
}

// Replay re-runs a single trial with the trial seed of a previously
// exported falsification, deterministically reproducing its trace.
func Replay[I, O any](ctx context.Context, p Property[I, O], seed int64, opts ...harness.Option) harness.Result[I] {
	h, err := harness.New(p.Trace, p.Formula, p.Pipeline, opts...)
	if err != nil {
		return harness.Result[I]{Err: err}
	}
	return h.Replay(ctx, seed)
}

// OnInput creates an atom evaluating pred on the step's input batch.
func OnInput[I, O any](name string, pred func(trace.Batch[I]) bool) formula.Formula[trace.Step[I, O]] {
	return formula.At(name, func(s trace.Step[I, O]) trace.Batch[I] { return s.Input }, pred)
}

// OnOutput creates an atom evaluating pred on the step's output batch.
func OnOutput[I, O any](name string, pred func(trace.Batch[O]) bool) formula.Formula[trace.Step[I, O]] {
	return formula.At(name, func(s trace.Step[I, O]) trace.Batch[O] { return s.Output }, pred)
}

// OnStep creates an atom evaluating pred on the whole (input, output) step.
func OnStep[I, O any](name string, pred func(trace.Step[I, O]) bool) formula.Formula[trace.Step[I, O]] {
	return formula.Atom(name, pred)
}
