package gen

import (
	"errors"
	"fmt"
	"math/rand"

	"streamcheck/trace"
)

// Returned when a generator is constructed with invalid shape parameters.
// Shape errors are raised at construction time, never while sampling.
var ErrShape = errors.New("gen: invalid shape parameter")

// A Gen produces one record from the provided random source.
type Gen[R any] func(r *rand.Rand) R

// Returns a Gen that always produces v.
func Const[R any](v R) Gen[R] {
	return func(*rand.Rand) R {
		return v
	}
}

// Returns a Gen that picks uniformly among the provided values.
func OneOf[R any](vs ...R) Gen[R] {
	return func(r *rand.Rand) R {
		return vs[r.Intn(len(vs))]
	}
}

// A BatchGen produces one batch per invocation, re-sampling every record.
type BatchGen[R any] struct {
	sample func(r *rand.Rand) trace.Batch[R]
}

// Create a BatchGen producing batches of exactly n records, each
// independently sampled from g.
func OfN[R any](n int, g Gen[R]) (BatchGen[R], error) {
	if n < 0 {
		return BatchGen[R]{}, fmt.Errorf("%w: batch size %v is negative", ErrShape, n)
	}
	return BatchGen[R]{sample: func(r *rand.Rand) trace.Batch[R] {
		records := make([]R, n)
		for i := range records {
			records[i] = g(r)
		}
		return trace.NewBatch(records...)
	}}, nil
}

// Create a BatchGen producing batches whose size is sampled uniformly in
// [n, m], each record independently sampled from g.
func OfNtoM[R any](n, m int, g Gen[R]) (BatchGen[R], error) {
	if n < 0 {
		return BatchGen[R]{}, fmt.Errorf("%w: batch size %v is negative", ErrShape, n)
	}
	if m < n {
		return BatchGen[R]{}, fmt.Errorf("%w: upper batch size %v is below lower %v", ErrShape, m, n)
	}
	return BatchGen[R]{sample: func(r *rand.Rand) trace.Batch[R] {
		size := n + r.Intn(m-n+1)
		records := make([]R, size)
		for i := range records {
			records[i] = g(r)
		}
		return trace.NewBatch(records...)
	}}, nil
}

// A TraceGen produces a full trace of statically known length.
//
// The length is fixed at construction time so that a formula's required
// horizon can be validated against it before anything is sampled.
type TraceGen[R any] struct {
	length int
	sample func(r *rand.Rand) trace.Trace[R]
}

// Returns the number of steps in every trace produced by the generator.
func (tg TraceGen[R]) Length() int {
	return tg.length
}

// Draw a trace using the provided seed.
//
// Sampling with the same seed reproduces an identical trace. This is what
// makes counterexamples replayable.
func (tg TraceGen[R]) Sample(seed int64) trace.Trace[R] {
	return tg.sample(rand.New(rand.NewSource(seed)))
}

// Create a TraceGen producing times consecutive batches, each independently
// re-sampled from bg. times may be zero, producing an empty trace segment.
func Repeat[R any](bg BatchGen[R], times int) (TraceGen[R], error) {
	if bg.sample == nil {
		return TraceGen[R]{}, fmt.Errorf("%w: batch generator is not initialized", ErrShape)
	}
	if times < 0 {
		return TraceGen[R]{}, fmt.Errorf("%w: repetition count %v is negative", ErrShape, times)
	}
	return TraceGen[R]{
		length: times,
		sample: func(r *rand.Rand) trace.Trace[R] {
			batches := make([]trace.Batch[R], times)
			for i := range batches {
				batches[i] = bg.sample(r)
			}
			return trace.NewTrace(batches...)
		},
	}, nil
}

// Create a TraceGen producing all steps of a followed by all steps of b.
// The total length is the sum of both lengths.
func Concat[R any](a, b TraceGen[R]) (TraceGen[R], error) {
	if a.sample == nil || b.sample == nil {
		return TraceGen[R]{}, fmt.Errorf("%w: trace generator is not initialized", ErrShape)
	}
	return TraceGen[R]{
		length: a.length + b.length,
		sample: func(r *rand.Rand) trace.Trace[R] {
			ta := a.sample(r)
			tb := b.sample(r)
			batches := make([]trace.Batch[R], 0, ta.Len()+tb.Len())
			for i := 0; i < ta.Len(); i++ {
				batches = append(batches, ta.Batch(i))
			}
			for i := 0; i < tb.Len(); i++ {
				batches = append(batches, tb.Batch(i))
			}
			return trace.NewTrace(batches...)
		},
	}, nil
}

// Create a TraceGen producing a-shaped batches for steps [0, bound) and
// b-shaped batches for steps [bound, bound+tail).
//
// Used to script properties that must hold before a transition and a
// different property after it.
func RegimeChange[R any](a, b BatchGen[R], bound, tail int) (TraceGen[R], error) {
	before, err := Repeat(a, bound)
	if err != nil {
		return TraceGen[R]{}, err
	}
	after, err := Repeat(b, tail)
	if err != nil {
		return TraceGen[R]{}, err
	}
	return Concat(before, after)
}
