package trace

import (
	"fmt"
	"strings"
)

// A Batch is one time-step's worth of records.
//
// Batches are immutable: the constructor copies the provided records and
// accessors return copies, so a batch can be shared between the schedule,
// the evaluator and the failure report without aliasing.
type Batch[R any] struct {
	records []R
}

// Create a new Batch containing the provided records.
func NewBatch[R any](records ...R) Batch[R] {
	cpy := make([]R, len(records))
	copy(cpy, records)
	return Batch[R]{records: cpy}
}

// Returns the number of records in the batch.
func (b Batch[R]) Len() int {
	return len(b.records)
}

// Returns true if the batch contains no records.
func (b Batch[R]) Empty() bool {
	return len(b.records) == 0
}

// Returns the record at index i.
func (b Batch[R]) At(i int) R {
	return b.records[i]
}

// Returns a copy of the records in the batch.
func (b Batch[R]) Records() []R {
	cpy := make([]R, len(b.records))
	copy(cpy, b.records)
	return cpy
}

func (b Batch[R]) String() string {
	return fmt.Sprintf("%v", b.records)
}

// A Trace is a finite ordered sequence of batches spanning one trial.
//
// A trace is owned by the trial that sampled it and is never mutated;
// derived traces (truncations, removals) are fresh values sharing the
// immutable batches.
type Trace[R any] struct {
	batches []Batch[R]
}

// Create a new Trace from the provided batches.
func NewTrace[R any](batches ...Batch[R]) Trace[R] {
	cpy := make([]Batch[R], len(batches))
	copy(cpy, batches)
	return Trace[R]{batches: cpy}
}

// Returns the number of time-steps in the trace.
func (t Trace[R]) Len() int {
	return len(t.batches)
}

// Returns the batch scheduled for step i.
func (t Trace[R]) Batch(i int) Batch[R] {
	return t.batches[i]
}

// Returns a new trace containing only the first n steps.
func (t Trace[R]) Truncate(n int) Trace[R] {
	if n > len(t.batches) {
		n = len(t.batches)
	}
	return Trace[R]{batches: t.batches[:n]}
}

// Returns a new trace with the batch at step i removed.
func (t Trace[R]) Remove(i int) Trace[R] {
	batches := make([]Batch[R], 0, len(t.batches)-1)
	batches = append(batches, t.batches[:i]...)
	batches = append(batches, t.batches[i+1:]...)
	return Trace[R]{batches: batches}
}

func (t Trace[R]) String() string {
	out := strings.Builder{}
	for i, b := range t.batches {
		fmt.Fprintf(&out, "-> step %v: %v \n", i, b)
	}
	return out.String()
}

// A Step pairs the input batch delivered at one interval with the output
// batch the pipeline materialized for that interval.
type Step[I, O any] struct {
	// 0-based interval index within the trial.
	Index int
	// The batch delivered to the pipeline at this interval.
	Input Batch[I]
	// The batch produced by the pipeline for this interval.
	Output Batch[O]
}

func (s Step[I, O]) String() string {
	return fmt.Sprintf("step %v: in %v out %v", s.Index, s.Input, s.Output)
}
