package formula

import "errors"

var (
	// Returned when a formula's required horizon exceeds the number of steps
	// the trace will provide.
	ErrHorizon = errors.New("formula: required horizon exceeds available trace length")
	// Returned when a run ends with obligations still pending. Guarded
	// against by the horizon check, so reaching it indicates the evaluator
	// was fed fewer steps than it was validated for.
	ErrUnresolved = errors.New("formula: obligations still pending at end of trace")
)

// The outcome of evaluating a formula against the steps seen so far.
type Verdict int

const (
	// Obligations remain; more steps are needed.
	Pending Verdict = iota
	// The formula is definitely satisfied. Remaining steps cannot change it.
	Satisfied
	// The formula is definitely violated. Remaining steps cannot change it.
	Falsified
)

func (v Verdict) String() string {
	switch v {
	case Pending:
		return "pending"
	case Satisfied:
		return "satisfied"
	case Falsified:
		return "falsified"
	}
	return "unknown"
}

// An Evaluator incrementally checks one formula against one run.
//
// It consumes steps one at a time as the harness produces them, maintaining
// the residual obligation tree, and resolves to a definite verdict as soon
// as logically determined so that a trial can abort early.
type Evaluator[S any] struct {
	residual Formula[S]
	verdict  Verdict
	cause    string
	steps    int
}

// Create an Evaluator for f over a run of the given number of steps.
//
// Fails fast if the formula is misconfigured or its required horizon exceeds
// the available steps; a horizon mismatch must never degrade to a pass.
func NewEvaluator[S any](f Formula[S], available int) (*Evaluator[S], error) {
	if err := Validate(f, available); err != nil {
		return nil, err
	}
	return &Evaluator[S]{residual: f, verdict: Pending}, nil
}

// Feed the next step to the evaluator and return the updated verdict.
// Once the verdict is definite further steps leave it unchanged.
func (e *Evaluator[S]) Step(s S) Verdict {
	if e.verdict != Pending {
		return e.verdict
	}
	e.residual = e.residual.progress(s)
	e.steps++
	switch t := e.residual.(type) {
	case satisfied[S]:
		e.verdict = Satisfied
	case violated[S]:
		e.verdict = Falsified
		e.cause = t.cause
	}
	return e.verdict
}

// Returns the current verdict.
func (e *Evaluator[S]) Verdict() Verdict {
	return e.verdict
}

// Returns the number of steps consumed so far.
func (e *Evaluator[S]) Steps() int {
	return e.steps
}

// Identifies the violated sub-formula. Empty unless the verdict is Falsified.
func (e *Evaluator[S]) Cause() string {
	return e.cause
}

// A rendering of the pending obligations, for logging.
func (e *Evaluator[S]) Obligations() string {
	return e.residual.String()
}

// Declare the end of the run. An evaluator that is still pending at this
// point was fed fewer steps than its validated horizon.
func (e *Evaluator[S]) Finish() (Verdict, error) {
	if e.verdict == Pending {
		return Pending, ErrUnresolved
	}
	return e.verdict, nil
}
