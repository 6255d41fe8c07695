package harness

import (
	"errors"
	"fmt"
)

var (
	// Returned when the harness is constructed with invalid parameters.
	ErrConfig = errors.New("harness: invalid configuration")
	// Returned when the pipeline fails to materialize an interval's output
	// within the configured wait. A stalled pipeline is a fatal harness
	// error, distinct from a formula falsification.
	ErrStalled = errors.New("harness: pipeline stalled")
)

// PipelineError reports an error raised by the pipeline under test while
// processing an interval. It indicates a defect outside the testing engine
// and is reported distinctly from a falsification.
type PipelineError struct {
	Trial int
	Step  int
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("harness: pipeline failed at trial %v step %v: %v", e.Trial, e.Step, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
