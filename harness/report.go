package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"

	"streamcheck/trace"
)

// A Falsification is the counterexample produced by a failing trial: the
// trace, the step at which the formula resolved to a violation, and the
// identity of the violated sub-formula. Together with the seed it is enough
// to deterministically reproduce the failure.
type Falsification[I any] struct {
	// Index of the failing trial within the run.
	Trial int
	// Identity of the failing trial, for correlating log events.
	TrialID uuid.UUID
	// The generator seed that produced the failing trace.
	Seed int64
	// The step at which the formula was definitely violated.
	Step int
	// The violated sub-formula or atomic predicate.
	Cause string
	// The falsifying input trace. If shrinking succeeded this is the
	// reduced trace, no longer derivable from the seed alone.
	Trace trace.Trace[I]
	// Length of the originally sampled trace if the reported trace was
	// shrunk. Zero if the trace is the original sample.
	ShrunkFrom int
}

// The Result of checking one property over a number of trials.
type Result[I any] struct {
	// True if every trial completed without a violation.
	Passed bool
	// Number of trials that were completed.
	Trials int
	// The first falsifying trial. Nil if Passed is true.
	Failure *Falsification[I]
	// A configuration error, pipeline runtime failure or stall. These are
	// distinct from a falsification: they indicate a defect outside the
	// property being checked.
	Err error
}

// Generate a response.
//
// Returns a boolean that is true if the property held for all trials, and a
// string describing the result. On falsification the description contains
// the failing step, the violated sub-formula and the falsifying trace.
func (r Result[I]) Response() (bool, string) {
	if r.Err != nil {
		return false, fmt.Sprintf("Harness error after %v trials: %v", r.Trials, r.Err)
	}
	if r.Passed {
		return true, fmt.Sprintf("Property holds for %v trials", r.Trials)
	}
	f := r.Failure
	out := fmt.Sprintf("Property falsified. Trial: %v. Seed: %v. Step: %v. Violated: %v. Trace: \n", f.Trial, f.Seed, f.Step, f.Cause)
	var buffer bytes.Buffer
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	for i := 0; i < f.Trace.Len(); i++ {
		fmt.Fprintf(wrt, "-> step %v: %v \n", i, f.Trace.Batch(i))
	}
	if f.ShrunkFrom > 0 {
		fmt.Fprintf(wrt, "(shrunk from %v steps) \n", f.ShrunkFrom)
	}
	wrt.Flush()
	out += buffer.String()
	return false, out
}

// ReplayRecord is the JSON payload exported for a falsification. It carries
// what is needed to deterministically reproduce the failing trial from the
// generator, rather than the trace itself.
type ReplayRecord struct {
	TrialID string `json:"trial_id"`
	Trial   int    `json:"trial"`
	Seed    int64  `json:"seed"`
	Step    int    `json:"step"`
	Cause   string `json:"cause"`
}

// Export the falsification as a JSON replay record. Writes nothing if the
// property held.
func (r Result[I]) Export(w io.Writer) error {
	if r.Failure == nil {
		return nil
	}
	f := r.Failure
	return json.NewEncoder(w).Encode(ReplayRecord{
		TrialID: f.TrialID.String(),
		Trial:   f.Trial,
		Seed:    f.Seed,
		Step:    f.Step,
		Cause:   f.Cause,
	})
}

// Read a replay record previously written by Export.
func ImportReplay(rd io.Reader) (ReplayRecord, error) {
	var rec ReplayRecord
	err := json.NewDecoder(rd).Decode(&rec)
	return rec, err
}
