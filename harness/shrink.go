package harness

import (
	"context"

	"streamcheck/formula"
	"streamcheck/trace"
)

// Limits the number of candidate traces replayed while shrinking, so a
// slow pipeline cannot turn shrinking into the dominant cost of a run.
const maxShrinkCandidates = 200

// shrink reduces a falsifying trace to a smaller reproducing example.
//
// The trace is first truncated to the failing step, then batches are
// greedily removed while the violation still reproduces. Every candidate is
// replayed against a fresh pipeline instance, so shrinking never relies on
// leaked pipeline state. The falsification is updated in place; if no
// candidate reproduces, it is left untouched.
func (h *Harness[I, O]) shrink(ctx context.Context, f *Falsification[I]) {
	orig := f.Trace.Len()
	cur := f.Trace
	budget := maxShrinkCandidates

	if f.Step+1 < cur.Len() {
		cand := cur.Truncate(f.Step + 1)
		if step, cause, ok := h.refalsifies(ctx, cand, &budget); ok {
			cur = cand
			f.Step, f.Cause = step, cause
		}
	}

	for changed := true; changed && budget > 0; {
		changed = false
		for i := 0; i < cur.Len() && budget > 0; i++ {
			cand := cur.Remove(i)
			step, cause, ok := h.refalsifies(ctx, cand, &budget)
			if !ok {
				continue
			}
			cur = cand
			f.Step, f.Cause = step, cause
			changed = true
			break
		}
	}

	if cur.Len() < orig {
		f.Trace = cur
		f.ShrunkFrom = orig
	}
}

// refalsifies replays a candidate trace and reports whether the formula is
// still definitely violated within it.
//
// The horizon check is deliberately relaxed here: a violation is definite
// regardless of how many steps remain, so a candidate shorter than the
// formula's full horizon is acceptable as long as the violation occurs
// within it. A candidate that merely leaves obligations pending does not
// reproduce and is rejected.
func (h *Harness[I, O]) refalsifies(ctx context.Context, tr trace.Trace[I], budget *int) (int, string, bool) {
	if *budget <= 0 {
		return 0, "", false
	}
	*budget--

	p, err := h.factory()
	if err != nil {
		return 0, "", false
	}
	available := tr.Len()
	if hz := formula.Horizon(h.formula); hz > available {
		available = hz
	}
	ev, err := formula.NewEvaluator(h.formula, available)
	if err != nil {
		return 0, "", false
	}
	for i := 0; i < tr.Len(); i++ {
		out, err := h.step(ctx, p, 0, i, tr.Batch(i))
		if err != nil {
			return 0, "", false
		}
		switch ev.Step(trace.Step[I, O]{Index: i, Input: tr.Batch(i), Output: out}) {
		case formula.Falsified:
			return i, ev.Cause(), true
		case formula.Satisfied:
			return 0, "", false
		}
	}
	return 0, "", false
}
