package harness

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"streamcheck/formula"
	"streamcheck/trace"
)

// runTrial executes one randomized trial: sample a trace, drive a fresh
// pipeline one batch per interval in strict order, and evaluate the formula
// incrementally as outputs arrive.
func (h *Harness[I, O]) runTrial(ctx context.Context, trial int, seed int64) trialOutcome[I] {
	id := uuid.New()
	log := h.cfg.logger.With().
		Int("trial", trial).
		Int64("seed", seed).
		Str("trial_id", id.String()).
		Logger()

	tr := h.gen.Sample(seed)

	p, err := h.factory()
	if err != nil {
		return trialOutcome[I]{trial: trial, err: errors.Wrapf(err, "harness: trial %v: pipeline construction", trial)}
	}
	ev, err := formula.NewEvaluator(h.formula, tr.Len())
	if err != nil {
		return trialOutcome[I]{trial: trial, err: err}
	}

	log.Debug().Int("steps", tr.Len()).Msg("trial started")
	for i := 0; i < tr.Len(); i++ {
		out, err := h.step(ctx, p, trial, i, tr.Batch(i))
		if err != nil {
			return trialOutcome[I]{trial: trial, err: err}
		}
		switch ev.Step(trace.Step[I, O]{Index: i, Input: tr.Batch(i), Output: out}) {
		case formula.Falsified:
			// Definite violation: abort the remaining schedule immediately.
			log.Debug().Int("step", i).Str("violated", ev.Cause()).Msg("trial falsified")
			return trialOutcome[I]{trial: trial, fals: &Falsification[I]{
				Trial:   trial,
				TrialID: id,
				Seed:    seed,
				Step:    i,
				Cause:   ev.Cause(),
				Trace:   tr,
			}}
		case formula.Satisfied:
			// The verdict can no longer change; stop submitting batches.
			log.Debug().Int("step", i).Msg("trial satisfied early")
			return trialOutcome[I]{trial: trial}
		}
	}
	if _, err := ev.Finish(); err != nil {
		return trialOutcome[I]{trial: trial, err: errors.Wrapf(err, "harness: trial %v", trial)}
	}
	log.Debug().Msg("trial passed")
	return trialOutcome[I]{trial: trial}
}

// step submits the batch for interval i and blocks until the pipeline has
// materialized that interval's output, bounded by the configured wait.
func (h *Harness[I, O]) step(ctx context.Context, p Pipeline[I, O], trial, i int, in trace.Batch[I]) (trace.Batch[O], error) {
	sctx, cancel := context.WithTimeout(ctx, h.cfg.stepTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.Advance(sctx, in)
	}()

	select {
	case err := <-done:
		if err != nil {
			return trace.Batch[O]{}, &PipelineError{Trial: trial, Step: i, Err: err}
		}
		return p.Output(), nil
	case <-sctx.Done():
		if err := ctx.Err(); err != nil {
			return trace.Batch[O]{}, err
		}
		return trace.Batch[O]{}, errors.Wrapf(ErrStalled, "trial %v interval %v produced no output within %v", trial, i, h.cfg.stepTimeout)
	}
}
