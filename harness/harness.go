// Package harness drives randomized trials of "generate trace, drive
// pipeline, evaluate formula" and reports the first falsifying trial.
package harness

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"streamcheck/formula"
	"streamcheck/gen"
	"streamcheck/trace"
)

// A Harness checks one temporal property of one pipeline.
//
// Each trial samples a fresh trace from the generator, drives a fresh
// pipeline instance one batch per interval in strict order, and feeds the
// resulting (input, output) steps to an incremental formula evaluator. The
// trial aborts its remaining schedule as soon as the evaluator reaches a
// definite verdict.
type Harness[I, O any] struct {
	gen     gen.TraceGen[I]
	formula formula.Formula[trace.Step[I, O]]
	factory Factory[I, O]
	cfg     settings
}

// Create a new Harness.
//
// Configuration is validated up front: invalid trial parameters, invalid
// formula bounds and a formula horizon exceeding the generated trace length
// all fail here with a descriptive error, before anything is executed.
func New[I, O any](tg gen.TraceGen[I], f formula.Formula[trace.Step[I, O]], factory Factory[I, O], opts ...Option) (*Harness[I, O], error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: no pipeline factory provided", ErrConfig)
	}
	if cfg.trials < 1 {
		return nil, fmt.Errorf("%w: trial count %v must be at least 1", ErrConfig, cfg.trials)
	}
	if cfg.numConcurrent < 1 {
		return nil, fmt.Errorf("%w: concurrency %v must be at least 1", ErrConfig, cfg.numConcurrent)
	}
	if cfg.stepTimeout <= 0 {
		return nil, fmt.Errorf("%w: step timeout %v must be positive", ErrConfig, cfg.stepTimeout)
	}
	if err := formula.Validate(f, tg.Length()); err != nil {
		return nil, err
	}
	return &Harness[I, O]{
		gen:     tg,
		formula: f,
		factory: factory,
		cfg:     cfg,
	}, nil
}

// The outcome of a single trial, reported back to the main loop.
type trialOutcome[I any] struct {
	trial int
	fals  *Falsification[I]
	err   error
}

// Run the configured number of trials.
//
// Stops on the first falsification or harness error. If all trials pass the
// property is accepted for this sample size; that is never a universal proof.
func (h *Harness[I, O]) Run(ctx context.Context) Result[I] {
	// Per-trial seeds are drawn up front from the master seed so that a
	// trial's trace does not depend on scheduling of the other trials.
	rng := rand.New(rand.NewSource(h.cfg.seed))
	seeds := make([]int64, h.cfg.trials)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := h.cfg.numConcurrent
	if workers > h.cfg.trials {
		workers = h.cfg.trials
	}

	// One index is handed out per permitted trial and one outcome reported
	// per completed trial. The main loop only dispatches the next trial
	// after processing a status, so nothing new starts once a failure has
	// stopped the run; in-flight trials on other workers are cancelled and
	// drained.
	trialCh := make(chan int)
	statusCh := make(chan trialOutcome[I])

	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range trialCh {
				statusCh <- h.runTrial(runCtx, idx, seeds[idx])
			}
		}()
	}

	stopped := false
	stop := func() {
		if !stopped {
			stopped = true
			close(trialCh)
			cancel()
		}
	}

	started := 0
	for w := 0; w < workers && started < h.cfg.trials; w++ {
		trialCh <- started
		started++
	}

	completed := 0
	var failure *Falsification[I]
	var fatal error
	for completed < started {
		outcome := <-statusCh
		completed++
		if outcome.err != nil && fatal == nil && !errors.Is(outcome.err, context.Canceled) {
			fatal = outcome.err
			stop()
		}
		if outcome.fals != nil && failure == nil {
			failure = outcome.fals
			stop()
		}
		if ctx.Err() != nil {
			stop()
		}
		if !stopped && started < h.cfg.trials {
			trialCh <- started
			started++
		} else if started == completed {
			stop()
		}
	}
	stop()
	wg.Wait()

	if fatal != nil {
		return Result[I]{Trials: completed, Err: fatal}
	}
	if failure != nil {
		if h.cfg.shrink {
			// Shrinking replays candidate traces on the caller's context,
			// not the cancelled run context.
			h.shrink(ctx, failure)
		}
		h.cfg.logger.Error().
			Int("trial", failure.Trial).
			Int64("seed", failure.Seed).
			Int("step", failure.Step).
			Str("violated", failure.Cause).
			Msg("property falsified")
		return Result[I]{Trials: completed, Failure: failure}
	}
	if err := ctx.Err(); err != nil {
		return Result[I]{Trials: completed, Err: err}
	}
	return Result[I]{Passed: true, Trials: completed}
}

// Replay runs a single trial with the provided trial seed, reproducing the
// trace of a previously exported falsification.
func (h *Harness[I, O]) Replay(ctx context.Context, seed int64) Result[I] {
	outcome := h.runTrial(ctx, 0, seed)
	if outcome.err != nil {
		return Result[I]{Trials: 1, Err: outcome.err}
	}
	if outcome.fals != nil {
		return Result[I]{Trials: 1, Failure: outcome.fals}
	}
	return Result[I]{Passed: true, Trials: 1}
}
