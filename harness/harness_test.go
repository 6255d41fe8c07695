package harness_test

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamcheck/formula"
	"streamcheck/gen"
	"streamcheck/harness"
	"streamcheck/match"
	"streamcheck/trace"
)

// fakePipeline echoes each input batch as the interval's output. Behavior
// flags simulate the failure modes of a real pipeline under test.
type fakePipeline struct {
	step int
	out  trace.Batch[int]

	// Append a bogus record to every output from this step on. -1 disables.
	corruptFrom int
	// Return an error at this step. -1 disables.
	failAt int
	// Block until the context is cancelled instead of producing output.
	stall bool

	advanced *int
}

func (p *fakePipeline) Advance(ctx context.Context, in trace.Batch[int]) error {
	if p.advanced != nil {
		*p.advanced++
	}
	if p.stall {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.step == p.failAt {
		return fmt.Errorf("stage exploded")
	}
	if p.corruptFrom >= 0 && p.step >= p.corruptFrom {
		p.out = trace.NewBatch(append(in.Records(), 999)...)
	} else {
		p.out = in
	}
	p.step++
	return nil
}

func (p *fakePipeline) Output() trace.Batch[int] {
	return p.out
}

func echoFactory() (harness.Pipeline[int, int], error) {
	return &fakePipeline{corruptFrom: -1, failAt: -1}, nil
}

func smallTrace(t *testing.T, steps int) gen.TraceGen[int] {
	t.Helper()
	bg, err := gen.OfNtoM(1, 4, func(r *rand.Rand) int { return r.Intn(100) })
	require.NoError(t, err)
	tg, err := gen.Repeat(bg, steps)
	require.NoError(t, err)
	return tg
}

func echoes(steps int) formula.Formula[trace.Step[int, int]] {
	return formula.Always(formula.Atom("output-matches-input", func(s trace.Step[int, int]) bool {
		return match.EqualAsSet(s.Input, s.Output)
	}), steps)
}

func TestAllTrialsPass(t *testing.T) {
	h, err := harness.New(smallTrace(t, 8), echoes(8), echoFactory, harness.Trials(25), harness.Seed(1))
	require.NoError(t, err)

	res := h.Run(context.Background())
	ok, desc := res.Response()
	assert.True(t, ok, desc)
	assert.Equal(t, 25, res.Trials)
	assert.Nil(t, res.Failure)
}

func TestFalsificationReported(t *testing.T) {
	factory := func() (harness.Pipeline[int, int], error) {
		return &fakePipeline{corruptFrom: 3, failAt: -1}, nil
	}
	h, err := harness.New(smallTrace(t, 8), echoes(8), factory,
		harness.Trials(5), harness.Seed(7), harness.NoShrink())
	require.NoError(t, err)

	res := h.Run(context.Background())
	require.NotNil(t, res.Failure)
	assert.False(t, res.Passed)
	assert.Equal(t, 3, res.Failure.Step, "corruption starts at step 3")
	assert.Equal(t, "output-matches-input", res.Failure.Cause)
	assert.Equal(t, 8, res.Failure.Trace.Len())
	assert.Equal(t, 1, res.Trials, "the first trial falsifies, no further trials should run")
}

func TestFreshPipelinePerTrial(t *testing.T) {
	built := 0
	factory := func() (harness.Pipeline[int, int], error) {
		built++
		return &fakePipeline{corruptFrom: -1, failAt: -1}, nil
	}
	h, err := harness.New(smallTrace(t, 4), echoes(4), factory, harness.Trials(10), harness.Seed(3))
	require.NoError(t, err)

	res := h.Run(context.Background())
	require.True(t, res.Passed)
	assert.Equal(t, 10, built, "each trial must get an isolated pipeline instance")
}

func TestEarlyAbortOnViolation(t *testing.T) {
	advanced := 0
	factory := func() (harness.Pipeline[int, int], error) {
		return &fakePipeline{corruptFrom: 0, failAt: -1, advanced: &advanced}, nil
	}
	h, err := harness.New(smallTrace(t, 8), echoes(8), factory,
		harness.Trials(1), harness.Seed(1), harness.NoShrink())
	require.NoError(t, err)

	res := h.Run(context.Background())
	require.NotNil(t, res.Failure)
	assert.Equal(t, 0, res.Failure.Step)
	assert.Equal(t, 1, advanced, "no batches may be submitted after a definite violation")
}

func TestEarlyStopOnSatisfied(t *testing.T) {
	advanced := 0
	factory := func() (harness.Pipeline[int, int], error) {
		return &fakePipeline{corruptFrom: -1, failAt: -1, advanced: &advanced}, nil
	}
	f := formula.Later(formula.Atom("any step", func(trace.Step[int, int]) bool { return true }), 5)
	h, err := harness.New(smallTrace(t, 8), f, factory, harness.Trials(1), harness.Seed(1))
	require.NoError(t, err)

	res := h.Run(context.Background())
	assert.True(t, res.Passed)
	assert.Equal(t, 1, advanced, "a satisfied verdict stops the remaining schedule")
}

func TestPipelineRuntimeFailure(t *testing.T) {
	factory := func() (harness.Pipeline[int, int], error) {
		return &fakePipeline{corruptFrom: -1, failAt: 2}, nil
	}
	h, err := harness.New(smallTrace(t, 8), echoes(8), factory, harness.Trials(3), harness.Seed(1))
	require.NoError(t, err)

	res := h.Run(context.Background())
	require.Error(t, res.Err)
	var perr *harness.PipelineError
	require.ErrorAs(t, res.Err, &perr, "a pipeline error is not a falsification")
	assert.Equal(t, 2, perr.Step)
	assert.Nil(t, res.Failure)
}

func TestStalledPipeline(t *testing.T) {
	factory := func() (harness.Pipeline[int, int], error) {
		return &fakePipeline{corruptFrom: -1, failAt: -1, stall: true}, nil
	}
	h, err := harness.New(smallTrace(t, 4), echoes(4), factory,
		harness.Trials(2), harness.Seed(1), harness.StepTimeout(20*time.Millisecond))
	require.NoError(t, err)

	res := h.Run(context.Background())
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, harness.ErrStalled)
}

func TestConfigErrors(t *testing.T) {
	tg := smallTrace(t, 4)

	_, err := harness.New(tg, echoes(4), nil)
	assert.ErrorIs(t, err, harness.ErrConfig)

	_, err = harness.New(tg, echoes(4), echoFactory, harness.Trials(0))
	assert.ErrorIs(t, err, harness.ErrConfig)

	_, err = harness.New(tg, echoes(4), echoFactory, harness.NumConcurrent(0))
	assert.ErrorIs(t, err, harness.ErrConfig)

	_, err = harness.New(tg, echoes(4), echoFactory, harness.StepTimeout(0))
	assert.ErrorIs(t, err, harness.ErrConfig)

	// A formula horizon exceeding the generated trace length must be
	// rejected before anything runs, never silently pass.
	_, err = harness.New(tg, echoes(10), echoFactory)
	assert.ErrorIs(t, err, formula.ErrHorizon)

	_, err = harness.New(tg, formula.Always(echoes(1), 0), echoFactory)
	assert.ErrorIs(t, err, formula.ErrInvalid)
}

func TestDeterministicReplay(t *testing.T) {
	factory := func() (harness.Pipeline[int, int], error) {
		return &fakePipeline{corruptFrom: 4, failAt: -1}, nil
	}
	newHarness := func() *harness.Harness[int, int] {
		h, err := harness.New(smallTrace(t, 8), echoes(8), factory,
			harness.Trials(5), harness.Seed(99), harness.NoShrink())
		require.NoError(t, err)
		return h
	}

	res := newHarness().Run(context.Background())
	require.NotNil(t, res.Failure)

	var buf bytes.Buffer
	require.NoError(t, res.Export(&buf))
	rec, err := harness.ImportReplay(&buf)
	require.NoError(t, err)
	assert.Equal(t, res.Failure.Seed, rec.Seed)

	replayed := newHarness().Replay(context.Background(), rec.Seed)
	require.NotNil(t, replayed.Failure)
	assert.Equal(t, res.Failure.Step, replayed.Failure.Step)
	assert.Equal(t, res.Failure.Cause, replayed.Failure.Cause)
	assert.Equal(t, res.Failure.Trace.String(), replayed.Failure.Trace.String(),
		"replay with the exported seed must reproduce an identical trace")
}

func TestConcurrentTrialsIsolated(t *testing.T) {
	h, err := harness.New(smallTrace(t, 6), echoes(6), echoFactory,
		harness.Trials(40), harness.Seed(5), harness.NumConcurrent(4))
	require.NoError(t, err)

	res := h.Run(context.Background())
	ok, desc := res.Response()
	assert.True(t, ok, desc)
	assert.Equal(t, 40, res.Trials)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := harness.New(smallTrace(t, 4), echoes(4), echoFactory, harness.Trials(100), harness.Seed(1))
	require.NoError(t, err)

	res := h.Run(ctx)
	assert.False(t, res.Passed)
	assert.Error(t, res.Err)
}
