package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/demo"
	"github.com/roach88/sagaflow/internal/testutil"
	"github.com/roach88/sagaflow/internal/trace"
)

// Harness is one scenario execution: the app, the demo installed in it
// and the journal recording deliveries.
type Harness struct {
	app     *app.App
	demo    demo.Demo
	store   *trace.Store
	journal *trace.Journal
	runID   string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory trace store for isolation.
//
// Execution flow:
// 1. Open an in-memory store and a journal over it
// 2. Build the app with a fixed run ID and deterministic clock
// 3. Install the demo under the scenario label
// 4. Execute steps
// 5. Read the trace back and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := trace.Open(trace.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(scenario, st)
	if err != nil {
		return nil, err
	}

	if err := h.journal.Begin(ctx, h.runID, h.app.Labels()); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	if err := h.executeSteps(ctx, scenario.Steps); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	result, err := h.collect(ctx)
	if err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(s *Scenario, st *trace.Store) (*Harness, error) {
	d, err := demo.New(s.Demo)
	if err != nil {
		return nil, err
	}

	journal := trace.NewJournal(st)
	opts := []app.Option{
		app.WithRunIDGenerator(testutil.NewFixedRunID(s.runID())),
		app.WithClock(testutil.NewDeterministicClock()),
		app.WithObserver(journal),
		app.WithTickObserver(journal),
		app.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	}
	if len(s.Labels) > 0 {
		opts = append(opts, app.WithLabels(s.Labels...))
	}
	if s.Parallel > 0 {
		opts = append(opts, app.WithParallel(s.Parallel))
	}

	a := app.New(opts...)
	if err := d.Install(a, s.label()); err != nil {
		return nil, fmt.Errorf("failed to install demo %q: %w", s.Demo, err)
	}

	return &Harness{
		app:     a,
		demo:    d,
		store:   st,
		journal: journal,
		runID:   a.RunID(),
	}, nil
}

// executeSteps runs steps in order. A send failure aborts the scenario,
// since later assertions would only report its consequences.
func (h *Harness) executeSteps(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if step.Send != "" {
			if err := h.demo.Send(h.app, step.Send, step.Args); err != nil {
				return fmt.Errorf("step %d: send %s: %w", i, step.Send, err)
			}
			continue
		}
		for n := 0; n < step.Ticks; n++ {
			if err := h.app.Update(ctx); err != nil {
				return fmt.Errorf("step %d: tick %d: %w", i, n+1, err)
			}
		}
	}
	return nil
}

// collect reads the recorded run back from the store.
func (h *Harness) collect(ctx context.Context) (*Result, error) {
	result := NewResult(h.runID)

	deliveries, err := h.store.ReadDeliveries(ctx, h.runID, trace.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	for _, d := range deliveries {
		result.addDelivery(d)
	}

	ticks, err := h.store.ReadTicks(ctx, h.runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ticks: %w", err)
	}
	result.Ticks = ticks

	result.State = h.demo.State()
	result.Dropped = h.app.World().Dropped()
	return result, nil
}
