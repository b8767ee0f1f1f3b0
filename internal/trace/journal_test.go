package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/event"
	"github.com/roach88/sagaflow/internal/registry"
	"github.com/roach88/sagaflow/internal/schedule"
	"github.com/roach88/sagaflow/internal/testutil"
)

type hit struct {
	Target string `json:"target"`
	Amount int    `json:"amount"`
}

func TestJournal_RecordsDeliveriesPerTick(t *testing.T) {
	s := createTestStore(t)
	j := NewJournal(s)
	ctx := context.Background()

	a := app.New(
		app.WithRunIDGenerator(testutil.NewFixedRunID("run-1")),
		app.WithObserver(j),
		app.WithTickObserver(j),
	)
	registry.Register(a.Registry(), registry.Handler[hit]{Name: "apply", Fn: func(context.Context, hit) {}})
	registry.Register(a.Registry(), registry.Handler[hit]{Name: "log", Fn: func(context.Context, hit) {}})
	ht := event.TypeOf[hit]()
	a.Schedule("Update").AddUnit(schedule.Unit{
		Type: ht,
		Run:  func(ctx context.Context) int { return a.Registry().Dispatch(ctx, ht) },
	})

	require.NoError(t, j.Begin(ctx, a.RunID(), a.Labels()))

	app.Send(a, hit{Target: "orc", Amount: 3})
	require.NoError(t, a.Update(ctx))
	require.NoError(t, a.Update(ctx))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, app.DefaultLabels, run.Labels)

	ticks, err := s.ReadTicks(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, 1, ticks[0].Events)
	assert.Equal(t, 0, ticks[1].Events)

	got, err := s.ReadDeliveries(ctx, "run-1", Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Delivery{
		RunID:     "run-1",
		Seq:       1,
		Tick:      1,
		Label:     "Update",
		EventType: "trace.hit",
		Handler:   "apply",
		Payload:   `{"amount":3,"target":"orc"}`,
	}, got[0])
	assert.Equal(t, "log", got[1].Handler)
}

func TestJournal_BeginsRunOnFirstTick(t *testing.T) {
	s := createTestStore(t)
	j := NewJournal(s)
	ctx := context.Background()

	a := app.New(app.WithRunIDGenerator(testutil.NewFixedRunID("run-2")), app.WithTickObserver(j))
	require.NoError(t, a.Update(ctx))

	runs, err := s.ReadRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].ID)
}
