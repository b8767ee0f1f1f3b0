package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sagaflow/internal/event"
)

func recordingUnit(t event.Type, mu *sync.Mutex, log *[]string, n int) *Unit {
	return &Unit{Type: t, Name: t.String(), Run: func(context.Context) int {
		mu.Lock()
		defer mu.Unlock()
		*log = append(*log, t.String())
		return n
	}}
}

func TestSequential_RunsPlanOrder(t *testing.T) {
	var mu sync.Mutex
	var log []string
	units := []*Unit{
		recordingUnit(tC, &mu, &log, 1),
		recordingUnit(tA, &mu, &log, 2),
		recordingUnit(tB, &mu, &log, 3),
	}
	plan := Compile("Update", units, []Edge{{Before: tA, After: tB}, {Before: tB, After: tC}})

	st, err := Sequential{}.Execute(context.Background(), plan)

	require.NoError(t, err)
	assert.Equal(t, []string{"schedule.evA", "schedule.evB", "schedule.evC"}, log)
	assert.Equal(t, Stats{Units: 3, Events: 6}, st)
}

func TestSequential_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	cancelling := &Unit{Type: tA, Run: func(context.Context) int { ran++; cancel(); return 0 }}
	after := &Unit{Type: tB, Run: func(context.Context) int { ran++; return 0 }}

	_, err := Sequential{}.Execute(ctx, Compile("Update", []*Unit{cancelling, after}, nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ran)
}

func TestParallel_RespectsLevels(t *testing.T) {
	var mu sync.Mutex
	var log []string
	units := []*Unit{
		recordingUnit(tD, &mu, &log, 1),
		recordingUnit(tA, &mu, &log, 1),
		recordingUnit(tB, &mu, &log, 1),
		recordingUnit(tC, &mu, &log, 1),
	}
	edges := []Edge{{Before: tA, After: tD}, {Before: tB, After: tD}, {Before: tC, After: tD}}
	plan := Compile("Update", units, edges)

	st, err := Parallel{Limit: 2}.Execute(context.Background(), plan)

	require.NoError(t, err)
	require.Len(t, log, 4)
	assert.Equal(t, "schedule.evD", log[3])
	assert.ElementsMatch(t, []string{"schedule.evA", "schedule.evB", "schedule.evC"}, log[:3])
	assert.Equal(t, Stats{Units: 4, Events: 4}, st)
}

func TestParallel_RunsLevelConcurrently(t *testing.T) {
	var inflight, peak atomic.Int64
	mk := func(t event.Type) *Unit {
		return &Unit{Type: t, Run: func(context.Context) int {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inflight.Add(-1)
			return 0
		}}
	}
	plan := Compile("Update", []*Unit{mk(tA), mk(tB), mk(tC)}, nil)

	_, err := Parallel{}.Execute(context.Background(), plan)

	require.NoError(t, err)
	assert.Greater(t, peak.Load(), int64(1))
}
