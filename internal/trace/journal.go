package trace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/registry"
)

// Journal buffers deliveries and writes them to a Store at tick end.
//
// Thread-safety: Delivered may be called concurrently by parallel schedule
// units.
type Journal struct {
	store *Store

	mu      sync.Mutex
	seq     int64
	pending []Delivery
	started map[string]bool
}

// NewJournal creates a journal writing to s.
func NewJournal(s *Store) *Journal {
	return &Journal{
		store:   s,
		started: make(map[string]bool),
	}
}

// Begin records the run. Call it once the app exists, before the first tick.
func (j *Journal) Begin(ctx context.Context, runID string, labels []string) error {
	if err := j.store.WriteRun(ctx, Run{ID: runID, Labels: labels}); err != nil {
		return err
	}
	j.mu.Lock()
	j.started[runID] = true
	j.mu.Unlock()
	return nil
}

// Delivered implements registry.Observer.
func (j *Journal) Delivered(ctx context.Context, d registry.Delivery) {
	info, _ := app.TickFrom(ctx)

	payload, err := MarshalCanonical(d.Value)
	if err != nil {
		slog.Warn("trace payload not encodable", "type", d.Type.String(), "error", err)
		payload = []byte(fmt.Sprintf("%q", fmt.Sprintf("%+v", d.Value)))
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	j.pending = append(j.pending, Delivery{
		RunID:     info.RunID,
		Seq:       j.seq,
		Tick:      info.Tick,
		Label:     info.Label,
		EventType: d.Type.String(),
		Handler:   d.Handler,
		Payload:   string(payload),
	})
}

// TickCompleted implements app.TickObserver.
func (j *Journal) TickCompleted(ctx context.Context, r app.TickReport) error {
	j.mu.Lock()
	batch := j.pending
	j.pending = nil
	started := j.started[r.RunID]
	j.mu.Unlock()

	if !started {
		if err := j.Begin(ctx, r.RunID, labelsOf(r)); err != nil {
			return err
		}
	}

	units := 0
	for _, l := range r.Labels {
		units += l.Units
	}

	return j.store.WriteTick(ctx, Tick{
		RunID:  r.RunID,
		Tick:   r.Tick,
		Units:  units,
		Events: r.Events(),
	}, batch)
}

func labelsOf(r app.TickReport) []string {
	out := make([]string, len(r.Labels))
	for i, l := range r.Labels {
		out[i] = l.Label
	}
	return out
}
