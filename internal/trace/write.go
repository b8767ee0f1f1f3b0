package trace

import (
	"context"
	"encoding/json"
	"fmt"
)

// WriteRun records a run. Writing the same run twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, r Run) error {
	labels, err := json.Marshal(r.Labels)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, labels, created_seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(created_seq), 0) + 1 FROM runs))
		ON CONFLICT(id) DO NOTHING
	`, r.ID, string(labels))
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteTick records one tick and its deliveries atomically.
func (s *Store) WriteTick(ctx context.Context, t Tick, deliveries []Delivery) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write tick: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ticks (run_id, tick, units, events)
		VALUES (?, ?, ?, ?)
	`, t.RunID, t.Tick, t.Units, t.Events)
	if err != nil {
		return fmt.Errorf("write tick %d: %w", t.Tick, err)
	}

	if len(deliveries) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO deliveries (run_id, seq, tick, label, event_type, handler, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("write tick %d: prepare: %w", t.Tick, err)
		}
		defer stmt.Close()

		for _, d := range deliveries {
			if _, err := stmt.ExecContext(ctx, d.RunID, d.Seq, d.Tick, d.Label, d.EventType, d.Handler, d.Payload); err != nil {
				return fmt.Errorf("write delivery %d: %w", d.Seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write tick %d: commit: %w", t.Tick, err)
	}
	return nil
}
