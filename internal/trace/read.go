package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run ID has no journal entry.
var ErrRunNotFound = errors.New("run not found")

// ReadRuns returns every run in the order it was first written.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, labels FROM runs ORDER BY created_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the run with id, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, labels FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// LatestRun returns the most recently written run, or ErrRunNotFound.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, labels FROM runs ORDER BY created_seq DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: journal is empty", ErrRunNotFound)
	}
	return r, err
}

// ReadTicks returns the tick summaries of a run ordered by tick.
func (s *Store) ReadTicks(ctx context.Context, runID string) ([]Tick, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, tick, units, events
		FROM ticks
		WHERE run_id = ?
		ORDER BY tick ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	ticks := []Tick{}
	for rows.Next() {
		var t Tick
		if err := rows.Scan(&t.RunID, &t.Tick, &t.Units, &t.Events); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return ticks, nil
}

// Filter narrows ReadDeliveries. Zero fields match everything.
type Filter struct {
	EventType string
	Tick      int64
}

// ReadDeliveries returns a run's deliveries ordered by sequence number.
func (s *Store) ReadDeliveries(ctx context.Context, runID string, f Filter) ([]Delivery, error) {
	query := `
		SELECT run_id, seq, tick, label, event_type, handler, payload
		FROM deliveries
		WHERE run_id = ?`
	args := []any{runID}
	if f.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, f.EventType)
	}
	if f.Tick > 0 {
		query += ` AND tick = ?`
		args = append(args, f.Tick)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	out := []Delivery{}
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.RunID, &d.Seq, &d.Tick, &d.Label, &d.EventType, &d.Handler, &d.Payload); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r      Run
		labels string
	)
	if err := row.Scan(&r.ID, &labels); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(labels), &r.Labels); err != nil {
		return Run{}, fmt.Errorf("decode run labels: %w", err)
	}
	return r, nil
}
