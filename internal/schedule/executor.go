package schedule

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Stats summarises one plan execution.
type Stats struct {
	Units  int `json:"units"`
	Events int `json:"events"`
}

// Executor runs a compiled plan.
type Executor interface {
	Execute(ctx context.Context, p *Plan) (Stats, error)
}

// Sequential runs units one at a time in plan order.
type Sequential struct{}

// Execute runs every unit in p.Order. Cancellation is checked between units.
func (Sequential) Execute(ctx context.Context, p *Plan) (Stats, error) {
	var st Stats
	for _, u := range p.Order {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Events += u.Run(ctx)
		st.Units++
	}
	return st, nil
}

// Parallel runs each level's units concurrently, one level at a time.
// Limit caps the goroutines per level; zero or less means no cap.
type Parallel struct {
	Limit int
}

// Execute runs p.Levels in order. Units within a level share no ordering
// edge, so they may drain concurrently.
func (x Parallel) Execute(ctx context.Context, p *Plan) (Stats, error) {
	var (
		units  atomic.Int64
		events atomic.Int64
	)

	for _, level := range p.Levels {
		if err := ctx.Err(); err != nil {
			return Stats{Units: int(units.Load()), Events: int(events.Load())}, err
		}

		if len(level) == 1 {
			events.Add(int64(level[0].Run(ctx)))
			units.Add(1)
			continue
		}

		var g errgroup.Group
		if x.Limit > 0 {
			g.SetLimit(x.Limit)
		}
		for _, u := range level {
			g.Go(func() error {
				events.Add(int64(u.Run(ctx)))
				units.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Stats{Units: int(units.Load()), Events: int(events.Load())}, err
		}
	}

	return Stats{Units: int(units.Load()), Events: int(events.Load())}, nil
}
