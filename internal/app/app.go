// Package app is the host that owns the event world, the handler registry
// and one schedule per label, and advances them one tick at a time.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/sagaflow/internal/event"
	"github.com/roach88/sagaflow/internal/registry"
	"github.com/roach88/sagaflow/internal/schedule"
)

// DefaultLabels are the schedule labels every App starts with, in run order.
var DefaultLabels = []string{"PreUpdate", "Update", "PostUpdate"}

// App is the host application.
//
// Thread-safety: Send may be called from any goroutine. Update and Run must
// not be called concurrently with each other.
type App struct {
	world     *event.World
	registry  *registry.Registry
	clock     TickClock
	executor  schedule.Executor
	observers []registry.Observer
	tickObs   []TickObserver
	runID     string
	logger    *slog.Logger

	mu        sync.Mutex
	labels    []string
	schedules map[string]*schedule.Schedule
}

// Option configures an App.
type Option func(*App)

// WithLabels replaces the default schedule labels. Labels run in the order
// given; labels created later by Schedule run after them.
func WithLabels(labels ...string) Option {
	return func(a *App) {
		a.labels = a.labels[:0]
		seen := make(map[string]bool, len(labels))
		for _, l := range labels {
			if l != "" && !seen[l] {
				seen[l] = true
				a.labels = append(a.labels, l)
			}
		}
	}
}

// WithExecutor sets the executor used for every schedule.
func WithExecutor(x schedule.Executor) Option {
	return func(a *App) {
		a.executor = x
	}
}

// WithParallel runs each schedule level with up to limit goroutines.
// A limit of zero or less keeps the sequential executor.
func WithParallel(limit int) Option {
	return func(a *App) {
		if limit > 0 {
			a.executor = schedule.Parallel{Limit: limit}
		}
	}
}

// WithLogger sets the logger for app lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithClock sets the tick clock.
func WithClock(c TickClock) Option {
	return func(a *App) {
		a.clock = c
	}
}

// WithRunIDGenerator sets the generator for the run ID.
func WithRunIDGenerator(g IDGenerator) Option {
	return func(a *App) {
		a.runID = g.Generate()
	}
}

// WithObserver adds a delivery observer.
func WithObserver(o registry.Observer) Option {
	return func(a *App) {
		a.observers = append(a.observers, o)
	}
}

// WithTickObserver adds an observer notified after each tick.
func WithTickObserver(o TickObserver) Option {
	return func(a *App) {
		a.tickObs = append(a.tickObs, o)
	}
}

// New creates an App.
func New(opts ...Option) *App {
	a := &App{
		world:     event.NewWorld(),
		clock:     NewClock(),
		executor:  schedule.Sequential{},
		labels:    append([]string(nil), DefaultLabels...),
		schedules: make(map[string]*schedule.Schedule),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.runID == "" {
		a.runID = UUIDv7Generator{}.Generate()
	}

	var regOpts []registry.Option
	switch len(a.observers) {
	case 0:
	case 1:
		regOpts = append(regOpts, registry.WithObserver(a.observers[0]))
	default:
		regOpts = append(regOpts, registry.WithObserver(registry.Observers(a.observers)))
	}
	a.registry = registry.New(a.world, regOpts...)

	for _, l := range a.labels {
		a.schedules[l] = schedule.New(l)
	}
	return a
}

// World returns the event world.
func (a *App) World() *event.World {
	return a.world
}

// Registry returns the handler registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// RunID returns the identifier of this App instance.
func (a *App) RunID() string {
	return a.runID
}

// Tick returns the last completed tick number.
func (a *App) Tick() int64 {
	return a.clock.Current()
}

// Schedule returns the schedule for label, creating it at the end of the
// run order if it does not exist yet.
func (a *App) Schedule(label string) *schedule.Schedule {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.schedules[label]
	if !ok {
		s = schedule.New(label)
		a.schedules[label] = s
		a.labels = append(a.labels, label)
		a.logger.Debug("schedule created", "label", label)
	}
	return s
}

// Labels returns schedule labels in run order.
func (a *App) Labels() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.labels...)
}

// Plan returns the compiled plan for label.
func (a *App) Plan(label string) (*schedule.Plan, bool) {
	a.mu.Lock()
	s, ok := a.schedules[label]
	a.mu.Unlock()
	if !ok {
		return nil, false
	}
	return s.Plan(), true
}

// Send writes v into the world. Returns false if no handler has registered
// for T, in which case v is dropped.
func Send[T any](a *App, v T) bool {
	return event.Write(a.world, v)
}

// Update runs one tick: every schedule in label order, each schedule's
// units in plan order.
func (a *App) Update(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tick := a.clock.Next()
	ctx = event.WithWorld(ctx, a.world)
	report := TickReport{RunID: a.runID, Tick: tick}

	for _, label := range a.Labels() {
		plan, _ := a.Plan(label)
		if len(plan.Order) == 0 {
			continue
		}

		lctx := WithTick(ctx, TickInfo{RunID: a.runID, Tick: tick, Label: label})
		st, err := a.executor.Execute(lctx, plan)
		if err != nil {
			return fmt.Errorf("tick %d, schedule %s: %w", tick, label, err)
		}
		report.Labels = append(report.Labels, LabelReport{Label: label, Units: st.Units, Events: st.Events})
	}

	a.logger.Debug("tick complete", "run_id", a.runID, "tick", tick, "events", report.Events())

	for _, o := range a.tickObs {
		if err := o.TickCompleted(ctx, report); err != nil {
			return fmt.Errorf("tick %d observer: %w", tick, err)
		}
	}
	return nil
}

// Run calls Update every interval until ctx is cancelled or maxTicks ticks
// have run. maxTicks of zero or less means no limit. An interval of zero
// runs ticks back to back.
//
// Returns nil when maxTicks is reached, and ctx.Err() on cancellation.
func (a *App) Run(ctx context.Context, interval time.Duration, maxTicks int) error {
	a.logger.Info("app starting", "run_id", a.runID, "labels", a.Labels(), "interval", interval, "max_ticks", maxTicks)

	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for n := 0; maxTicks <= 0 || n < maxTicks; n++ {
		if ticker != nil && n > 0 {
			select {
			case <-ctx.Done():
				a.logger.Info("app stopping", "run_id", a.runID, "reason", ctx.Err())
				return ctx.Err()
			case <-ticker.C:
			}
		}

		if err := a.Update(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				a.logger.Info("app stopping", "run_id", a.runID, "reason", err)
			}
			return err
		}
	}

	a.logger.Info("app finished", "run_id", a.runID, "ticks", a.clock.Current())
	return nil
}
