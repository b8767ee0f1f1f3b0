// Package registry maps event types to the handlers that consume them and
// dispatches drained events to those handlers.
//
// The registry knows nothing about schedules or sagas. It is the runtime
// table a schedule unit calls into once per tick: drain the channel for a
// type, then hand every value to every handler in registration order.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/sagaflow/internal/event"
)

// Handler consumes values of T. Name is used in logs and traces.
type Handler[T any] struct {
	Name string
	Fn   func(ctx context.Context, v T)
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver sets the observer notified of every delivery.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// entry is the type-erased handler list for one event type.
type entry interface {
	dispatch(ctx context.Context, r *Registry) int
	handlerNames() []string
}

// Registry is the handler table for a World.
//
// Registration is expected during setup; Dispatch may run concurrently for
// different types.
type Registry struct {
	mu       sync.RWMutex
	world    *event.World
	entries  map[event.Type]entry
	order    []event.Type
	observer Observer
}

// New creates a registry bound to w.
func New(w *event.World, opts ...Option) *Registry {
	r := &Registry{
		world:    w,
		entries:  make(map[event.Type]entry),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// World returns the world the registry drains from.
func (r *Registry) World() *event.World {
	return r.world
}

// Register appends h to T's handler list and makes sure T has a channel.
func Register[T any](r *Registry, h Handler[T]) {
	t := event.TypeOf[T]()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[t]
	if !ok {
		e = &typedEntry[T]{typ: t}
		r.entries[t] = e
		r.order = append(r.order, t)
		event.Ensure[T](r.world)
	}

	te := e.(*typedEntry[T])
	te.handlers = append(te.handlers, h)

	slog.Debug("handler registered", "type", t.String(), "handler", h.Name, "position", len(te.handlers))
}

// Dispatch drains t's channel and delivers each value to every handler.
// Returns the number of values drained. Unknown types drain nothing.
func (r *Registry) Dispatch(ctx context.Context, t event.Type) int {
	r.mu.RLock()
	e, ok := r.entries[t]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	return e.dispatch(ctx, r)
}

// Has reports whether any handler is registered for t.
func (r *Registry) Has(t event.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[t]
	return ok
}

// Types returns every registered type in first-registration order.
func (r *Registry) Types() []event.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]event.Type, len(r.order))
	copy(out, r.order)
	return out
}

// Handlers returns the handler names for t in registration order.
func (r *Registry) Handlers(t event.Type) []string {
	r.mu.RLock()
	e, ok := r.entries[t]
	r.mu.RUnlock()
	if !ok {
		return []string{}
	}
	return e.handlerNames()
}

type typedEntry[T any] struct {
	typ      event.Type
	handlers []Handler[T]
}

func (e *typedEntry[T]) dispatch(ctx context.Context, r *Registry) int {
	values := event.Drain[T](r.world)
	if len(values) == 0 {
		return 0
	}

	r.mu.RLock()
	handlers := e.handlers
	r.mu.RUnlock()
	obs := r.observer

	for _, v := range values {
		for _, h := range handlers {
			cp := event.Clone(v)
			obs.Delivered(ctx, Delivery{
				Type:    e.typ,
				Handler: h.Name,
				Value:   cp,
			})
			h.Fn(ctx, cp)
		}
	}
	return len(values)
}

func (e *typedEntry[T]) handlerNames() []string {
	names := make([]string, len(e.handlers))
	for i, h := range e.handlers {
		names[i] = h.Name
	}
	return names
}
