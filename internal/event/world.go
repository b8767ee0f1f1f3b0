package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// pendingCounter is the type-erased view of a Channel.
type pendingCounter interface {
	pending() int
}

// World owns one Channel per registered event type.
//
// Channels are created by Ensure, normally when the first handler for a type
// registers. Writing a type that has no channel is a silent drop: nobody can
// ever read it.
type World struct {
	mu       sync.RWMutex
	channels map[Type]pendingCounter
	order    []Type
	dropped  atomic.Uint64
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		channels: make(map[Type]pendingCounter),
	}
}

// Ensure returns the channel for T, creating it if needed.
func Ensure[T any](w *World) *Channel[T] {
	t := TypeOf[T]()

	w.mu.RLock()
	ch, ok := w.channels[t]
	w.mu.RUnlock()
	if ok {
		return ch.(*Channel[T])
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if ch, ok := w.channels[t]; ok {
		return ch.(*Channel[T])
	}
	c := newChannel[T]()
	w.channels[t] = c
	w.order = append(w.order, t)
	return c
}

// Lookup returns the channel for T if one exists.
func Lookup[T any](w *World) (*Channel[T], bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ch, ok := w.channels[TypeOf[T]()]
	if !ok {
		return nil, false
	}
	return ch.(*Channel[T]), true
}

// Write appends v to T's channel. Returns false, and counts a drop, when no
// handler has ever registered for T.
func Write[T any](w *World, v T) bool {
	ch, ok := Lookup[T](w)
	if !ok {
		w.dropped.Add(1)
		slog.Debug("event dropped, no channel", "type", TypeOf[T]().String())
		return false
	}
	ch.Write(v)
	return true
}

// Drain removes and returns every pending value of T.
func Drain[T any](w *World) []T {
	ch, ok := Lookup[T](w)
	if !ok {
		return nil
	}
	return ch.Drain()
}

// Has reports whether a channel exists for t.
func (w *World) Has(t Type) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.channels[t]
	return ok
}

// Pending returns the number of values waiting in t's channel.
func (w *World) Pending(t Type) int {
	w.mu.RLock()
	ch, ok := w.channels[t]
	w.mu.RUnlock()
	if !ok {
		return 0
	}
	return ch.pending()
}

// PendingTotal sums Pending over every channel.
func (w *World) PendingTotal() int {
	w.mu.RLock()
	chans := make([]pendingCounter, 0, len(w.channels))
	for _, t := range w.order {
		chans = append(chans, w.channels[t])
	}
	w.mu.RUnlock()

	total := 0
	for _, ch := range chans {
		total += ch.pending()
	}
	return total
}

// Types returns every type with a channel, in creation order.
func (w *World) Types() []Type {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Type, len(w.order))
	copy(out, w.order)
	return out
}

// Dropped returns how many writes found no channel.
func (w *World) Dropped() uint64 {
	return w.dropped.Load()
}
