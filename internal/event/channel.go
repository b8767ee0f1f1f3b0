package event

import "sync"

// Channel is the per-type event buffer.
//
// Writes append in call order and Drain hands the whole batch to the caller,
// so values written while a drain is being processed land in the next batch.
// Safe for concurrent use.
type Channel[T any] struct {
	mu      sync.Mutex
	values  []T
	written uint64
}

func newChannel[T any]() *Channel[T] {
	return &Channel[T]{
		values: make([]T, 0, 16),
	}
}

// Write appends v.
func (c *Channel[T]) Write(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = append(c.values, v)
	c.written++
}

// Drain removes and returns every pending value in write order.
// Returns nil when nothing is pending.
func (c *Channel[T]) Drain() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.values) == 0 {
		return nil
	}

	out := c.values
	// Hand the backing array to the caller and start fresh; the caller may
	// still be reading it while new writes arrive.
	c.values = make([]T, 0, cap(out))
	return out
}

// Len returns the number of pending values.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// Written returns the total number of values ever written.
func (c *Channel[T]) Written() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

func (c *Channel[T]) pending() int {
	return c.Len()
}
