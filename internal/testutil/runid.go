package testutil

import "sync"

// FixedRunID always generates the same run ID, so traces from repeated runs
// are byte-identical.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator that always returns id.
func NewFixedRunID(id string) FixedRunID {
	return FixedRunID{id: id}
}

// Generate returns the fixed ID.
func (g FixedRunID) Generate() string {
	return g.id
}

// SequenceRunID returns predetermined run IDs in order.
//
// Thread-safety: SequenceRunID is safe for concurrent use via internal mutex.
type SequenceRunID struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewSequenceRunID creates a generator that returns ids in order.
func NewSequenceRunID(ids ...string) *SequenceRunID {
	return &SequenceRunID{ids: ids}
}

// Generate returns the next ID.
//
// Panics if all IDs have been consumed, which means the test created more
// apps than it declared.
func (g *SequenceRunID) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("SequenceRunID: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
