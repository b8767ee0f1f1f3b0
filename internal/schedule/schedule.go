// Package schedule orders the dispatch units of one schedule label and runs
// them once per tick.
//
// A unit drains one event type. Stages add ordering edges from the type they
// consume to each type they may produce, so a consumer always runs after
// every producer that feeds it within the same tick. Edges that would close a
// cycle are dropped at compile time and reported as CycleWarnings; values
// flowing along a dropped edge are picked up on the next tick.
package schedule

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/sagaflow/internal/event"
)

// Unit is one dispatch step: drain Type and run its handlers.
// Run returns the number of values drained.
type Unit struct {
	Type event.Type
	Name string
	Run  func(ctx context.Context) int
}

// Edge orders Before ahead of After.
type Edge struct {
	Before event.Type `json:"before"`
	After  event.Type `json:"after"`
}

// Schedule collects units and edges for one label and caches the compiled
// Plan until the next change.
type Schedule struct {
	mu      sync.Mutex
	label   string
	units   []*Unit
	index   map[event.Type]int
	edges   []Edge
	edgeSet map[Edge]bool
	plan    *Plan
}

// New creates an empty schedule.
func New(label string) *Schedule {
	return &Schedule{
		label:   label,
		index:   make(map[event.Type]int),
		edgeSet: make(map[Edge]bool),
	}
}

// Label returns the schedule's label.
func (s *Schedule) Label() string {
	return s.label
}

// AddUnit adds u unless a unit for u.Type already exists.
// Returns true if the unit was added.
func (s *Schedule) AddUnit(u Unit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[u.Type]; ok {
		return false
	}
	s.index[u.Type] = len(s.units)
	s.units = append(s.units, &u)
	s.plan = nil

	slog.Debug("schedule unit added", "label", s.label, "type", u.Type.String())
	return true
}

// AddEdge records that before must run ahead of after. Duplicate edges are
// ignored. Either endpoint may lack a unit; such edges are kept and take
// effect once both units exist.
func (s *Schedule) AddEdge(before, after event.Type) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Edge{Before: before, After: after}
	if s.edgeSet[e] {
		return false
	}
	s.edgeSet[e] = true
	s.edges = append(s.edges, e)
	s.plan = nil
	return true
}

// HasUnit reports whether t has a unit in this schedule.
func (s *Schedule) HasUnit(t event.Type) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[t]
	return ok
}

// Len returns the number of units.
func (s *Schedule) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

// Plan returns the compiled plan, compiling if anything changed since the
// last call. The returned plan is immutable.
func (s *Schedule) Plan() *Plan {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.plan == nil {
		s.plan = Compile(s.label, s.units, s.edges)
		for _, w := range s.plan.Warnings {
			slog.Warn("schedule cycle", "label", s.label, "path", w.Path, "message", w.Message)
		}
	}
	return s.plan
}
