package saga

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/roach88/sagaflow/internal/event"
	"github.com/roach88/sagaflow/internal/registry"
)

// Case is one arm of a Route: the variant type it accepts and the pipeline
// that continues from it.
type Case[E any] struct {
	variant event.Type
	forward func(w *event.World, e E)
	parts   []*part
}

// When builds the arm for variant V of the sum type E. V must be assignable
// to E; Register rejects it otherwise.
func When[E, V any](cont Pipeline[V]) Case[E] {
	return Case[E]{
		variant: event.TypeOf[V](),
		forward: func(w *event.World, e E) {
			if v, ok := any(e).(V); ok {
				event.Write(w, v)
			}
		},
		parts: cont.parts,
	}
}

// Route lifts fn into a routing pipeline. fn returns a value of the sum type
// E, usually an interface implemented by each variant, and the value is
// forwarded to the case whose variant matches its dynamic type.
//
// Cases are checked at Register: each variant must be a valid event type
// assignable to E, and no variant may appear twice. A value whose dynamic
// type has no case is dropped.
func Route[In, E any](fn func(context.Context, In) E, cases ...Case[E]) Pipeline[In] {
	sum := reflect.TypeFor[E]()
	outputs := make([]event.Type, len(cases))
	for i, c := range cases {
		outputs[i] = c.variant
	}

	head := &part{
		Descriptor: Descriptor{
			Name:    funcName(fn),
			Kind:    KindRoute,
			Input:   event.TypeOf[In](),
			Outputs: outputs,
		},
	}

	head.validate = func() error {
		seen := make(map[event.Type]bool, len(cases))
		for _, c := range cases {
			if seen[c.variant] {
				return &CompositionError{
					Code:      ErrCodeDuplicateRoute,
					Message:   fmt.Sprintf("variant %s is routed more than once", c.variant),
					Stage:     head.Name,
					EventType: c.variant.String(),
				}
			}
			seen[c.variant] = true

			if !c.variant.Reflect().AssignableTo(sum) {
				return &CompositionError{
					Code:      ErrCodeRouteNotVariant,
					Message:   fmt.Sprintf("%s is not assignable to %s", c.variant, sum),
					Stage:     head.Name,
					EventType: c.variant.String(),
				}
			}
		}
		return nil
	}

	head.bind = func(h Host, name string) {
		world := h.Registry().World()
		table := make(map[reflect.Type]func(*event.World, E), len(cases))
		for _, c := range cases {
			table[c.variant.Reflect()] = c.forward
		}

		registry.Register(h.Registry(), registry.Handler[In]{
			Name: name,
			Fn: func(ctx context.Context, in In) {
				e := fn(ctx, in)
				forward, ok := table[reflect.TypeOf(any(e))]
				if !ok {
					slog.Debug("route has no case for value", "stage", name, "value_type", fmt.Sprintf("%T", e))
					return
				}
				forward(world, e)
			},
		})
	}

	groups := make([][]*part, 0, len(cases)+1)
	groups = append(groups, []*part{head})
	for _, c := range cases {
		groups = append(groups, c.parts)
	}
	return Pipeline[In]{parts: concat(groups...)}
}
