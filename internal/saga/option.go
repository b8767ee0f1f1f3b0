package saga

import (
	"context"

	"github.com/roach88/sagaflow/internal/event"
	"github.com/roach88/sagaflow/internal/registry"
)

// Option lifts a filtering fn into a stage. An output is written only when
// fn returns true.
func Option[In, Out any](fn func(context.Context, In) (Out, bool)) Stage[In, Out] {
	return single[In, Out](&part{
		Descriptor: Descriptor{
			Name:    funcName(fn),
			Kind:    KindOption,
			Input:   event.TypeOf[In](),
			Outputs: []event.Type{event.TypeOf[Out]()},
		},
		bind: func(h Host, name string) {
			world := h.Registry().World()
			registry.Register(h.Registry(), registry.Handler[In]{
				Name: name,
				Fn: func(ctx context.Context, in In) {
					if out, ok := fn(ctx, in); ok {
						event.Write(world, out)
					}
				},
			})
		},
	})
}
