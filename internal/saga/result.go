package saga

import (
	"context"

	"github.com/roach88/sagaflow/internal/event"
	"github.com/roach88/sagaflow/internal/registry"
)

// Result holds either a success value of type O or a failure value of
// type E.
type Result[O, E any] struct {
	ok     O
	err    E
	failed bool
}

// Success wraps v as a successful result.
func Success[O, E any](v O) Result[O, E] {
	return Result[O, E]{ok: v}
}

// Failure wraps e as a failed result.
func Failure[O, E any](e E) Result[O, E] {
	return Result[O, E]{err: e, failed: true}
}

// Ok returns the success value and whether the result succeeded.
func (r Result[O, E]) Ok() (O, bool) {
	return r.ok, !r.failed
}

// Err returns the failure value and whether the result failed.
func (r Result[O, E]) Err() (E, bool) {
	return r.err, r.failed
}

// Failed reports whether r holds a failure.
func (r Result[O, E]) Failed() bool {
	return r.failed
}

// Split lifts fn into a branching pipeline. Success values continue into
// onOk and failure values into onErr; exactly one branch sees each input.
func Split[In, O, E any](fn func(context.Context, In) Result[O, E], onOk Pipeline[O], onErr Pipeline[E]) Pipeline[In] {
	head := &part{
		Descriptor: Descriptor{
			Name:    funcName(fn),
			Kind:    KindSplit,
			Input:   event.TypeOf[In](),
			Outputs: []event.Type{event.TypeOf[O](), event.TypeOf[E]()},
		},
		bind: func(h Host, name string) {
			world := h.Registry().World()
			registry.Register(h.Registry(), registry.Handler[In]{
				Name: name,
				Fn: func(ctx context.Context, in In) {
					r := fn(ctx, in)
					if r.failed {
						event.Write(world, r.err)
						return
					}
					event.Write(world, r.ok)
				},
			})
		},
	}
	return Pipeline[In]{parts: concat([]*part{head}, onOk.parts, onErr.parts)}
}
