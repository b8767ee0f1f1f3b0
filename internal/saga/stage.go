package saga

import (
	"context"
	"reflect"
	"runtime"
	"strings"

	"github.com/roach88/sagaflow/internal/event"
	"github.com/roach88/sagaflow/internal/registry"
	"github.com/roach88/sagaflow/internal/schedule"
)

// Done is the output type of a terminal stage. Nothing consumes it.
type Done struct{}

// Kind classifies a stage.
type Kind string

const (
	KindProcess Kind = "process"
	KindHandle  Kind = "handle"
	KindOption  Kind = "option"
	KindSplit   Kind = "split"
	KindRoute   Kind = "route"
)

// Host is what Register needs from the application: a registry for
// handlers and a schedule per label for ordering.
type Host interface {
	Registry() *registry.Registry
	Schedule(label string) *schedule.Schedule
}

// Descriptor is the introspectable shape of one stage.
type Descriptor struct {
	Name    string       `json:"name"`
	Kind    Kind         `json:"kind"`
	Input   event.Type   `json:"input"`
	Outputs []event.Type `json:"outputs"`
}

// part is one registrable stage: its descriptor plus the closures that
// validate and bind it.
type part struct {
	Descriptor

	// validate runs extra, stage-specific checks before anything is bound.
	validate func() error

	// bind registers the stage's handler under name.
	bind func(h Host, name string)
}

// Stage transforms In events into Out events. A Stage is an immutable value;
// composing it never changes it, and registering it twice registers it
// twice.
type Stage[In, Out any] struct {
	parts []*part
}

// Pipeline is a stage with nothing left to connect: only Register remains.
type Pipeline[In any] = Stage[In, Done]

// Process lifts fn into a stage. Every input produces exactly one output.
func Process[In, Out any](fn func(context.Context, In) Out) Stage[In, Out] {
	return single[In, Out](&part{
		Descriptor: Descriptor{
			Name:    funcName(fn),
			Kind:    KindProcess,
			Input:   event.TypeOf[In](),
			Outputs: []event.Type{event.TypeOf[Out]()},
		},
		bind: func(h Host, name string) {
			world := h.Registry().World()
			registry.Register(h.Registry(), registry.Handler[In]{
				Name: name,
				Fn: func(ctx context.Context, in In) {
					event.Write(world, fn(ctx, in))
				},
			})
		},
	})
}

// Handle lifts fn into a terminal stage.
func Handle[In any](fn func(context.Context, In)) Pipeline[In] {
	return single[In, Done](&part{
		Descriptor: Descriptor{
			Name:    funcName(fn),
			Kind:    KindHandle,
			Input:   event.TypeOf[In](),
			Outputs: []event.Type{},
		},
		bind: func(h Host, name string) {
			registry.Register(h.Registry(), registry.Handler[In]{Name: name, Fn: fn})
		},
	})
}

// Map lifts a context-free fn into a stage.
func Map[In, Out any](fn func(In) Out) Stage[In, Out] {
	return rename(Process(func(_ context.Context, in In) Out { return fn(in) }), funcName(fn))
}

// Sink lifts a context-free fn into a terminal stage.
func Sink[In any](fn func(In)) Pipeline[In] {
	return rename(Handle(func(_ context.Context, in In) { fn(in) }), funcName(fn))
}

// Named returns s with its first stage renamed. Names appear in logs,
// traces and plans.
func Named[In, Out any](name string, s Stage[In, Out]) Stage[In, Out] {
	return rename(s, name)
}

func rename[In, Out any](s Stage[In, Out], name string) Stage[In, Out] {
	if len(s.parts) == 0 {
		return s
	}
	parts := clone(s.parts)
	head := *parts[0]
	head.Name = name
	parts[0] = &head
	return Stage[In, Out]{parts: parts}
}

// Describe lists the stages of s in registration order.
func Describe[In, Out any](s Stage[In, Out]) []Descriptor {
	out := make([]Descriptor, len(s.parts))
	for i, p := range s.parts {
		out[i] = p.Descriptor
	}
	return out
}

func single[In, Out any](p *part) Stage[In, Out] {
	return Stage[In, Out]{parts: []*part{p}}
}

func clone(parts []*part) []*part {
	out := make([]*part, len(parts))
	copy(out, parts)
	return out
}

func concat(groups ...[]*part) []*part {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]*part, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// funcName returns "pkg.Func" for fn, or "pkg.Outer.func1" for closures.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "<nil>"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "<unknown>"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
