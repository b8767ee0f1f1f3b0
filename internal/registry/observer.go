package registry

import (
	"context"

	"github.com/roach88/sagaflow/internal/event"
)

// Delivery describes one value handed to one handler.
type Delivery struct {
	Type    event.Type
	Handler string
	Value   any
}

// Observer is notified before each handler invocation.
//
// Implementations must be safe for concurrent use when the schedule runs
// units in parallel.
type Observer interface {
	Delivered(ctx context.Context, d Delivery)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, d Delivery)

// Delivered calls f.
func (f ObserverFunc) Delivered(ctx context.Context, d Delivery) {
	f(ctx, d)
}

type nopObserver struct{}

func (nopObserver) Delivered(context.Context, Delivery) {}

// Observers fans a delivery out to several observers in order.
type Observers []Observer

// Delivered calls every observer.
func (os Observers) Delivered(ctx context.Context, d Delivery) {
	for _, o := range os {
		o.Delivered(ctx, d)
	}
}
