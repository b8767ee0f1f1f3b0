package app

import "context"

// TickInfo identifies the tick and schedule a handler is running under.
type TickInfo struct {
	RunID string
	Tick  int64
	Label string
}

type tickKey struct{}

// WithTick returns a context carrying info.
func WithTick(ctx context.Context, info TickInfo) context.Context {
	return context.WithValue(ctx, tickKey{}, info)
}

// TickFrom extracts the TickInfo stored by WithTick.
func TickFrom(ctx context.Context) (TickInfo, bool) {
	info, ok := ctx.Value(tickKey{}).(TickInfo)
	return info, ok
}

// TickReport summarises one completed Update.
type TickReport struct {
	RunID  string
	Tick   int64
	Labels []LabelReport
}

// LabelReport summarises one schedule within a tick.
type LabelReport struct {
	Label  string
	Units  int
	Events int
}

// Events sums drained events across labels.
func (r TickReport) Events() int {
	n := 0
	for _, l := range r.Labels {
		n += l.Events
	}
	return n
}

// TickObserver is notified after every completed Update.
type TickObserver interface {
	TickCompleted(ctx context.Context, r TickReport) error
}
