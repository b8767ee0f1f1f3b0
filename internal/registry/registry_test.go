package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sagaflow/internal/event"
)

type ping struct{ N int }

type pong struct{ N int }

type tagged struct {
	Tags []string
}

func (t tagged) Clone() tagged {
	return tagged{Tags: append([]string(nil), t.Tags...)}
}

func TestRegister_CreatesChannel(t *testing.T) {
	w := event.NewWorld()
	r := New(w)

	assert.False(t, w.Has(event.TypeOf[ping]()))

	Register(r, Handler[ping]{Name: "a", Fn: func(context.Context, ping) {}})

	assert.True(t, w.Has(event.TypeOf[ping]()))
	assert.True(t, r.Has(event.TypeOf[ping]()))
	assert.Equal(t, []event.Type{event.TypeOf[ping]()}, r.Types())
}

func TestDispatch_HandlersInRegistrationOrder(t *testing.T) {
	w := event.NewWorld()
	r := New(w)

	var got []string
	for _, name := range []string{"first", "second", "third"} {
		Register(r, Handler[ping]{Name: name, Fn: func(_ context.Context, p ping) {
			got = append(got, name)
		}})
	}

	event.Write(w, ping{N: 1})
	n := r.Dispatch(context.Background(), event.TypeOf[ping]())

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"first", "second", "third"}, got)
	assert.Equal(t, []string{"first", "second", "third"}, r.Handlers(event.TypeOf[ping]()))
}

func TestDispatch_EveryValueToEveryHandler(t *testing.T) {
	w := event.NewWorld()
	r := New(w)

	var a, b []int
	Register(r, Handler[ping]{Name: "a", Fn: func(_ context.Context, p ping) { a = append(a, p.N) }})
	Register(r, Handler[ping]{Name: "b", Fn: func(_ context.Context, p ping) { b = append(b, p.N) }})

	event.Write(w, ping{N: 1})
	event.Write(w, ping{N: 2})
	event.Write(w, ping{N: 2})

	r.Dispatch(context.Background(), event.TypeOf[ping]())

	assert.Equal(t, []int{1, 2, 2}, a)
	assert.Equal(t, []int{1, 2, 2}, b)
	assert.Equal(t, 0, w.Pending(event.TypeOf[ping]()))
}

func TestDispatch_UnknownTypeIsNoop(t *testing.T) {
	r := New(event.NewWorld())

	assert.Equal(t, 0, r.Dispatch(context.Background(), event.TypeOf[pong]()))
	assert.Empty(t, r.Handlers(event.TypeOf[pong]()))
}

func TestDispatch_HandlersReceiveIndependentCopies(t *testing.T) {
	w := event.NewWorld()
	r := New(w)

	var seen []string
	Register(r, Handler[tagged]{Name: "mutator", Fn: func(_ context.Context, v tagged) {
		v.Tags[0] = "mutated"
	}})
	Register(r, Handler[tagged]{Name: "reader", Fn: func(_ context.Context, v tagged) {
		seen = append(seen, v.Tags[0])
	}})

	event.Write(w, tagged{Tags: []string{"original"}})
	r.Dispatch(context.Background(), event.TypeOf[tagged]())

	assert.Equal(t, []string{"original"}, seen)
}

func TestDispatch_WritesDuringDispatchWaitForNextDrain(t *testing.T) {
	w := event.NewWorld()
	r := New(w)

	calls := 0
	Register(r, Handler[ping]{Name: "echo", Fn: func(_ context.Context, p ping) {
		calls++
		event.Write(w, ping{N: p.N + 1})
	}})

	event.Write(w, ping{N: 1})
	r.Dispatch(context.Background(), event.TypeOf[ping]())

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, w.Pending(event.TypeOf[ping]()))
}

func TestObserver_SeesEveryDelivery(t *testing.T) {
	w := event.NewWorld()

	var mu sync.Mutex
	var deliveries []Delivery
	obs := ObserverFunc(func(_ context.Context, d Delivery) {
		mu.Lock()
		defer mu.Unlock()
		deliveries = append(deliveries, d)
	})
	r := New(w, WithObserver(obs))

	Register(r, Handler[ping]{Name: "a", Fn: func(context.Context, ping) {}})
	Register(r, Handler[ping]{Name: "b", Fn: func(context.Context, ping) {}})

	event.Write(w, ping{N: 5})
	r.Dispatch(context.Background(), event.TypeOf[ping]())

	require.Len(t, deliveries, 2)
	assert.Equal(t, "a", deliveries[0].Handler)
	assert.Equal(t, "b", deliveries[1].Handler)
	assert.Equal(t, ping{N: 5}, deliveries[0].Value)
	assert.Equal(t, event.TypeOf[ping](), deliveries[1].Type)
}

func TestObservers_FanOut(t *testing.T) {
	count := 0
	inc := ObserverFunc(func(context.Context, Delivery) { count++ })

	Observers{inc, inc, inc}.Delivered(context.Background(), Delivery{})

	assert.Equal(t, 3, count)
}
