package demo

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/saga"
)

// Pulse asks every sensor for a sample.
type Pulse struct {
	Seq int `yaml:"seq" json:"seq"`
}

type (
	// TempSample is a raw thermometer sample.
	TempSample struct {
		Seq int `json:"seq"`
	}
	// HumiditySample is a raw hygrometer sample.
	HumiditySample struct {
		Seq int `json:"seq"`
	}
	// PressureSample is a raw barometer sample.
	PressureSample struct {
		Seq int `json:"seq"`
	}
)

// Reading is a calibrated sample from any sensor.
type Reading struct {
	Source string `json:"source"`
	Seq    int    `json:"seq"`
}

// Greet is a request answered with a Greeting.
type Greet struct {
	To string `yaml:"to" json:"to"`
}

// Greeting is the response to Greet.
type Greeting struct {
	Message string `json:"message"`
}

// Relay shows several producers feeding one consumer, and a plain
// request/response pair.
//
//	Pulse -+-> TempSample     -> Reading -+
//	       +-> HumiditySample -> Reading -+-> collect
//	       +-> PressureSample -> Reading -+
//
//	Greet -> Greeting -> deliver
type Relay struct {
	mu        sync.Mutex
	readings  map[int][]string
	greetings []string

	senders map[string]sender
}

// NewRelay creates an empty relay.
func NewRelay() *Relay {
	r := &Relay{readings: make(map[int][]string)}
	r.senders = map[string]sender{
		"pulse": sendAs[Pulse](),
		"greet": sendAs[Greet](),
	}
	return r
}

// Name implements Demo.
func (r *Relay) Name() string { return "relay" }

// Events implements Demo.
func (r *Relay) Events() []string { return sortedKeys(r.senders) }

// Send implements Demo.
func (r *Relay) Send(a *app.App, event string, args map[string]any) error {
	return dispatch(r.senders, a, event, args)
}

// Install registers the sensor and greeting sagas.
func (r *Relay) Install(h saga.Host, label string) error {
	if err := saga.Register(h, label, r.Sensors()); err != nil {
		return err
	}
	return saga.Register(h, label, r.Greeter())
}

// Sensors builds the fan-in pipeline. Only the first branch registers the
// consumer; the others join its channel.
func (r *Relay) Sensors() saga.Pipeline[Pulse] {
	return saga.Fanout(
		saga.Then3(saga.Map(sampleTemp), saga.Map(readTemp), saga.Handle(r.collect)),
		saga.Then3(saga.Map(sampleHumidity), saga.Map(readHumidity), saga.Shared[Reading]()),
		saga.Then3(saga.Map(samplePressure), saga.Map(readPressure), saga.Shared[Reading]()),
	)
}

// Greeter builds the request/response pipeline.
func (r *Relay) Greeter() saga.Pipeline[Greet] {
	return saga.Then(saga.Map(answer), saga.Handle(r.deliver))
}

// State implements Demo.
func (r *Relay) State() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	readings := make(map[string]any, len(r.readings))
	for seq, srcs := range r.readings {
		readings[fmt.Sprint(seq)] = len(srcs)
	}
	greetings := make([]any, len(r.greetings))
	for i, g := range r.greetings {
		greetings[i] = g
	}
	return map[string]any{
		"readings":  readings,
		"greetings": greetings,
	}
}

// Readings returns how many readings arrived for seq.
func (r *Relay) Readings(seq int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.readings[seq])
}

func sampleTemp(p Pulse) TempSample { return TempSample(p) }
func sampleHumidity(p Pulse) HumiditySample { return HumiditySample(p) }
func samplePressure(p Pulse) PressureSample { return PressureSample(p) }
func readTemp(s TempSample) Reading { return Reading{Source: "temp", Seq: s.Seq} }
func readHumidity(s HumiditySample) Reading { return Reading{Source: "humidity", Seq: s.Seq} }
func readPressure(s PressureSample) Reading { return Reading{Source: "pressure", Seq: s.Seq} }
func answer(g Greet) Greeting { return Greeting{Message: fmt.Sprintf("Hello, %s!", g.To)} }

func (r *Relay) collect(_ context.Context, rd Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readings[rd.Seq] = append(r.readings[rd.Seq], rd.Source)
}

func (r *Relay) deliver(_ context.Context, g Greeting) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.greetings = append(r.greetings, g.Message)
}
