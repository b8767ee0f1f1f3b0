package harness

import (
	"encoding/json"

	"github.com/roach88/sagaflow/internal/trace"
)

// TraceEvent is one recorded delivery.
type TraceEvent struct {
	Seq     int64           `json:"seq"`
	Tick    int64           `json:"tick"`
	Label   string          `json:"label"`
	Event   string          `json:"event_type"`
	Handler string          `json:"handler"`
	Payload json.RawMessage `json:"payload"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// RunID is the run the trace was recorded under.
	RunID string `json:"run_id"`

	// Trace contains every delivery in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Ticks summarises each Update.
	Ticks []trace.Tick `json:"ticks"`

	// State is the demo's final state.
	State map[string]any `json:"state"`

	// Dropped counts writes to event types nothing handled.
	Dropped uint64 `json:"dropped"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(runID string) *Result {
	return &Result{
		Pass:   true,
		RunID:  runID,
		Trace:  []TraceEvent{},
		Ticks:  []trace.Tick{},
		State:  make(map[string]any),
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addDelivery appends a journal row to the trace.
func (r *Result) addDelivery(d trace.Delivery) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     d.Seq,
		Tick:    d.Tick,
		Label:   d.Label,
		Event:   d.EventType,
		Handler: d.Handler,
		Payload: json.RawMessage(d.Payload),
	})
}
