package saga

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/sagaflow/internal/event"
	"github.com/roach88/sagaflow/internal/schedule"
)

// labeler is implemented by hosts that can list their schedule labels.
type labeler interface {
	Labels() []string
}

var doneType = event.TypeOf[Done]()

// Register validates p and binds every stage to h under label.
//
// Validation covers every stage before anything is bound; on error h is
// left untouched. On success each stage's handler is appended to its input
// type's handler list, the input type gets a dispatch unit in label's
// schedule, and an ordering edge is added from the input type to each
// output type.
func Register[In any](h Host, label string, p Pipeline[In]) error {
	if label == "" {
		return &CompositionError{
			Code:    ErrCodeEmptyLabel,
			Message: "schedule label is empty",
		}
	}
	if len(p.parts) == 0 {
		return &CompositionError{
			Code:      ErrCodeEmptyPipeline,
			Message:   "pipeline has no stages",
			EventType: event.TypeOf[In]().String(),
		}
	}

	for _, pt := range p.parts {
		if err := validatePart(pt); err != nil {
			return err
		}
	}

	reg := h.Registry()
	sched := h.Schedule(label)
	others := otherSchedules(h, label)

	for _, pt := range p.parts {
		pt.bind(h, pt.Name)

		t := pt.Input
		added := sched.AddUnit(schedule.Unit{
			Type: t,
			Name: t.String(),
			Run: func(ctx context.Context) int {
				return reg.Dispatch(ctx, t)
			},
		})
		if added {
			for _, o := range others {
				if o.HasUnit(t) {
					slog.Warn("event type dispatched under several labels",
						"type", t.String(), "label", label, "other_label", o.Label())
				}
			}
		}
		for _, out := range pt.Outputs {
			sched.AddEdge(t, out)
		}
	}

	slog.Info("pipeline registered",
		"label", label,
		"input", event.TypeOf[In]().String(),
		"stages", len(p.parts))
	return nil
}

func validatePart(pt *part) error {
	if pt.Input == doneType {
		return &CompositionError{
			Code:      ErrCodeAfterTerminal,
			Message:   "stage consumes the output of a terminal stage",
			Stage:     pt.Name,
			EventType: pt.Input.String(),
		}
	}

	types := append([]event.Type{pt.Input}, pt.Outputs...)
	for _, t := range types {
		if err := event.Validate(t.Reflect()); err != nil {
			return &CompositionError{
				Code:      ErrCodeInvalidEventType,
				Message:   fmt.Sprintf("%s cannot be used as an event", t),
				Stage:     pt.Name,
				EventType: t.String(),
				Err:       err,
			}
		}
	}

	if pt.validate != nil {
		return pt.validate()
	}
	return nil
}

func otherSchedules(h Host, label string) []*schedule.Schedule {
	l, ok := h.(labeler)
	if !ok {
		return nil
	}
	var out []*schedule.Schedule
	for _, other := range l.Labels() {
		if other != label {
			out = append(out, h.Schedule(other))
		}
	}
	return out
}
