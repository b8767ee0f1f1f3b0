package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] tick %d %s %s -> %s %s\n",
				ev.Seq, ev.Tick, ev.Label, ev.Event, ev.Handler, ev.Payload)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertDelivered:
			err = assertDelivered(result.Trace, a)
		case AssertDeliveryOrder:
			err = assertDeliveryOrder(result.Trace, a)
		case AssertDeliveryCount:
			err = assertDeliveryCount(result.Trace, a)
		case AssertDropped:
			err = assertDropped(result, a)
		case AssertFinalState:
			err = assertFinalState(result.State, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertDelivered checks that some delivery of the event carries a payload
// containing the expected value.
func assertDelivered(trace []TraceEvent, a Assertion) error {
	expected, err := normalize(a.Value)
	if err != nil {
		return fmt.Errorf("delivered: expected value: %w", err)
	}

	for _, ev := range trace {
		if !matchesTarget(ev, a) {
			continue
		}
		var actual any
		if err := json.Unmarshal(ev.Payload, &actual); err != nil {
			return fmt.Errorf("delivered: payload of seq %d: %w", ev.Seq, err)
		}
		if expected == nil || matchSubset(actual, expected) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertDelivered,
		Expected: fmt.Sprintf("%s with value %v", describeTarget(a), a.Value),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertDeliveryOrder checks that event types are first delivered in the
// listed order. Other deliveries may appear in between.
func assertDeliveryOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if _, seen := positions[ev.Event]; !seen {
			positions[ev.Event] = i + 1 // 1-indexed for readability
		}
	}

	for _, name := range a.Events {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertDeliveryOrder,
				Expected: fmt.Sprintf("all events delivered: %v", a.Events),
				Actual:   fmt.Sprintf("missing event: %s", name),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Events); i++ {
		prev, curr := a.Events[i-1], a.Events[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertDeliveryOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertDeliveryCount checks the exact number of matching deliveries.
func assertDeliveryCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matchesTarget(ev, a) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertDeliveryCount,
			Expected: fmt.Sprintf("%d deliveries of %s", a.Count, describeTarget(a)),
			Actual:   fmt.Sprintf("%d deliveries", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertDropped(result *Result, a Assertion) error {
	if result.Dropped != uint64(a.Count) {
		return &AssertionError{
			Type:     AssertDropped,
			Expected: fmt.Sprintf("%d dropped writes", a.Count),
			Actual:   fmt.Sprintf("%d dropped writes", result.Dropped),
		}
	}
	return nil
}

// assertFinalState compares one state entry against the expected value.
// Maps are compared with subset semantics, everything else exactly.
func assertFinalState(state map[string]any, a Assertion) error {
	raw, ok := state[a.Key]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state entry %q to exist", a.Key),
			Actual:   fmt.Sprintf("entries present: %v", stateKeys(state)),
		}
	}

	actual, err := normalize(raw)
	if err != nil {
		return fmt.Errorf("final_state: state entry %q: %w", a.Key, err)
	}
	expected, err := normalize(a.Expect)
	if err != nil {
		return fmt.Errorf("final_state: expected value: %w", err)
	}

	if !matchSubset(actual, expected) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", a.Key, expected),
			Actual:   fmt.Sprintf("%s = %v", a.Key, actual),
		}
	}
	return nil
}

func matchesTarget(ev TraceEvent, a Assertion) bool {
	if ev.Event != a.Event {
		return false
	}
	return a.Handler == "" || ev.Handler == a.Handler
}

func describeTarget(a Assertion) string {
	if a.Handler == "" {
		return a.Event
	}
	return a.Event + " to " + a.Handler
}

// normalize round-trips v through JSON so YAML-decoded expectations and
// Go state values compare with the same number and map types.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// matchSubset reports whether actual contains expected. Objects match when
// every expected key is present with a matching value; extra keys in actual
// are ignored.
func matchSubset(actual, expected any) bool {
	expMap, ok := expected.(map[string]any)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}

	actMap, ok := actual.(map[string]any)
	if !ok {
		return false
	}
	for k, ev := range expMap {
		av, exists := actMap[k]
		if !exists || !matchSubset(av, ev) {
			return false
		}
	}
	return true
}

func stateKeys(state map[string]any) []string {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
