package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sagaflow/internal/demo"
)

// DefaultLabel is the schedule a scenario installs its demo under when it
// names none.
const DefaultLabel = "Update"

// DefaultRunID is used when a scenario does not fix its own run ID.
const DefaultRunID = "scenario"

// Scenario defines one harness run.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Demo is the catalog name of the saga under test.
	Demo string `yaml:"demo"`

	// Label is the schedule the demo is installed under.
	Label string `yaml:"label,omitempty"`

	// Labels overrides the app's label order. Must contain Label.
	Labels []string `yaml:"labels,omitempty"`

	// Parallel, when positive, runs each label with the parallel executor
	// limited to that many goroutines per level. Delivery order between
	// units of one level is then unspecified, so such scenarios should not
	// be compared against golden files.
	Parallel int `yaml:"parallel,omitempty"`

	// RunID fixes the run ID recorded in the trace.
	RunID string `yaml:"run_id,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step sends one event or advances the app.
type Step struct {
	// Send is the demo event name, e.g. "attack".
	Send string `yaml:"send,omitempty"`

	// Args are decoded into the event value. Unknown fields are rejected.
	Args map[string]any `yaml:"args,omitempty"`

	// Ticks is how many Update calls to run.
	Ticks int `yaml:"ticks,omitempty"`
}

// Assertion validates the trace or the final demo state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is the event type name, e.g. "demo.Damage" (delivered,
	// delivery_count).
	Event string `yaml:"event,omitempty"`

	// Handler narrows delivered and delivery_count to one handler.
	Handler string `yaml:"handler,omitempty"`

	// Value is matched as a subset of the delivered payload (delivered).
	Value any `yaml:"value,omitempty"`

	// Events is the expected first-delivery order (delivery_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number (delivery_count, dropped).
	Count int `yaml:"count,omitempty"`

	// Key is the demo state entry (final_state).
	Key string `yaml:"key,omitempty"`

	// Expect is the expected state entry (final_state).
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertDelivered     = "delivered"
	AssertDeliveryOrder = "delivery_order"
	AssertDeliveryCount = "delivery_count"
	AssertDropped       = "dropped"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields, or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // catches "assertion:" vs "assertions:"
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Deterministic reports whether repeated runs record byte-identical
// traces. Parallel scenarios do not.
func (s *Scenario) Deterministic() bool {
	return s.Parallel == 0
}

// label returns the install label with the default applied.
func (s *Scenario) label() string {
	if s.Label == "" {
		return DefaultLabel
	}
	return s.Label
}

func (s *Scenario) runID() string {
	if s.RunID == "" {
		return DefaultRunID
	}
	return s.RunID
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Demo == "" {
		return fmt.Errorf("demo is required (available: %v)", demo.Names())
	}
	if !slices.Contains(demo.Names(), s.Demo) {
		return fmt.Errorf("unknown demo %q (available: %v)", s.Demo, demo.Names())
	}
	if len(s.Labels) > 0 && !slices.Contains(s.Labels, s.label()) {
		return fmt.Errorf("label %q is not in labels %v", s.label(), s.Labels)
	}
	if s.Parallel < 0 {
		return fmt.Errorf("parallel must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch {
		case step.Send != "" && step.Ticks != 0:
			return fmt.Errorf("steps[%d]: send and ticks are mutually exclusive", i)
		case step.Send == "" && step.Ticks == 0:
			return fmt.Errorf("steps[%d]: one of send or ticks is required", i)
		case step.Ticks < 0:
			return fmt.Errorf("steps[%d]: ticks must be positive", i)
		case step.Send == "" && step.Args != nil:
			return fmt.Errorf("steps[%d]: args require send", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertDelivered:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for delivered", index)
		}
	case AssertDeliveryOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for delivery_order", index)
		}
	case AssertDeliveryCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for delivery_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for delivery_count", index)
		}
	case AssertDropped:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for dropped", index)
		}
	case AssertFinalState:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for final_state", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
