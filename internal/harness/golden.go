package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sagaflow/internal/trace"
)

// TraceSnapshot captures the deterministic part of a scenario execution.
type TraceSnapshot struct {
	Scenario string         `json:"scenario"`
	RunID    string         `json:"run_id"`
	Trace    []TraceEvent   `json:"trace"`
	State    map[string]any `json:"state"`
}

// Snapshot returns the canonical JSON of result, as stored in golden files.
func Snapshot(name string, result *Result) ([]byte, error) {
	return trace.MarshalCanonical(TraceSnapshot{
		Scenario: name,
		RunID:    result.RunID,
		Trace:    result.Trace,
		State:    result.State,
	})
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails. A trace mismatch fails t
// through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
