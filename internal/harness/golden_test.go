package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_CombatAttack(t *testing.T) {
	s, err := LoadScenario("../../testdata/scenarios/combat_attack.yaml")
	require.NoError(t, err)

	// Regenerate with:
	//   go test ./internal/harness -run TestRunWithGolden_CombatAttack -update
	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot_Deterministic(t *testing.T) {
	s, err := LoadScenario("../../testdata/scenarios/inbox_routing.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := Snapshot(s.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSnapshot_Canonical(t *testing.T) {
	r := NewResult("run")
	r.Trace = append(r.Trace, ev(1, "demo.Greet", "demo.answer", `{ "to" : "ann" }`))
	r.State = map[string]any{"z": 1, "a": []any{"x"}}

	data, err := Snapshot("s", r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"run_id":"run","scenario":"s","state":{"a":["x"],"z":1},"trace":[{"event_type":"demo.Greet","handler":"demo.answer","label":"Update","payload":{"to":"ann"},"seq":1,"tick":1}]}`,
		string(data))
}
