package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: test_scenario
description: "Test scenario for validation"
demo: combat
steps:
  - send: spawn
    args:
      id: 1
      health: 10
  - ticks: 2
assertions:
  - type: delivery_count
    event: demo.Spawn
    count: 1
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScenario), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", s.Name)
	assert.Equal(t, "combat", s.Demo)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, "spawn", s.Steps[0].Send)
	assert.Equal(t, 1, s.Steps[0].Args["id"])
	assert.Equal(t, 2, s.Steps[1].Ticks)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertDeliveryCount, s.Assertions[0].Type)

	assert.Equal(t, DefaultLabel, s.label())
	assert.Equal(t, DefaultRunID, s.runID())
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(validScenario + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `
description: d
demo: combat
steps: [{ticks: 1}]
assertions: [{type: dropped}]
`,
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: n
demo: combat
steps: [{ticks: 1}]
assertions: [{type: dropped}]
`,
			want: "description is required",
		},
		{
			name: "missing demo",
			yaml: `
name: n
description: d
steps: [{ticks: 1}]
assertions: [{type: dropped}]
`,
			want: "demo is required",
		},
		{
			name: "unknown demo",
			yaml: `
name: n
description: d
demo: chess
steps: [{ticks: 1}]
assertions: [{type: dropped}]
`,
			want: `unknown demo "chess"`,
		},
		{
			name: "label outside labels",
			yaml: `
name: n
description: d
demo: combat
label: Late
labels: [Early, Update]
steps: [{ticks: 1}]
assertions: [{type: dropped}]
`,
			want: `label "Late" is not in labels`,
		},
		{
			name: "negative parallel",
			yaml: `
name: n
description: d
demo: combat
parallel: -1
steps: [{ticks: 1}]
assertions: [{type: dropped}]
`,
			want: "parallel must be non-negative",
		},
		{
			name: "no steps",
			yaml: `
name: n
description: d
demo: combat
assertions: [{type: dropped}]
`,
			want: "steps list is required",
		},
		{
			name: "no assertions",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: 1}]
`,
			want: "assertions list is required",
		},
		{
			name: "send and ticks",
			yaml: `
name: n
description: d
demo: combat
steps: [{send: spawn, ticks: 1}]
assertions: [{type: dropped}]
`,
			want: "steps[0]: send and ticks are mutually exclusive",
		},
		{
			name: "empty step",
			yaml: `
name: n
description: d
demo: combat
steps: [{}]
assertions: [{type: dropped}]
`,
			want: "steps[0]: one of send or ticks is required",
		},
		{
			name: "negative ticks",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: -2}]
assertions: [{type: dropped}]
`,
			want: "steps[0]: ticks must be positive",
		},
		{
			name: "args without send",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: 1}, {args: {id: 1}}]
assertions: [{type: dropped}]
`,
			want: "steps[1]: one of send or ticks is required",
		},
		{
			name: "assertion without type",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: 1}]
assertions: [{event: demo.Spawn}]
`,
			want: "assertions[0]: type is required",
		},
		{
			name: "unknown assertion type",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: 1}]
assertions: [{type: trace_contains}]
`,
			want: `assertions[0]: unknown assertion type "trace_contains"`,
		},
		{
			name: "delivered without event",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: 1}]
assertions: [{type: delivered}]
`,
			want: "event is required for delivered",
		},
		{
			name: "delivery_order without events",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: 1}]
assertions: [{type: delivery_order}]
`,
			want: "events list is required for delivery_order",
		},
		{
			name: "delivery_count negative",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: 1}]
assertions: [{type: delivery_count, event: demo.Spawn, count: -1}]
`,
			want: "count must be non-negative for delivery_count",
		},
		{
			name: "final_state without key",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: 1}]
assertions: [{type: final_state, expect: 1}]
`,
			want: "key is required for final_state",
		},
		{
			name: "final_state without expect",
			yaml: `
name: n
description: d
demo: combat
steps: [{ticks: 1}]
assertions: [{type: final_state, key: health}]
`,
			want: "expect is required for final_state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_TestdataFiles(t *testing.T) {
	paths, err := filepath.Glob("../../testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}
