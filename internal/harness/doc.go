// Package harness runs YAML scenarios against the demo sagas.
//
// A scenario names a demo, sends events into it by name, advances the app
// by whole ticks and then checks what was delivered. Every run uses a fresh
// in-memory trace store, a fixed run ID and the sequential executor, so the
// recorded trace is byte-identical across runs and can be compared against
// a golden file.
//
// # Scenario Format
//
//	name: combat_attack
//	description: "An attack resolves in the tick it is sent"
//	demo: combat
//	steps:
//	  - send: spawn
//	    args: { id: 1, weapon: 10, armor: 2, health: 20 }
//	  - ticks: 1
//	  - send: attack
//	    args: { by: 1, to: 2 }
//	  - ticks: 1
//	assertions:
//	  - type: delivered
//	    event: demo.Damage
//	    value: { amount: 7 }
//	  - type: final_state
//	    key: health
//	    expect: { "2": 13 }
//
// Each step either sends one event or runs a number of ticks, never both.
//
// # Assertion Types
//
//   - delivered: some delivery of event (and handler, if set) carries a
//     value containing every field of value
//   - delivery_order: the listed event types are first delivered in order
//   - delivery_count: event (and handler, if set) was delivered exactly
//     count times
//   - dropped: exactly count writes were dropped for lack of a channel
//   - final_state: the demo's state entry key equals expect
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON trace against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
