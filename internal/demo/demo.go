// Package demo holds example sagas used by the CLI and the scenario
// harness. Each demo owns its own state and accepts events by name, so a
// scenario file can drive it without Go code.
package demo

import (
	"bytes"
	"fmt"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/saga"
)

// Demo is an installable example saga.
type Demo interface {
	// Name is the catalog key.
	Name() string

	// Install registers the demo's pipelines under label.
	Install(h saga.Host, label string) error

	// Events lists the event names Send accepts.
	Events() []string

	// Send decodes args into the named event and writes it into a.
	Send(a *app.App, event string, args map[string]any) error

	// State returns a snapshot of the demo's state.
	State() map[string]any
}

var catalog = map[string]func() Demo{
	"combat": func() Demo { return NewCombat() },
	"inbox":  func() Demo { return NewInbox() },
	"relay":  func() Demo { return NewRelay() },
}

// New returns a fresh instance of the named demo.
func New(name string) (Demo, error) {
	mk, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("unknown demo %q (available: %v)", name, Names())
	}
	return mk(), nil
}

// Names lists the catalog in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// sender decodes scenario args and writes the resulting event.
type sender func(a *app.App, args map[string]any) error

func sendAs[T any]() sender {
	return func(a *app.App, args map[string]any) error {
		v, err := decodeArgs[T](args)
		if err != nil {
			return err
		}
		if !app.Send(a, v) {
			return fmt.Errorf("no handler registered for %T", v)
		}
		return nil
	}
}

// decodeArgs converts a generic map into T through YAML, rejecting
// unknown fields.
func decodeArgs[T any](args map[string]any) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}

	data, err := yaml.Marshal(args)
	if err != nil {
		return v, fmt.Errorf("encode args: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}

func dispatch(senders map[string]sender, a *app.App, event string, args map[string]any) error {
	s, ok := senders[event]
	if !ok {
		return fmt.Errorf("unknown event %q (available: %v)", event, sortedKeys(senders))
	}
	return s(a, args)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
