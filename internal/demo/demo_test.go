package demo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/testutil"
)

func install(t *testing.T, d Demo, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{app.WithRunIDGenerator(testutil.NewFixedRunID("demo"))}, opts...)
	a := app.New(opts...)
	require.NoError(t, d.Install(a, "Update"))
	return a
}

func send(t *testing.T, d Demo, a *app.App, event string, args map[string]any) {
	t.Helper()
	require.NoError(t, d.Send(a, event, args))
}

func tick(t *testing.T, a *app.App) {
	t.Helper()
	require.NoError(t, a.Update(context.Background()))
}

// =============================================================================
// Catalog
// =============================================================================

func TestNew(t *testing.T) {
	assert.Equal(t, []string{"combat", "inbox", "relay"}, Names())

	for _, name := range Names() {
		d, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
		assert.NotEmpty(t, d.Events())
	}

	_, err := New("missing")
	assert.Error(t, err)
}

func TestSend_Errors(t *testing.T) {
	c := NewCombat()
	a := install(t, c)

	assert.ErrorContains(t, c.Send(a, "explode", nil), "unknown event")
	assert.ErrorContains(t, c.Send(a, "attack", map[string]any{"by": 1, "bogus": 2}), "bogus")
}

// =============================================================================
// Combat
// =============================================================================

func TestCombat_AttackCompletesInOneTick(t *testing.T) {
	c := NewCombat()
	a := install(t, c)

	send(t, c, a, "spawn", map[string]any{"id": 1, "weapon": 10, "armor": 2, "health": 20})
	send(t, c, a, "spawn", map[string]any{"id": 2, "weapon": 4, "armor": 3, "health": 20})
	tick(t, a)

	send(t, c, a, "attack", map[string]any{"by": 1, "to": 2})
	tick(t, a)

	hp, ok := c.Health(2)
	require.True(t, ok)
	assert.Equal(t, uint8(13), hp)

	st := c.State()
	assert.Equal(t, []any{"1 hit 2, 13 hp left"}, st["log"])
	assert.Equal(t, []any{"1->2:7"}, st["network"])
	assert.Empty(t, st["errors"])
}

func TestCombat_SpawnAndAttackSameTick(t *testing.T) {
	c := NewCombat()
	a := install(t, c)

	send(t, c, a, "spawn", map[string]any{"id": 1, "weapon": 30, "armor": 0, "health": 5})
	send(t, c, a, "spawn", map[string]any{"id": 2, "weapon": 0, "armor": 5, "health": 10})
	send(t, c, a, "attack", map[string]any{"by": 1, "to": 2})
	tick(t, a)

	hp, _ := c.Health(2)
	assert.Equal(t, uint8(0), hp)
	assert.Equal(t, []any{"1 defeated 2"}, c.State()["log"])
}

func TestCombat_Blocked(t *testing.T) {
	c := NewCombat()
	a := install(t, c)

	send(t, c, a, "spawn", map[string]any{"id": 1, "weapon": 3, "armor": 0, "health": 5})
	send(t, c, a, "spawn", map[string]any{"id": 2, "weapon": 0, "armor": 5, "health": 10})
	send(t, c, a, "attack", map[string]any{"by": 1, "to": 2})
	tick(t, a)

	hp, _ := c.Health(2)
	assert.Equal(t, uint8(10), hp)
	assert.Equal(t, []any{"2 blocked 1"}, c.State()["log"])
	assert.Empty(t, c.State()["network"])
}

func TestCombat_ErrorsFromEveryStepReachOneHandler(t *testing.T) {
	tests := []struct {
		name  string
		spawn []map[string]any
		want  string
	}{
		{"missing attacker", nil, "offense: no weapon (entity 1)"},
		{"missing target", []map[string]any{{"id": 1, "weapon": 5}}, "defense: no armor (entity 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCombat()
			a := install(t, c)
			for _, s := range tt.spawn {
				send(t, c, a, "spawn", s)
			}
			tick(t, a)

			send(t, c, a, "attack", map[string]any{"by": 1, "to": 2})
			tick(t, a)

			assert.Equal(t, []any{tt.want}, c.State()["errors"])
		})
	}
}

func TestCombat_DamageMidChainSkipsEarlierSteps(t *testing.T) {
	c := NewCombat()
	a := install(t, c)

	send(t, c, a, "spawn", map[string]any{"id": 2, "health": 9})
	tick(t, a)

	send(t, c, a, "damage", map[string]any{"by": 7, "to": 2, "amount": 4})
	send(t, c, a, "damage", map[string]any{"by": 7, "to": 3, "amount": 4})
	tick(t, a)

	hp, _ := c.Health(2)
	assert.Equal(t, uint8(5), hp)
	st := c.State()
	assert.Equal(t, []any{"7 hit 2, 5 hp left"}, st["log"])
	assert.Equal(t, []any{"7->2:4", "7->3:4"}, st["network"])
	assert.Equal(t, []any{"damage: no health (entity 3)"}, st["errors"])
}

func TestCombat_PlanHasNoCycles(t *testing.T) {
	c := NewCombat()
	a := install(t, c)

	plan, ok := a.Plan("Update")
	require.True(t, ok)
	assert.Empty(t, plan.Warnings)
	assert.Equal(t, []string{
		"demo.Spawn",
		"demo.AttackTrigger",
		"demo.Offense",
		"demo.Attack",
		"demo.Damage",
		"demo.AttackDone",
		"demo.CombatError",
	}, typeNames(plan.Types()))
}

// =============================================================================
// Inbox
// =============================================================================

func TestInbox_RoutesCommands(t *testing.T) {
	in := NewInbox()
	a := install(t, in)

	for _, body := range []string{"hello", "/move north", "/move east", "/move up", "", "/dance", "/leave"} {
		send(t, in, a, "message", map[string]any{"from": "ann", "body": body})
	}
	send(t, in, a, "message", map[string]any{"from": "bob", "body": "/move south"})
	tick(t, a)

	st := in.State()
	assert.Equal(t, []any{"ann: hello"}, st["chat"])
	assert.Equal(t, []any{"ann"}, st["left"])
	assert.Equal(t, 1, st["rejected"])
	assert.Equal(t, map[string]any{"bob": "0,-1"}, st["positions"])
}

// =============================================================================
// Relay
// =============================================================================

func TestRelay_AllProducersReachConsumerSameTick(t *testing.T) {
	r := NewRelay()
	a := install(t, r)

	send(t, r, a, "pulse", map[string]any{"seq": 1})
	tick(t, a)

	assert.Equal(t, 3, r.Readings(1))
}

func TestRelay_ParallelExecutor(t *testing.T) {
	r := NewRelay()
	a := install(t, r, app.WithParallel(4))

	for seq := range 5 {
		send(t, r, a, "pulse", map[string]any{"seq": seq})
	}
	tick(t, a)

	for seq := range 5 {
		assert.Equal(t, 3, r.Readings(seq))
	}
}

func TestRelay_Greeting(t *testing.T) {
	r := NewRelay()
	a := install(t, r)

	send(t, r, a, "greet", map[string]any{"to": "Vicky"})
	send(t, r, a, "greet", map[string]any{"to": "Luna"})
	tick(t, a)

	assert.Equal(t, []any{"Hello, Vicky!", "Hello, Luna!"}, r.State()["greetings"])
}
