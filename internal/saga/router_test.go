package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sagaflow/internal/app"
)

type command interface{ isCommand() }

type moveCmd struct{ X, Y int }
type sayCmd struct{ Text string }
type quitCmd struct{}

func (moveCmd) isCommand() {}
func (sayCmd) isCommand()  {}
func (quitCmd) isCommand() {}

type rawInput struct{ Kind string }

type unrelated struct{}

func parseCommand(_ context.Context, in rawInput) command {
	switch in.Kind {
	case "move":
		return moveCmd{X: 1, Y: 2}
	case "say":
		return sayCmd{Text: "hi"}
	case "quit":
		return quitCmd{}
	}
	return nil
}

func TestRoute_ForwardsByVariant(t *testing.T) {
	a := newTestApp()
	var got []string

	p := Route(parseCommand,
		When[command](Handle(func(_ context.Context, m moveCmd) { got = append(got, "move") })),
		When[command](Handle(func(_ context.Context, s sayCmd) { got = append(got, "say:"+s.Text) })),
		When[command](Handle(func(context.Context, quitCmd) { got = append(got, "quit") })),
	)
	require.NoError(t, Register(a, "Update", p))

	for _, k := range []string{"say", "move", "quit", "say"} {
		app.Send(a, rawInput{Kind: k})
	}
	tick(t, a)

	assert.ElementsMatch(t, []string{"say:hi", "say:hi", "move", "quit"}, got)
}

func TestRoute_ContinuationsRunSameTick(t *testing.T) {
	a := newTestApp()
	done := 0

	p := Route(parseCommand,
		When[command](Then(
			Process(func(_ context.Context, m moveCmd) finish { return finish{N: m.X + m.Y} }),
			Handle(func(_ context.Context, f finish) { done = f.N }),
		)),
	)
	require.NoError(t, Register(a, "Update", p))

	app.Send(a, rawInput{Kind: "move"})
	tick(t, a)

	assert.Equal(t, 3, done)
}

func TestRoute_UnmatchedValueIsDropped(t *testing.T) {
	a := newTestApp()
	moves := 0

	p := Route(parseCommand,
		When[command](Handle(func(context.Context, moveCmd) { moves++ })),
	)
	require.NoError(t, Register(a, "Update", p))

	app.Send(a, rawInput{Kind: "say"})
	app.Send(a, rawInput{Kind: "unknown"})
	app.Send(a, rawInput{Kind: "move"})
	tick(t, a)

	assert.Equal(t, 1, moves)
	assert.Equal(t, 0, a.World().PendingTotal())
	assert.Equal(t, uint64(0), a.World().Dropped(), "router misses are not unhandled writes")
}

func TestRoute_DuplicateVariant(t *testing.T) {
	a := newTestApp()

	p := Route(parseCommand,
		When[command](Handle(func(context.Context, moveCmd) {})),
		When[command](Handle(func(context.Context, moveCmd) {})),
	)
	err := Register(a, "Update", p)

	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeDuplicateRoute))
	assert.Empty(t, a.Registry().Types())
}

func TestRoute_CaseNotInSumType(t *testing.T) {
	a := newTestApp()

	p := Route(parseCommand,
		When[command](Handle(func(context.Context, moveCmd) {})),
		When[command](Handle(func(context.Context, unrelated) {})),
	)
	err := Register(a, "Update", p)

	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeRouteNotVariant))

	var ce *CompositionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "saga.unrelated", ce.EventType)
}

func TestRoute_Describe(t *testing.T) {
	p := Route(parseCommand,
		When[command](Handle(func(context.Context, moveCmd) {})),
		When[command](Handle(func(context.Context, sayCmd) {})),
	)

	d := Describe(p)
	require.Len(t, d, 3)
	assert.Equal(t, KindRoute, d[0].Kind)
	assert.Equal(t, "saga.parseCommand", d[0].Name)
	require.Len(t, d[0].Outputs, 2)
	assert.Equal(t, "saga.moveCmd", d[0].Outputs[0].String())
	assert.Equal(t, "saga.sayCmd", d[0].Outputs[1].String())
}
