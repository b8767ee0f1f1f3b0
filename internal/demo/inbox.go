package demo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/saga"
)

// Message is a raw line typed by a player.
type Message struct {
	From string `yaml:"from" json:"from"`
	Body string `yaml:"body" json:"body"`
}

// Command is the parsed form of a Message.
type Command interface {
	command()
}

// Move asks to step one square in Dir.
type Move struct {
	From string `json:"from"`
	Dir  string `json:"dir"`
}

// Say is a chat line.
type Say struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// Leave removes the player.
type Leave struct {
	From string `json:"from"`
}

func (Move) command()  {}
func (Say) command()   {}
func (Leave) command() {}

// Moved is an accepted Move with the resulting position.
type Moved struct {
	From string `json:"from"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

var directions = map[string][2]int{
	"north": {0, 1},
	"south": {0, -1},
	"east":  {1, 0},
	"west":  {-1, 0},
}

// Inbox routes player messages to per-command pipelines.
//
//	Message -> Command -+-> Move -> Moved
//	                    +-> Say
//	                    +-> Leave
type Inbox struct {
	mu        sync.Mutex
	positions map[string][2]int
	chat      []string
	left      []string
	rejected  int

	senders map[string]sender
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	in := &Inbox{positions: make(map[string][2]int)}
	in.senders = map[string]sender{
		"message": sendAs[Message](),
	}
	return in
}

// Name implements Demo.
func (in *Inbox) Name() string { return "inbox" }

// Events implements Demo.
func (in *Inbox) Events() []string { return sortedKeys(in.senders) }

// Send implements Demo.
func (in *Inbox) Send(a *app.App, event string, args map[string]any) error {
	return dispatch(in.senders, a, event, args)
}

// Install registers the routing saga.
func (in *Inbox) Install(h saga.Host, label string) error {
	return saga.Register(h, label, in.Saga())
}

// Saga builds the message router.
func (in *Inbox) Saga() saga.Pipeline[Message] {
	return saga.Route(in.parse,
		saga.When[Command](saga.Then(saga.Option(in.move), saga.Handle(in.moved))),
		saga.When[Command](saga.Handle(in.say)),
		saga.When[Command](saga.Handle(in.leave)),
	)
}

// State implements Demo.
func (in *Inbox) State() map[string]any {
	in.mu.Lock()
	defer in.mu.Unlock()

	positions := make(map[string]any, len(in.positions))
	for who, p := range in.positions {
		positions[who] = fmt.Sprintf("%d,%d", p[0], p[1])
	}
	chat := make([]any, len(in.chat))
	for i, c := range in.chat {
		chat[i] = c
	}
	left := make([]any, len(in.left))
	for i, l := range in.left {
		left[i] = l
	}
	return map[string]any{
		"positions": positions,
		"chat":      chat,
		"left":      left,
		"rejected":  in.rejected,
	}
}

// parse returns nil for blank lines and unknown slash commands; the router
// drops those.
func (in *Inbox) parse(_ context.Context, m Message) Command {
	body := strings.TrimSpace(m.Body)
	switch {
	case body == "":
		return nil
	case body == "/leave":
		return Leave{From: m.From}
	case strings.HasPrefix(body, "/move "):
		return Move{From: m.From, Dir: strings.TrimSpace(strings.TrimPrefix(body, "/move "))}
	case strings.HasPrefix(body, "/"):
		return nil
	}
	return Say{From: m.From, Text: body}
}

func (in *Inbox) move(_ context.Context, m Move) (Moved, bool) {
	d, ok := directions[m.Dir]
	in.mu.Lock()
	defer in.mu.Unlock()

	if !ok {
		in.rejected++
		return Moved{}, false
	}
	p := in.positions[m.From]
	return Moved{From: m.From, X: p[0] + d[0], Y: p[1] + d[1]}, true
}

func (in *Inbox) moved(_ context.Context, m Moved) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.positions[m.From] = [2]int{m.X, m.Y}
}

func (in *Inbox) say(_ context.Context, s Say) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.chat = append(in.chat, s.From+": "+s.Text)
}

func (in *Inbox) leave(_ context.Context, l Leave) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.positions, l.From)
	in.left = append(in.left, l.From)
}
