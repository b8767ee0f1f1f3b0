package demo

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/saga"
)

// Entity identifies a combatant.
type Entity uint32

// Spawn creates or replaces a combatant.
type Spawn struct {
	ID     Entity `yaml:"id" json:"id"`
	Weapon uint8  `yaml:"weapon" json:"weapon"`
	Armor  uint8  `yaml:"armor" json:"armor"`
	Health uint8  `yaml:"health" json:"health"`
}

// AttackTrigger starts an attack of By against To.
type AttackTrigger struct {
	By Entity `yaml:"by" json:"by"`
	To Entity `yaml:"to" json:"to"`
}

// Offense carries the attacker's weapon strength.
type Offense struct {
	By     Entity `json:"by"`
	To     Entity `json:"to"`
	Attack uint8  `json:"attack"`
}

// Attack carries both sides of the exchange.
type Attack struct {
	By      Entity `json:"by"`
	To      Entity `json:"to"`
	Attack  uint8  `json:"attack"`
	Defense uint8  `json:"defense"`
}

// Damage is the health the target loses.
type Damage struct {
	By     Entity `yaml:"by" json:"by"`
	To     Entity `yaml:"to" json:"to"`
	Amount uint8  `yaml:"amount" json:"amount"`
}

// AttackDone reports the target's remaining health.
type AttackDone struct {
	By        Entity `json:"by"`
	To        Entity `json:"to"`
	Remaining uint8  `json:"remaining"`
}

// CombatError reports a step that could not complete.
type CombatError struct {
	Step   string `json:"step"`
	Entity Entity `json:"entity"`
	Reason string `json:"reason"`
}

// Combat is the attack saga: look up the attacker's weapon, the target's
// armor, apply the difference as damage and report the outcome.
//
//	AttackTrigger -> Offense -> Attack -> Damage -> AttackDone
//	      \------------\----------------------\--> CombatError
type Combat struct {
	mu      sync.Mutex
	weapons map[Entity]uint8
	armor   map[Entity]uint8
	health  map[Entity]uint8
	log     []string
	outbox  []Damage
	errors  []CombatError

	senders map[string]sender
}

// NewCombat creates an empty arena.
func NewCombat() *Combat {
	c := &Combat{
		weapons: make(map[Entity]uint8),
		armor:   make(map[Entity]uint8),
		health:  make(map[Entity]uint8),
	}
	c.senders = map[string]sender{
		"spawn":  sendAs[Spawn](),
		"attack": sendAs[AttackTrigger](),
		"damage": sendAs[Damage](),
	}
	return c
}

// Name implements Demo.
func (c *Combat) Name() string { return "combat" }

// Events implements Demo.
func (c *Combat) Events() []string { return sortedKeys(c.senders) }

// Send implements Demo.
func (c *Combat) Send(a *app.App, event string, args map[string]any) error {
	return dispatch(c.senders, a, event, args)
}

// Install registers the spawn handler and the attack saga.
func (c *Combat) Install(h saga.Host, label string) error {
	if err := saga.Register(h, label, saga.Handle(c.spawn)); err != nil {
		return err
	}
	return saga.Register(h, label, c.Saga())
}

// Saga builds the attack pipeline. Every step that can fail routes its
// error to the single CombatError handler registered by the outer split.
func (c *Combat) Saga() saga.Pipeline[AttackTrigger] {
	damage := saga.Fanout(
		saga.Split(c.takeDamage, saga.Handle(c.finalizeAttack), saga.Shared[CombatError]()),
		saga.Handle(c.sendNetworkEvent),
	)

	return saga.Split(c.calculateOffense,
		saga.Split(c.calculateDefense,
			saga.Then(saga.Option(c.performAttack), damage),
			saga.Shared[CombatError](),
		),
		saga.Handle(c.handleError),
	)
}

// State implements Demo.
func (c *Combat) State() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	health := make(map[string]any, len(c.health))
	for id, hp := range c.health {
		health[fmt.Sprint(id)] = int(hp)
	}
	errs := make([]any, len(c.errors))
	for i, e := range c.errors {
		errs[i] = fmt.Sprintf("%s: %s (entity %d)", e.Step, e.Reason, e.Entity)
	}
	network := make([]any, len(c.outbox))
	for i, d := range c.outbox {
		network[i] = fmt.Sprintf("%d->%d:%d", d.By, d.To, d.Amount)
	}
	log := make([]any, len(c.log))
	for i, l := range c.log {
		log[i] = l
	}

	return map[string]any{
		"health":  health,
		"log":     log,
		"network": network,
		"errors":  errs,
	}
}

// Health returns id's current health.
func (c *Combat) Health(id Entity) (uint8, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hp, ok := c.health[id]
	return hp, ok
}

func (c *Combat) spawn(_ context.Context, s Spawn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.weapons[s.ID] = s.Weapon
	c.armor[s.ID] = s.Armor
	c.health[s.ID] = s.Health
}

func (c *Combat) calculateOffense(_ context.Context, t AttackTrigger) saga.Result[Offense, CombatError] {
	c.mu.Lock()
	defer c.mu.Unlock()

	weapon, ok := c.weapons[t.By]
	if !ok {
		return saga.Failure[Offense](CombatError{Step: "offense", Entity: t.By, Reason: "no weapon"})
	}
	return saga.Success[Offense, CombatError](Offense{By: t.By, To: t.To, Attack: weapon})
}

func (c *Combat) calculateDefense(_ context.Context, o Offense) saga.Result[Attack, CombatError] {
	c.mu.Lock()
	defer c.mu.Unlock()

	armor, ok := c.armor[o.To]
	if !ok {
		return saga.Failure[Attack](CombatError{Step: "defense", Entity: o.To, Reason: "no armor"})
	}
	return saga.Success[Attack, CombatError](Attack{By: o.By, To: o.To, Attack: o.Attack, Defense: armor})
}

func (c *Combat) performAttack(_ context.Context, a Attack) (Damage, bool) {
	if a.Attack <= a.Defense {
		c.mu.Lock()
		c.log = append(c.log, fmt.Sprintf("%d blocked %d", a.To, a.By))
		c.mu.Unlock()
		return Damage{}, false
	}
	return Damage{By: a.By, To: a.To, Amount: a.Attack - a.Defense}, true
}

func (c *Combat) takeDamage(_ context.Context, d Damage) saga.Result[AttackDone, CombatError] {
	c.mu.Lock()
	defer c.mu.Unlock()

	hp, ok := c.health[d.To]
	if !ok {
		return saga.Failure[AttackDone](CombatError{Step: "damage", Entity: d.To, Reason: "no health"})
	}
	hp -= min(hp, d.Amount)
	c.health[d.To] = hp
	return saga.Success[AttackDone, CombatError](AttackDone{By: d.By, To: d.To, Remaining: hp})
}

func (c *Combat) sendNetworkEvent(_ context.Context, d Damage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outbox = append(c.outbox, d)
}

func (c *Combat) finalizeAttack(_ context.Context, done AttackDone) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if done.Remaining == 0 {
		c.log = append(c.log, fmt.Sprintf("%d defeated %d", done.By, done.To))
		return
	}
	c.log = append(c.log, fmt.Sprintf("%d hit %d, %d hp left", done.By, done.To, done.Remaining))
}

func (c *Combat) handleError(_ context.Context, e CombatError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, e)
}
