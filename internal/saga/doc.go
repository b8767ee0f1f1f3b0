// Package saga composes typed processing stages into pipelines and registers
// them with a host.
//
// A stage consumes one event type and produces another:
//
//	offense := saga.Process(calculateOffense)   // Stage[AttackTrigger, Offense]
//	defense := saga.Process(calculateDefense)   // Stage[Offense, Attack]
//	combat := saga.Then3(offense, defense, saga.Handle(applyAttack))
//
// Then only accepts stages whose types line up, so a mis-wired pipeline does
// not compile. Branching stages (Option, Split, Route) and fan-out (Group,
// Fanout) cover the remaining shapes. Register validates a pipeline in full
// before touching the host: each stage becomes a handler on its input type
// plus ordering edges from that type to every type it can produce, so a
// chain of any length completes within a single tick.
//
// Stage functions receive a context carrying the event world, so they can
// emit side events with event.Emit. Panics in stage functions are not
// recovered.
package saga
