// Package subscriber defines the behavioral contract shared by the live
// MessageBus and the Simulator. Implementations are pure functions of
// (state, inbound event, timestamp): no blocking, no wall-clock or
// randomness access outside the at argument, no shared mutable state with
// other subscribers. The core does not enforce these rules mechanically,
// but Simulator/bus equivalence depends on them holding.
package subscriber

import (
	"sort"
	"time"

	"github.com/abrahamvado/messagebus/internal/envelope"
	"github.com/abrahamvado/messagebus/internal/message"
)

// Subscriber is a named, stateful actor driven by the dispatcher.
type Subscriber interface {
	// Receive is called when one envelope addressed to this subscriber is
	// dequeued. at is the delivery timestamp, not necessarily wall-clock
	// "now" at the call site in simulated contexts.
	Receive(msg message.Message, at time.Time) []envelope.Envelope

	// Tick is called at each scheduled tick. at is the scheduled tick time.
	Tick(at time.Time) []envelope.Envelope
}

// Registry maps destination names to their owning Subscriber. Keys are
// unique; insertion order is irrelevant, but iteration order for a given
// Registry value (via Names) is stable across calls.
type Registry map[string]Subscriber

// Names returns the registry's destination keys in a stable sort order,
// satisfying the requirement that tick-phase iteration order be fixed for
// a given run.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
