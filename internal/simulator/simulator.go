// Package simulator implements the deterministic twin of the live
// MessageBus: scripted replay (Run) and forward stepping (Step/StepTo)
// against the same subscriber.Subscriber contract.
package simulator

import (
	"time"

	"github.com/abrahamvado/messagebus/internal/envelope"
	"github.com/abrahamvado/messagebus/internal/subscriber"
)

// EventKind tags a SimulatorEvent as carrying an envelope delivery or a
// tick.
type EventKind int

const (
	// EventEnvelope delivers a single envelope to its destination.
	EventEnvelope EventKind = iota
	// EventTick fires tick on every subscriber.
	EventTick
)

// Event is the tagged variant a script or a recaptured step is made of:
// either Envelope(envelope, at) or Tick(at).
type Event struct {
	Kind     EventKind
	Envelope envelope.Envelope
	At       time.Time
}

// EnvelopeEvent constructs a scripted envelope delivery event.
func EnvelopeEvent(env envelope.Envelope, at time.Time) Event {
	return Event{Kind: EventEnvelope, Envelope: env, At: at}
}

// TickEvent constructs a scripted tick event.
func TickEvent(at time.Time) Event {
	return Event{Kind: EventTick, At: at}
}

// Simulator drives subscribers deterministically, either by consuming a
// fixed script (Run) or by stepping virtual time forward and recapturing
// subscriber output into subsequent steps (Step/StepTo).
type Simulator struct {
	registry subscriber.Registry
	names    []string
	time     time.Time

	// script backs scripted mode (Run): consumed once, in order.
	script []Event

	// pending backs stepping mode: priority-partitioned lanes of events to
	// drain on the next Step, mirroring the live bus's lane count.
	pending [][]Event
}

// New constructs a Simulator for scripted replay (Run). initialEvents is
// consumed in order; outputs produced while running it are discarded, since
// scripted mode exists to replay a fixed history, not to grow one.
func New(registry subscriber.Registry, initialTime time.Time, initialEvents []Event) *Simulator {
	s := &Simulator{
		registry: registry,
		names:    registry.Names(),
		time:     initialTime,
		script:   append([]Event(nil), initialEvents...),
	}
	return s
}

// NewStepping constructs a Simulator for stepping mode (Step/StepTo).
// initialEvents is priority-partitioned: initialEvents[i] holds events
// destined for lane i, matching the live bus's lane count for fidelity.
// An empty slice normalizes to one lane.
func NewStepping(registry subscriber.Registry, initialTime time.Time, initialEvents [][]Event) *Simulator {
	if len(initialEvents) == 0 {
		initialEvents = [][]Event{nil}
	}
	pending := make([][]Event, len(initialEvents))
	for i, lane := range initialEvents {
		pending[i] = append([]Event(nil), lane...)
	}
	return &Simulator{
		registry: registry,
		names:    registry.Names(),
		time:     initialTime,
		pending:  pending,
	}
}

// Run consumes the scripted event list in order: Tick(at) fires every
// subscriber's Tick, Envelope(e, at) calls Receive on the addressed
// subscriber. Envelopes returned by subscribers during Run are discarded —
// only scripted events drive the system, matching the live bus only in
// ordering, not in feeding outputs back in. Run consumes the Simulator; it
// must not be called twice.
func (s *Simulator) Run() {
	for _, ev := range s.script {
		switch ev.Kind {
		case EventTick:
			for _, name := range s.names {
				s.registry[name].Tick(ev.At)
			}
		case EventEnvelope:
			s.deliverDiscarding(ev.Envelope, ev.At)
		}
	}
	s.script = nil
}

// deliverDiscarding invokes Receive on the addressed subscriber if
// registered, discarding both a missing destination (dropped silently
// rather than treated as an error) and any envelopes the subscriber
// returns.
func (s *Simulator) deliverDiscarding(env envelope.Envelope, at time.Time) {
	sub, ok := s.registry[env.Destination]
	if !ok {
		return
	}
	sub.Receive(env.Message, at)
}

// Time returns the simulator's current virtual time.
func (s *Simulator) Time() time.Time {
	return s.time
}

// Step advances virtual time by 'by', running one full tick-then-drain
// cycle and recapturing every subscriber output into the next step's
// priority-partitioned buffer.
func (s *Simulator) Step(by time.Duration) time.Time {
	current := s.pending
	next := make([][]Event, len(current))

	//1.- Tick phase, captured at the pre-advance time: every subscriber's
	// Tick fires and its output lands in the next step's buffer.
	for _, name := range s.names {
		for _, out := range s.registry[name].Tick(s.time) {
			idx := clampLane(out.Priority, len(next))
			next[idx] = append(next[idx], EnvelopeEvent(out, s.time))
		}
	}

	//2.- Advance virtual time.
	s.time = s.time.Add(by)

	//3.- Drain phase: consume the current step's event set in descending
	// priority order, FIFO within a lane; outputs also land in the next
	// step's buffer.
	for i := len(current) - 1; i >= 0; i-- {
		for _, ev := range current[i] {
			switch ev.Kind {
			case EventEnvelope:
				sub, ok := s.registry[ev.Envelope.Destination]
				if !ok {
					continue
				}
				for _, out := range sub.Receive(ev.Envelope.Message, ev.At) {
					idx := clampLane(out.Priority, len(next))
					next[idx] = append(next[idx], EnvelopeEvent(out, s.time))
				}
			case EventTick:
				for _, name := range s.names {
					for _, out := range s.registry[name].Tick(ev.At) {
						idx := clampLane(out.Priority, len(next))
						next[idx] = append(next[idx], EnvelopeEvent(out, s.time))
					}
				}
			}
		}
	}

	//4.- Swap buffers: the recaptured output becomes the next step's input.
	s.pending = next
	return s.time
}

// StepTo repeats Step(min(by, target-time)) until time >= target or the
// increment becomes zero.
func (s *Simulator) StepTo(target time.Time, by time.Duration) time.Time {
	for s.time.Before(target) {
		remaining := target.Sub(s.time)
		increment := by
		if remaining < increment {
			increment = remaining
		}
		if increment <= 0 {
			break
		}
		s.Step(increment)
	}
	return s.time
}

// PendingEnvelopeCount reports how many envelopes are queued for the next
// Step, across all lanes. Exposed for tests asserting recapture behavior.
func (s *Simulator) PendingEnvelopeCount() int {
	total := 0
	for _, lane := range s.pending {
		total += len(lane)
	}
	return total
}

func clampLane(priority, count int) int {
	if count <= 0 {
		return 0
	}
	if priority < 0 {
		priority = 0
	}
	if priority >= count {
		return count - 1
	}
	return priority
}
