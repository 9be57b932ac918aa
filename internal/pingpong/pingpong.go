// Package pingpong implements the canonical two-actor exchange used to
// exercise both the live Bus and the Simulator against identical subscriber
// logic: every tick sends a Ping to its peer, and holds each received Ping
// for a configured duration before replying with a Pong.
package pingpong

import (
	"time"

	"github.com/abrahamvado/messagebus/internal/envelope"
	"github.com/abrahamvado/messagebus/internal/message"
)

// Ping is sent once per tick to the configured peer.
type Ping struct{}

// Pong is sent once a held Ping reaches its hold duration.
type Pong struct{}

// Actor is a Subscriber that pings its peer every tick and echoes a Pong
// once each received Ping has been held for HoldDuration.
type Actor struct {
	Name         string
	Destination  string
	HoldDuration time.Duration
	Priority     int

	pending []time.Time
}

// New constructs a ping/pong actor addressed to destination, replying with
// Pong after hold once a Ping has been outstanding that long.
func New(name, destination string, hold time.Duration, priority int) *Actor {
	return &Actor{Name: name, Destination: destination, HoldDuration: hold, Priority: priority}
}

// Receive implements subscriber.Subscriber. A Ping is queued for a
// delayed Pong reply; a Pong is acknowledged and otherwise ignored.
func (a *Actor) Receive(msg message.Message, at time.Time) []envelope.Envelope {
	switch msg.(type) {
	case Ping:
		a.pending = append(a.pending, at)
	case Pong:
		// Acknowledged; the exchange continues on the next tick's Ping.
	}
	return nil
}

// Tick implements subscriber.Subscriber: it always sends a fresh Ping, and
// replies with a Pong for every held Ping whose hold duration has elapsed,
// oldest first.
func (a *Actor) Tick(at time.Time) []envelope.Envelope {
	out := []envelope.Envelope{envelope.New(a.Destination, a.Priority, Ping{})}

	for len(a.pending) > 0 && at.Sub(a.pending[0]) >= a.HoldDuration {
		a.pending = a.pending[1:]
		out = append(out, envelope.New(a.Destination, a.Priority, Pong{}))
	}
	return out
}

// PendingCount reports how many received Pings are still being held,
// waiting for HoldDuration to elapse. Exposed for tests asserting that a
// scripted run actually flushed the held Pings it was supposed to.
func (a *Actor) PendingCount() int {
	return len(a.pending)
}
