// Package envelope defines the routed wrapper around a message plus the
// PublishHook extension point observers use to watch traffic without
// altering bus behavior.
package envelope

import (
	"time"

	"github.com/abrahamvado/messagebus/internal/message"
)

// Envelope bundles a message with routing metadata. Ownership of the
// message is exclusive to whichever party currently holds the Envelope: it
// is never read by more than one goroutine at a time.
type Envelope struct {
	Message     message.Message
	Destination string
	Priority    int
}

// New constructs an envelope addressed to destination at the given
// priority. Negative priorities are clamped to zero.
func New(destination string, priority int, msg message.Message) Envelope {
	if priority < 0 {
		priority = 0
	}
	return Envelope{Message: msg, Destination: destination, Priority: priority}
}

// Hook observes every envelope immediately before it is enqueued, on both
// the live bus and (optionally) simulator driving code. Implementations
// must not block or mutate the envelope; they exist for recording,
// debugging, and metrics.
type Hook interface {
	OnPublish(env Envelope, at time.Time)
}

// NoOpHook is the zero-cost default: its method does nothing and the
// compiler is free to inline it away entirely.
type NoOpHook struct{}

// OnPublish implements Hook by doing nothing.
func (NoOpHook) OnPublish(Envelope, time.Time) {}

// Multi fans a single publish observation out to every hook in the slice,
// in order. A nil or empty Multi behaves like NoOpHook. This lets more than
// one observer share the same dispatcher, e.g. a trace recorder running
// alongside a debug websocket broadcaster.
type Multi []Hook

// OnPublish implements Hook by invoking every member hook.
func (m Multi) OnPublish(env Envelope, at time.Time) {
	for _, h := range m {
		if h != nil {
			h.OnPublish(env, at)
		}
	}
}

// TickObserver is an extension a Hook implementation may optionally provide
// to also observe the dispatcher's scheduled ticks, independent of any
// envelope traffic they produce. The dispatcher checks for this interface
// via a type assertion rather than folding it into Hook itself, so that
// simple publish-only observers need not implement a no-op OnTick.
type TickObserver interface {
	OnTick(at time.Time)
}

// OnTick implements TickObserver for Multi by invoking every member hook
// that itself implements TickObserver, in order.
func (m Multi) OnTick(at time.Time) {
	for _, h := range m {
		if to, ok := h.(TickObserver); ok {
			to.OnTick(at)
		}
	}
}

var _ Hook = NoOpHook{}
var _ Hook = Multi(nil)
var _ TickObserver = Multi(nil)
