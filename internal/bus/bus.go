// Package bus implements the live MessageBus dispatcher: a single
// background goroutine that alternates between firing subscriber ticks on
// a monotonic schedule and draining envelopes from N priority lanes.
package bus

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abrahamvado/messagebus/internal/envelope"
	"github.com/abrahamvado/messagebus/internal/logging"
	"github.com/abrahamvado/messagebus/internal/subscriber"
)

// state tracks the Configuring -> Running -> Stopped lifecycle.
type state int32

const (
	stateConfiguring state = iota
	stateRunning
	stateStopped
)

// sentinelDestination never matches a registered subscriber name, so the
// shutdown sentinel envelope is always dropped silently by the delivery
// step's registry lookup. This mirrors the source's NopEnvelope convention.
const sentinelDestination = ""

// ErrAlreadyStarted is returned by Start when the bus has already been
// started. Calling Start twice is a programming error and fails loudly
// rather than silently handing back the first run's publishers.
var ErrAlreadyStarted = errors.New("bus: already started")

// Config controls dispatcher tuning: tick cadence, lane count, and the
// optional publish observer.
type Config struct {
	TickInterval time.Duration
	QueueCount   int
	Hook         envelope.Hook
	Logger       *logging.Logger
}

// Bus is the live, single-threaded message dispatcher.
type Bus struct {
	tickInterval time.Duration
	hook         envelope.Hook
	log          *logging.Logger

	registry subscriber.Registry
	lanes    *laneSet

	state    atomic.Int32
	shutdown atomic.Bool
	done     chan struct{}
	startMu  sync.Mutex
	started  bool
}

// New constructs a bus with the given tick interval and lane count. Lane
// count below one is normalized to one.
func New(tickInterval time.Duration, queueCount int) *Bus {
	return NewWithConfig(Config{TickInterval: tickInterval, QueueCount: queueCount})
}

// NewWithConfig constructs a bus with an explicit PublishHook and logger,
// the Go equivalent of the source's `with_hook` constructor.
func NewWithConfig(cfg Config) *Bus {
	hook := cfg.Hook
	if hook == nil {
		hook = envelope.NoOpHook{}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Bus{
		tickInterval: cfg.TickInterval,
		hook:         hook,
		log:          log,
		registry:     make(subscriber.Registry),
		lanes:        newLaneSet(cfg.QueueCount),
		done:         make(chan struct{}),
	}
}

// Subscribe registers a named subscriber. Legal only before Start; once the
// dispatch goroutine owns the registry, further subscriptions are ignored.
func (b *Bus) Subscribe(name string, sub subscriber.Subscriber) {
	if state(b.state.Load()) != stateConfiguring {
		b.log.Warn("subscribe called outside Configuring state, ignored", logging.String("name", name))
		return
	}
	b.registry[name] = sub
}

// Publisher is the external producer handle returned by Start, one per
// priority lane conceptually though in practice every handle can target any
// lane: priority is chosen per envelope, not per handle.
type Publisher struct {
	bus *Bus
}

// Publish enqueues env onto the lane matching env.Priority. Legal in both
// Configuring and Running states; a publisher never blocks on a full lane.
func (p *Publisher) Publish(env envelope.Envelope) {
	p.bus.Publish(env)
}

// Publish enqueues env directly on the bus without going through a
// Publisher handle. Both forms are equivalent; Publisher exists for callers
// that want a detachable handle rather than holding onto the bus itself.
func (b *Bus) Publish(env envelope.Envelope) {
	now := time.Now()
	b.hook.OnPublish(env, now)
	b.lanes.publish(env)
}

// Start transitions Configuring -> Running: it spawns the dispatch
// goroutine, which takes over the subscriber registry, and returns one
// Publisher handle per configured queue. Calling Start twice is a
// programming error and returns ErrAlreadyStarted rather than a second set
// of handles.
func (b *Bus) Start() ([]*Publisher, error) {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if b.started {
		return nil, ErrAlreadyStarted
	}
	if b.shutdown.Load() {
		return nil, errors.New("bus: stop already requested")
	}
	b.started = true
	b.state.Store(int32(stateRunning))

	handles := make([]*Publisher, b.lanes.count())
	for i := range handles {
		handles[i] = &Publisher{bus: b}
	}

	go b.run()
	return handles, nil
}

// Stop requests shutdown. It is monotonic and idempotent: a second call
// returns immediately without blocking again.
func (b *Bus) Stop() {
	if b.shutdown.Swap(true) {
		return
	}
	if state(b.state.Load()) != stateRunning {
		// Never started, or already stopped before Start: nothing to join.
		b.state.Store(int32(stateStopped))
		return
	}
	// Wake a dispatcher blocked in the selective wait by injecting the
	// sentinel on the highest-priority lane.
	b.lanes.publish(envelope.New(sentinelDestination, b.lanes.highestPriority(), nil))
	<-b.done
	b.state.Store(int32(stateStopped))
}

// run is the dispatch loop body, executed on the single background
// goroutine spawned by Start.
func (b *Bus) run() {
	defer close(b.done)

	names := b.registry.Names()
	startTime := time.Now()
	nextTick := startTime.Add(b.tickInterval)

	//1.- Fire the initial tick before anything is delivered, so every
	// subscriber sees a tick at time zero even with an empty backlog.
	b.fireTick(names, startTime)

	for {
		//2.- Bail out promptly once shutdown has been requested.
		if b.shutdown.Load() {
			return
		}

		//3.- Catch up on any ticks the wait below slept past.
		now := time.Now()
		if !now.Before(nextTick) {
			for !nextTick.After(time.Now()) {
				at := nextTick
				b.fireTick(names, at)
				nextTick = nextTick.Add(b.tickInterval)
			}
			continue
		}

		//4.- Compute the wait timeout, falling back on clock regression.
		timeout := nextTick.Sub(now)
		if timeout <= 0 {
			b.log.Warn("clock regression detected while computing tick wait; falling back to tick_interval")
			timeout = b.tickInterval
		}

		//5.- Poll the lanes highest-to-lowest without blocking first.
		env, ok := b.lanes.tryReceiveDescending()
		if !ok {
			//6.- Nothing queued; wait for a wake-up or the next tick,
			// whichever comes first.
			select {
			case <-b.lanes.wake:
				env, ok = b.lanes.tryReceiveDescending()
				if !ok {
					// Stale wake (the coalesced signal was left by an
					// envelope an earlier poll already took); loop back
					// to re-evaluate ticks.
					continue
				}
			case <-time.After(timeout):
				continue
			}
		}

		//7.- Deliver the envelope to its destination.
		b.deliver(env)
	}
}

// fireTick invokes Tick on every subscriber in the fixed registry order and
// enqueues every returned envelope, applying the publish hook first.
func (b *Bus) fireTick(names []string, at time.Time) {
	if observer, ok := b.hook.(envelope.TickObserver); ok {
		observer.OnTick(at)
	}
	for _, name := range names {
		sub := b.registry[name]
		for _, out := range sub.Tick(at) {
			b.Publish(out)
		}
	}
}

// LaneDepths reports the current backlog of each priority lane, lowest
// priority first, for observability consumers such as a trace recorder.
func (b *Bus) LaneDepths() []int {
	return b.lanes.depths()
}

// deliver looks up the envelope's destination and invokes Receive, dropping
// silently on a miss rather than treating an unknown destination as fatal.
func (b *Bus) deliver(env envelope.Envelope) {
	sub, ok := b.registry[env.Destination]
	if !ok {
		b.log.Debug("dropping envelope with unknown destination", logging.String("destination", env.Destination))
		return
	}
	at := time.Now()
	for _, out := range sub.Receive(env.Message, at) {
		b.Publish(out)
	}
}
