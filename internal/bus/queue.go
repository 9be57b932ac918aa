package bus

import (
	"sync"

	"github.com/abrahamvado/messagebus/internal/envelope"
)

// lane is a single unbounded FIFO priority queue. It is implemented as a
// mutex-guarded slice rather than a fixed buffered channel, so publish()
// never blocks and never drops regardless of how far the dispatcher falls
// behind.
type lane struct {
	mu    sync.Mutex
	items []envelope.Envelope
}

// push appends an envelope to the tail of the lane.
func (l *lane) push(env envelope.Envelope) {
	l.mu.Lock()
	l.items = append(l.items, env)
	l.mu.Unlock()
}

// tryPop removes and returns the oldest envelope, if any.
func (l *lane) tryPop() (envelope.Envelope, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return envelope.Envelope{}, false
	}
	env := l.items[0]
	l.items[0] = envelope.Envelope{}
	l.items = l.items[1:]
	return env, true
}

// laneSet is the ordered sequence of N unbounded FIFO lanes backing the
// priority queues, plus the single coalescing wake channel the dispatcher
// blocks on between polls. Index 0 is lowest priority, len-1 is highest.
type laneSet struct {
	lanes []*lane
	wake  chan struct{}
}

// newLaneSet allocates count lanes, clamped to at least one: a request for
// zero lanes is normalized to one rather than rejected.
func newLaneSet(count int) *laneSet {
	if count < 1 {
		count = 1
	}
	lanes := make([]*lane, count)
	for i := range lanes {
		lanes[i] = &lane{}
	}
	return &laneSet{lanes: lanes, wake: make(chan struct{}, 1)}
}

// count returns the number of priority lanes.
func (s *laneSet) count() int {
	return len(s.lanes)
}

// indexFor clamps a requested priority into a valid lane index, saturating
// at the highest lane: priorities exceeding the configured queue count
// collapse onto the top queue rather than being rejected.
func (s *laneSet) indexFor(priority int) int {
	if priority < 0 {
		priority = 0
	}
	if priority >= len(s.lanes) {
		return len(s.lanes) - 1
	}
	return priority
}

// publish enqueues env onto the lane matching its priority and wakes a
// dispatcher blocked in the selective wait. wake is a coalescing signal
// (capacity 1): the dispatcher always re-polls every lane after waking, so
// a dropped duplicate signal never loses an envelope.
func (s *laneSet) publish(env envelope.Envelope) {
	s.lanes[s.indexFor(env.Priority)].push(env)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// tryReceiveDescending performs the non-blocking priority poll: try lanes
// from highest to lowest, returning the first envelope found.
func (s *laneSet) tryReceiveDescending() (envelope.Envelope, bool) {
	for i := len(s.lanes) - 1; i >= 0; i-- {
		if env, ok := s.lanes[i].tryPop(); ok {
			return env, true
		}
	}
	return envelope.Envelope{}, false
}

// highestPriority returns the priority value that maps to the top lane,
// the one the shutdown sentinel is injected onto so it is always found
// first by the priority poll.
func (s *laneSet) highestPriority() int {
	return len(s.lanes) - 1
}

// depths reports the current backlog of each lane, index 0 lowest priority,
// for observability consumers such as a trace recorder's periodic
// snapshots. The result is a snapshot taken under lock per lane; it is not
// atomic across lanes.
func (s *laneSet) depths() []int {
	out := make([]int, len(s.lanes))
	for i, l := range s.lanes {
		l.mu.Lock()
		out[i] = len(l.items)
		l.mu.Unlock()
	}
	return out
}
