package trace

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/abrahamvado/messagebus/internal/envelope"
	"github.com/abrahamvado/messagebus/internal/logging"
)

// Stats summarises recorder health for debug endpoints.
type Stats struct {
	EventsWritten    int64
	SnapshotsWritten int64
	LastError        error
}

// DepthsFunc reports the current backlog of every priority lane. bus.Bus
// satisfies this via its LaneDepths method.
type DepthsFunc func() []int

// Recorder implements envelope.Hook and envelope.TickObserver, streaming
// every publish and tick observation to a Writer, plus a periodic
// lane-depth snapshot taken at every tick. It never blocks or mutates the
// envelope it observes, satisfying the Hook contract even if the
// underlying writer is slow or briefly erroring.
type Recorder struct {
	writer *Writer
	depths DepthsFunc
	log    *logging.Logger

	seq       atomic.Uint64
	events    atomic.Int64
	snapshots atomic.Int64
}

// NewRecorder wraps writer, recording every observation it receives.
// depths may be nil, in which case no lane-depth snapshots are taken.
func NewRecorder(writer *Writer, depths DepthsFunc, log *logging.Logger) *Recorder {
	if log == nil {
		log = logging.NewTestLogger()
	}
	return &Recorder{writer: writer, depths: depths, log: log}
}

// OnPublish implements envelope.Hook.
func (r *Recorder) OnPublish(env envelope.Envelope, at time.Time) {
	if r == nil || r.writer == nil {
		return
	}
	seq := r.seq.Add(1)
	messageType := fmt.Sprintf("%T", env.Message)
	if err := r.writer.AppendPublish(seq, at, env.Destination, env.Priority, messageType); err != nil {
		r.log.Warn("trace recorder failed to append publish event", logging.Error(err))
		return
	}
	r.events.Add(1)
}

// OnTick implements envelope.TickObserver: it records the tick and, when a
// depths function was supplied, a matching lane-depth snapshot.
func (r *Recorder) OnTick(at time.Time) {
	if r == nil || r.writer == nil {
		return
	}
	seq := r.seq.Add(1)
	if err := r.writer.AppendTick(seq, at); err != nil {
		r.log.Warn("trace recorder failed to append tick event", logging.Error(err))
		return
	}
	r.events.Add(1)

	if r.depths == nil {
		return
	}
	if err := r.writer.AppendSnapshot(seq, at, r.depths()); err != nil {
		r.log.Warn("trace recorder failed to append snapshot", logging.Error(err))
		return
	}
	r.snapshots.Add(1)
}

// Close flushes and closes the underlying writer.
func (r *Recorder) Close() error {
	if r == nil || r.writer == nil {
		return nil
	}
	return r.writer.Close()
}

// Snapshot reports recorder health counters for debug endpoints.
func (r *Recorder) Snapshot() Stats {
	if r == nil {
		return Stats{}
	}
	return Stats{
		EventsWritten:    r.events.Load(),
		SnapshotsWritten: r.snapshots.Load(),
	}
}

var (
	_ envelope.Hook         = (*Recorder)(nil)
	_ envelope.TickObserver = (*Recorder)(nil)
)
