package envelope

import (
	"testing"
	"time"
)

func TestNewClampsNegativePriorityToZero(t *testing.T) {
	env := New("ping", -3, "hello")
	if env.Priority != 0 {
		t.Fatalf("expected clamped priority 0, got %d", env.Priority)
	}
	if env.Destination != "ping" || env.Message != "hello" {
		t.Fatalf("unexpected envelope fields: %+v", env)
	}
}

func TestNewPreservesNonNegativePriority(t *testing.T) {
	env := New("ping", 5, "hello")
	if env.Priority != 5 {
		t.Fatalf("expected priority 5, got %d", env.Priority)
	}
}

type recordingHook struct {
	envs []Envelope
	ats  []time.Time
}

func (r *recordingHook) OnPublish(env Envelope, at time.Time) {
	r.envs = append(r.envs, env)
	r.ats = append(r.ats, at)
}

type tickRecordingHook struct {
	recordingHook
	ticks []time.Time
}

func (r *tickRecordingHook) OnTick(at time.Time) {
	r.ticks = append(r.ticks, at)
}

func TestNoOpHookDoesNothing(t *testing.T) {
	var h Hook = NoOpHook{}
	h.OnPublish(New("ping", 0, nil), time.Now())
}

func TestMultiFansOutToEveryHookInOrder(t *testing.T) {
	first := &recordingHook{}
	second := &recordingHook{}
	multi := Multi{first, second}

	env := New("ping", 1, "hello")
	at := time.Unix(0, 0)
	multi.OnPublish(env, at)

	if len(first.envs) != 1 || len(second.envs) != 1 {
		t.Fatalf("expected both hooks to observe the publish")
	}
	if first.envs[0].Destination != "ping" || second.envs[0].Destination != "ping" {
		t.Fatalf("unexpected envelope forwarded to hooks")
	}

	var seen []string
	Multi{orderHook{"first", &seen}, orderHook{"second", &seen}}.OnPublish(env, at)
	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Fatalf("expected hooks invoked in slice order, got %v", seen)
	}
}

// orderHook appends its name to a shared slice so tests can observe the
// order in which Multi invokes its members.
type orderHook struct {
	name string
	seen *[]string
}

func (o orderHook) OnPublish(Envelope, time.Time) { *o.seen = append(*o.seen, o.name) }

func TestMultiSkipsNilHooks(t *testing.T) {
	multi := Multi{nil, &recordingHook{}}
	// Must not panic on the nil member.
	multi.OnPublish(New("ping", 0, nil), time.Now())
}

func TestMultiOnTickOnlyInvokesTickObservers(t *testing.T) {
	plain := &recordingHook{}
	withTick := &tickRecordingHook{}
	multi := Multi{plain, withTick}

	at := time.Unix(0, 0)
	multi.OnTick(at)

	if len(withTick.ticks) != 1 {
		t.Fatalf("expected tick observer to record one tick, got %d", len(withTick.ticks))
	}
}
