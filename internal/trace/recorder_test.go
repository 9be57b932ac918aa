package trace

import (
	"testing"
	"time"

	"github.com/abrahamvado/messagebus/internal/envelope"
)

func TestRecorderRecordsPublishAndTickWithSnapshots(t *testing.T) {
	tmp := t.TempDir()
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)

	writer, _, err := NewWriter(tmp, "bus", 2, 100*time.Millisecond, func() time.Time { return now })
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}

	depthCalls := 0
	depths := func() []int {
		depthCalls++
		return []int{depthCalls, 0}
	}

	rec := NewRecorder(writer, depths, nil)

	//1.- A publish carries no lane-depth snapshot of its own.
	rec.OnPublish(envelope.New("ping", 1, "hello"), now)
	//2.- A tick does, and should be the only thing that queries depths.
	rec.OnTick(now.Add(100 * time.Millisecond))

	if err := rec.Close(); err != nil {
		t.Fatalf("close recorder: %v", err)
	}

	loader, err := Load(writer.Directory())
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}

	entries := loader.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != EventPublish || entries[0].Destination != "ping" {
		t.Fatalf("unexpected publish entry: %+v", entries[0])
	}
	if entries[1].Kind != EventTick {
		t.Fatalf("unexpected tick entry: %+v", entries[1])
	}

	snapshots := loader.Snapshots()
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot (tick only), got %d", len(snapshots))
	}
	if depthCalls != 1 {
		t.Fatalf("expected depths to be queried once, got %d", depthCalls)
	}

	stats := rec.Snapshot()
	if stats.EventsWritten != 2 {
		t.Fatalf("expected 2 events written, got %d", stats.EventsWritten)
	}
	if stats.SnapshotsWritten != 1 {
		t.Fatalf("expected 1 snapshot written, got %d", stats.SnapshotsWritten)
	}
}

func TestRecorderNilWriterIsSafe(t *testing.T) {
	rec := NewRecorder(nil, nil, nil)
	rec.OnPublish(envelope.New("ping", 0, nil), time.Now())
	rec.OnTick(time.Now())
	if err := rec.Close(); err != nil {
		t.Fatalf("expected nil-safe close, got %v", err)
	}
}
