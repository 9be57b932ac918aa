package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriterAppendAndLoadRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	base := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }

	//1.- Open a writer and confirm the manifest records the default
	// snapshot cadence before anything is appended.
	writer, manifest, err := NewWriter(tmp, "Ping Pong Bus", 4, 500*time.Millisecond, clock)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	if manifest.SnapshotMs != 200 {
		t.Fatalf("expected snapshot interval 200ms, got %d", manifest.SnapshotMs)
	}

	//2.- Append one publish and one tick, each with its own lane-depth
	// snapshot, to exercise both streams.
	if err := writer.AppendPublish(1, now, "ping", 3, "string"); err != nil {
		t.Fatalf("append publish: %v", err)
	}
	if err := writer.AppendSnapshot(1, now, []int{0, 0, 0, 1}); err != nil {
		t.Fatalf("append snapshot: %v", err)
	}

	now = now.Add(250 * time.Millisecond)
	if err := writer.AppendTick(2, now); err != nil {
		t.Fatalf("append tick: %v", err)
	}
	if err := writer.AppendSnapshot(2, now, []int{0, 0, 0, 0}); err != nil {
		t.Fatalf("append snapshot: %v", err)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	//3.- Read the manifest back off disk directly, bypassing Load, to
	// confirm NewWriter wrote the expected stream filenames.
	manifestBytes, err := os.ReadFile(filepath.Join(writer.Directory(), "manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var onDisk Manifest
	if err := json.Unmarshal(manifestBytes, &onDisk); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if onDisk.EventsPath != "events.jsonl.sz" || onDisk.SnapshotsPath != "snapshots.bin.zst" {
		t.Fatalf("unexpected manifest paths: %+v", onDisk)
	}

	//4.- Load the whole bundle back and verify header, entries, and
	// snapshots all round-trip.
	loader, err := Load(writer.Directory())
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}

	header := loader.Header()
	if header.BusID != "Ping Pong Bus" {
		t.Fatalf("unexpected header bus id: %q", header.BusID)
	}
	if header.QueueCount != 4 {
		t.Fatalf("unexpected header queue count: %d", header.QueueCount)
	}
	if header.TickIntervalMs != 500 {
		t.Fatalf("unexpected header tick interval: %d", header.TickIntervalMs)
	}

	entries := loader.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != EventPublish || entries[0].Destination != "ping" || entries[0].Priority != 3 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Kind != EventTick {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}

	snapshots := loader.Snapshots()
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots))
	}
	if snapshots[0].Depths[3] != 1 {
		t.Fatalf("unexpected first snapshot depths: %v", snapshots[0].Depths)
	}
	if snapshots[1].Depths[3] != 0 {
		t.Fatalf("unexpected second snapshot depths: %v", snapshots[1].Depths)
	}
}

func TestWriterRejectsEmptyRoot(t *testing.T) {
	if _, _, err := NewWriter("", "bus", 1, time.Second, nil); err == nil {
		t.Fatal("expected error for empty trace root")
	}
}
