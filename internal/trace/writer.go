// Package trace records everything a PublishHook observes on a live bus —
// every envelope published and every tick fired — to a compressed bundle on
// disk, so a run can later be compared tick-for-tick against a Simulator
// replay of the same script.
package trace

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

var busIDCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// snapshotInterval bounds how often lane-depth snapshots are flushed to the
// zstd stream, independent of how often events arrive.
const snapshotInterval = 200 * time.Millisecond

// EventKind tags a recorded line as a publish or a tick observation.
type EventKind string

const (
	// EventPublish records a single envelope handed to the hook.
	EventPublish EventKind = "publish"
	// EventTick records one firing of the dispatcher's tick schedule.
	EventTick EventKind = "tick"
)

// snapshotBlob stages a lane-depth snapshot before it is persisted to the
// zstd stream.
type snapshotBlob struct {
	Seq    uint64
	At     time.Time
	Depths []int
}

// Manifest describes the trace bundle layout so loaders and catalog tooling
// can locate its artefacts without parsing file names.
type Manifest struct {
	Version         int    `json:"version"`
	CreatedAt       string `json:"created_at"`
	SnapshotMs      int    `json:"snapshot_interval_ms"`
	EventsPath      string `json:"events_path"`
	SnapshotsPath   string `json:"snapshots_path"`
}

// Writer streams a running bus's publish and tick observations to disk: a
// snappy-compressed JSONL event log for every publish/tick, and a
// zstd-compressed binary stream of periodic lane-depth snapshots.
type Writer struct {
	mu             sync.Mutex
	dir            string
	now            func() time.Time
	eventFile      *os.File
	eventStream    *snappy.Writer
	snapshotFile   *os.File
	snapshotStream *zstd.Encoder
	pending        []snapshotBlob
	lastFlush      time.Time
	headerBusID    string
	headerQueues   int
	headerTickMs   int64
}

// NewWriter prepares the trace directory and opens compressed sinks for a
// run identified by busID (typically a configured name or run UUID).
func NewWriter(root, busID string, queueCount int, tickInterval time.Duration, clock func() time.Time) (*Writer, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("trace root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := busIDCleaner.ReplaceAllString(busID, "")
	if cleaned == "" {
		cleaned = "bus"
	}
	created := clock().UTC()
	folder := fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z"))
	path := filepath.Join(root, folder)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, Manifest{}, err
	}

	eventsPath := filepath.Join(path, "events.jsonl.sz")
	snapshotsPath := filepath.Join(path, "snapshots.bin.zst")
	manifestPath := filepath.Join(path, "manifest.json")

	eventFile, err := os.Create(eventsPath)
	if err != nil {
		return nil, Manifest{}, err
	}
	eventStream := snappy.NewBufferedWriter(eventFile)

	snapshotFile, err := os.Create(snapshotsPath)
	if err != nil {
		eventFile.Close()
		return nil, Manifest{}, err
	}
	snapshotStream, err := zstd.NewWriter(snapshotFile)
	if err != nil {
		eventStream.Close()
		eventFile.Close()
		snapshotFile.Close()
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:       1,
		CreatedAt:     created.Format(time.RFC3339Nano),
		SnapshotMs:    int(snapshotInterval / time.Millisecond),
		EventsPath:    "events.jsonl.sz",
		SnapshotsPath: "snapshots.bin.zst",
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		snapshotStream.Close()
		snapshotFile.Close()
		eventStream.Close()
		eventFile.Close()
		return nil, Manifest{}, err
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		snapshotStream.Close()
		snapshotFile.Close()
		eventStream.Close()
		eventFile.Close()
		return nil, Manifest{}, err
	}

	writer := &Writer{
		dir:            path,
		now:            clock,
		eventFile:      eventFile,
		eventStream:    eventStream,
		snapshotFile:   snapshotFile,
		snapshotStream: snapshotStream,
		headerBusID:    busID,
		headerQueues:   queueCount,
		headerTickMs:   tickInterval.Milliseconds(),
	}

	return writer, manifest, nil
}

// Directory exposes the directory backing the trace bundle.
func (w *Writer) Directory() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// AppendPublish writes a single JSON event line recording an envelope
// publish observation.
func (w *Writer) AppendPublish(seq uint64, at time.Time, destination string, priority int, messageType string) error {
	return w.appendEvent(seq, at, EventPublish, destination, priority, messageType)
}

// AppendTick writes a single JSON event line recording a tick firing.
func (w *Writer) AppendTick(seq uint64, at time.Time) error {
	return w.appendEvent(seq, at, EventTick, "", 0, "")
}

func (w *Writer) appendEvent(seq uint64, at time.Time, kind EventKind, destination string, priority int, messageType string) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}

	record := struct {
		Seq         uint64 `json:"seq"`
		At          string `json:"at"`
		Kind        string `json:"kind"`
		Destination string `json:"destination,omitempty"`
		Priority    int    `json:"priority,omitempty"`
		MessageType string `json:"message_type,omitempty"`
	}{
		Seq:         seq,
		At:          at.UTC().Format(time.RFC3339Nano),
		Kind:        string(kind),
		Destination: destination,
		Priority:    priority,
		MessageType: messageType,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.eventStream.Write(line); err != nil {
		return err
	}
	if _, err := w.eventStream.Write([]byte("\n")); err != nil {
		return err
	}
	return w.eventStream.Flush()
}

// AppendSnapshot buffers a lane-depth snapshot until the cadence interval is
// reached, then flushes every buffered snapshot to the zstd stream.
func (w *Writer) AppendSnapshot(seq uint64, at time.Time, depths []int) error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	clone := append([]int(nil), depths...)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, snapshotBlob{Seq: seq, At: at.UTC(), Depths: clone})
	if w.lastFlush.IsZero() {
		w.lastFlush = at
		return nil
	}
	if at.Sub(w.lastFlush) >= snapshotInterval {
		if err := w.flushLocked(); err != nil {
			return err
		}
		w.lastFlush = at
	}
	return nil
}

// Flush forces pending snapshots to be written regardless of cadence.
func (w *Writer) Flush() error {
	if w == nil {
		return fmt.Errorf("writer not initialised")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushLocked(); err != nil {
		return err
	}
	w.lastFlush = w.now().UTC()
	return nil
}

// Close flushes every buffer, writes the header, and releases file handles.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	headerPath := filepath.Join(w.dir, "header.json")
	header := Header{
		SchemaVersion:  HeaderSchemaVersion,
		BusID:          w.headerBusID,
		QueueCount:     w.headerQueues,
		TickIntervalMs: w.headerTickMs,
		FilePointer:    "manifest.json",
	}
	if err := WriteHeader(headerPath, header); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.flushLocked(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.eventStream.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.eventStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.eventFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.snapshotStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.snapshotFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// flushLocked writes buffered snapshots to the zstd stream; callers must
// hold the mutex.
func (w *Writer) flushLocked() error {
	if len(w.pending) == 0 {
		return nil
	}
	for _, snap := range w.pending {
		header := make([]byte, 8+8+4)
		binary.LittleEndian.PutUint64(header[0:8], snap.Seq)
		binary.LittleEndian.PutUint64(header[8:16], uint64(snap.At.UnixNano()))
		binary.LittleEndian.PutUint32(header[16:20], uint32(len(snap.Depths)))
		if _, err := w.snapshotStream.Write(header); err != nil {
			return err
		}
		for _, depth := range snap.Depths {
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, uint32(depth))
			if _, err := w.snapshotStream.Write(buf); err != nil {
				return err
			}
		}
	}
	w.pending = w.pending[:0]
	return nil
}
