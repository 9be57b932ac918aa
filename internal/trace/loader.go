package trace

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Entry is a single rehydrated observation from a trace bundle: either a
// publish (Kind == EventPublish) or a tick (Kind == EventTick).
type Entry struct {
	Seq         uint64
	At          time.Time
	Kind        EventKind
	Destination string
	Priority    int
	MessageType string
}

// Snapshot is a single rehydrated lane-depth observation.
type Snapshot struct {
	Seq    uint64
	At     time.Time
	Depths []int
}

// Loader rehydrates a compressed trace bundle for offline inspection or for
// feeding a Simulator replay to check it against the recorded run.
type Loader struct {
	header    Header
	entries   []Entry
	snapshots []Snapshot
}

// Load reads the header, event log, and snapshot stream from a trace bundle
// directory produced by Writer.
func Load(dir string) (*Loader, error) {
	if dir == "" {
		return nil, fmt.Errorf("trace directory must be provided")
	}

	header, err := ReadHeader(dir + "/header.json")
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	entries, err := loadEvents(dir + "/events.jsonl.sz")
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	snapshots, err := loadSnapshots(dir + "/snapshots.bin.zst")
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Seq < snapshots[j].Seq })

	return &Loader{header: header, entries: entries, snapshots: snapshots}, nil
}

func loadEvents(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := snappy.NewReader(file)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []Entry
	for scanner.Scan() {
		var record struct {
			Seq         uint64 `json:"seq"`
			At          string `json:"at"`
			Kind        string `json:"kind"`
			Destination string `json:"destination"`
			Priority    int    `json:"priority"`
			MessageType string `json:"message_type"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, err
		}
		at, err := time.Parse(time.RFC3339Nano, record.At)
		if err != nil {
			return nil, fmt.Errorf("parse event at: %w", err)
		}
		entries = append(entries, Entry{
			Seq:         record.Seq,
			At:          at,
			Kind:        EventKind(record.Kind),
			Destination: record.Destination,
			Priority:    record.Priority,
			MessageType: record.MessageType,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func loadSnapshots(path string) ([]Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var snapshots []Snapshot
	header := make([]byte, 8+8+4)
	for {
		if _, err := io.ReadFull(reader, header); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		seq := binary.LittleEndian.Uint64(header[0:8])
		nanos := binary.LittleEndian.Uint64(header[8:16])
		count := binary.LittleEndian.Uint32(header[16:20])

		depths := make([]int, count)
		buf := make([]byte, 4)
		for i := range depths {
			if _, err := io.ReadFull(reader, buf); err != nil {
				return nil, err
			}
			depths[i] = int(binary.LittleEndian.Uint32(buf))
		}
		snapshots = append(snapshots, Snapshot{
			Seq:    seq,
			At:     time.Unix(0, int64(nanos)).UTC(),
			Depths: depths,
		})
	}
	return snapshots, nil
}

// Header exposes the bus configuration the bundle was recorded against.
func (l *Loader) Header() Header {
	if l == nil {
		return Header{}
	}
	return l.header
}

// Entries exposes a defensive copy of the rehydrated publish/tick timeline,
// ordered by sequence number.
func (l *Loader) Entries() []Entry {
	if l == nil {
		return nil
	}
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Snapshots exposes a defensive copy of the rehydrated lane-depth timeline,
// ordered by sequence number.
func (l *Loader) Snapshots() []Snapshot {
	if l == nil {
		return nil
	}
	out := make([]Snapshot, len(l.snapshots))
	copy(out, l.snapshots)
	return out
}
