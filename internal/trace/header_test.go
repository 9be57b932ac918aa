package trace

import (
	"path/filepath"
	"testing"
)

func TestWriteAndReadHeader(t *testing.T) {
	dir := t.TempDir()
	header := Header{
		SchemaVersion:  HeaderSchemaVersion,
		BusID:          "bus-9",
		QueueCount:     4,
		TickIntervalMs: 500,
		FilePointer:    "manifest.json",
	}
	path := filepath.Join(dir, "header.json")
	if err := WriteHeader(path, header); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	loaded, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if loaded.SchemaVersion != header.SchemaVersion || loaded.BusID != header.BusID {
		t.Fatalf("unexpected header values: %+v", loaded)
	}
	if loaded.QueueCount != 4 || loaded.TickIntervalMs != 500 {
		t.Fatalf("unexpected header tuning values: %+v", loaded)
	}
}

func TestHeaderValidateRejectsZeroQueueCount(t *testing.T) {
	header := Header{SchemaVersion: 1, BusID: "bus", QueueCount: 0, FilePointer: "manifest.json"}
	if err := header.Validate(); err == nil {
		t.Fatal("expected validation error for zero queue count")
	}
}

func TestHeaderValidateRejectsEmptyFilePointer(t *testing.T) {
	header := Header{SchemaVersion: 1, BusID: "bus", QueueCount: 1}
	if err := header.Validate(); err == nil {
		t.Fatal("expected validation error for empty file pointer")
	}
}
