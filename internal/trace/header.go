package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HeaderSchemaVersion tracks the schema version for trace bundle headers.
const HeaderSchemaVersion = 1

// Header describes the bus configuration a trace bundle was recorded
// against, persisted alongside the compressed event and snapshot streams so
// tooling can replay a bundle without guessing at lane layout.
type Header struct {
	SchemaVersion  int    `json:"schema_version"`
	BusID          string `json:"bus_id"`
	QueueCount     int    `json:"queue_count"`
	TickIntervalMs int64  `json:"tick_interval_ms"`
	FilePointer    string `json:"file_pointer"`
}

// Validate ensures the header carries enough information for catalog
// tooling to locate and interpret the trace bundle.
func (h Header) Validate() error {
	if h.SchemaVersion <= 0 {
		return fmt.Errorf("schema_version must be positive")
	}
	if h.QueueCount <= 0 {
		return fmt.Errorf("queue_count must be positive")
	}
	if strings.TrimSpace(h.FilePointer) == "" {
		return fmt.Errorf("file_pointer must not be empty")
	}
	return nil
}

// WriteHeader persists the supplied header to the provided file path.
func WriteHeader(path string, header Header) error {
	if err := header.Validate(); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(header, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

// ReadHeader loads and decodes a trace bundle header from disk.
func ReadHeader(path string) (Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Header{}, err
	}
	var header Header
	if err := json.Unmarshal(data, &header); err != nil {
		return Header{}, err
	}
	if err := header.Validate(); err != nil {
		return Header{}, err
	}
	return header, nil
}
