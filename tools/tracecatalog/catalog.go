// Package tracecatalog walks a directory tree of recorded bus traces and
// indexes their headers, so an operator can find which bundle corresponds
// to a given run without opening each one.
package tracecatalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abrahamvado/messagebus/internal/trace"
)

// Entry captures a trace header alongside its resolved bundle directory.
type Entry struct {
	HeaderPath string       `json:"header_path"`
	BundleDir  string       `json:"bundle_dir"`
	Header     trace.Header `json:"header"`
}

// List walks the directory tree and returns parsed trace headers.
func List(root string) ([]Entry, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root directory must be provided")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root must be a directory")
	}

	var entries []Entry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != "header.json" {
			return nil
		}
		header, err := trace.ReadHeader(path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			HeaderPath: path,
			BundleDir:  filepath.Dir(path),
			Header:     header,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Header.BusID == entries[j].Header.BusID {
			return entries[i].BundleDir < entries[j].BundleDir
		}
		return entries[i].Header.BusID < entries[j].Header.BusID
	})
	return entries, nil
}

// MarshalEntries produces a stable JSON representation of the entries for
// CLI output.
func MarshalEntries(entries []Entry) ([]byte, error) {
	return json.MarshalIndent(entries, "", "  ")
}
