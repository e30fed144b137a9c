package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brunobiangulo/gocvot/graph"
	"github.com/brunobiangulo/gocvot/session"
)

// ErrNotFound is returned when a required input file does not exist.
var ErrNotFound = errors.New("store: file not found")

// WriteJSONAtomic encodes v as indented JSON and replaces path atomically:
// the data is written to a temporary file in the same directory, synced,
// and renamed over path. Readers see either the old or the new file.
func WriteJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	// CreateTemp uses 0600.
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return fmt.Errorf("setting file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes the JSON file at path into v. A missing file yields an
// error wrapping ErrNotFound.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// SessionFile persists the ordered session record list as one JSON array.
type SessionFile struct {
	Path string
}

// Load reads the record list. A missing file wraps ErrNotFound.
func (f SessionFile) Load(ctx context.Context) ([]session.Record, error) {
	var records []session.Record
	if err := ReadJSON(f.Path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// SaveSessions rewrites the full record list atomically.
func (f SessionFile) SaveSessions(ctx context.Context, records []session.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []session.Record{}
	}
	return WriteJSONAtomic(f.Path, records)
}

// LoadGraph reads a CVOT snapshot. A missing file wraps ErrNotFound.
func LoadGraph(path string) (*graph.Graph, error) {
	var g graph.Graph
	if err := ReadJSON(path, &g); err != nil {
		return nil, err
	}
	if g.Nodes == nil {
		g.Nodes = map[string][]graph.Node{}
	}
	if g.Edges == nil {
		g.Edges = map[string][]graph.Edge{}
	}
	return &g, nil
}

// SaveGraph writes a CVOT snapshot atomically.
func SaveGraph(path string, g *graph.Graph) error {
	return WriteJSONAtomic(path, g)
}
