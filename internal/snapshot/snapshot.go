// Package snapshot persists versioned cache blobs as zstd-compressed JSON.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrNotFound is returned by Load when no snapshot file exists yet.
	ErrNotFound = errors.New("snapshot: not found")
	// ErrCorrupt is returned by Load when the file cannot be decoded or has the wrong kind.
	ErrCorrupt = errors.New("snapshot: corrupt")
)

type envelope struct {
	Kind    string          `json:"kind"`
	Schema  int             `json:"schema"`
	SavedAt time.Time       `json:"saved_at"`
	Payload json.RawMessage `json:"payload"`
}

// Meta describes a loaded snapshot.
type Meta struct {
	Schema  int
	SavedAt time.Time
}

// Store reads and writes a single snapshot file of one kind.
type Store struct {
	Path string
	Kind string
	Now  func() time.Time
}

// NewStore creates a store for the given file and payload kind.
func NewStore(path, kind string) *Store {
	return &Store{Path: path, Kind: kind, Now: time.Now}
}

// Load decodes the snapshot payload into v.
func (s *Store) Load(v any) (Meta, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, ErrNotFound
		}
		return Meta{}, fmt.Errorf("read snapshot: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Meta{}, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	data, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Meta{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Kind != s.Kind {
		return Meta{}, fmt.Errorf("%w: kind %q, want %q", ErrCorrupt, env.Kind, s.Kind)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return Meta{}, fmt.Errorf("%w: payload: %v", ErrCorrupt, err)
	}
	return Meta{Schema: env.Schema, SavedAt: env.SavedAt}, nil
}

// Save replaces the snapshot atomically: the blob is written to a temp file in
// the same directory, synced, then renamed over the target.
func (s *Store) Save(schema int, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	data, err := json.Marshal(envelope{Kind: s.Kind, Schema: schema, SavedAt: s.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	compressed := enc.EncodeAll(data, nil)
	enc.Close()

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
