// Package jsonstore persists collection snapshots as one JSON array per
// file, the layout older tooling still reads.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DecodeCollection reads one collection snapshot, a single JSON array of
// records. Import uploads and on-disk snapshots share this format.
func DecodeCollection[T any](r io.Reader) ([]T, error) {
	var records []T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	return records, nil
}

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// Save writes the collection atomically via a temp file and rename, so a
// crash mid-write never leaves a truncated snapshot behind.
func (s *Store) Save(collection string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", collection, err)
	}

	tmp, err := os.CreateTemp(s.dir, collection+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s snapshot: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(collection)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s snapshot: %w", collection, err)
	}

	return nil
}

// Load reads a collection snapshot into v. A missing file is not an error,
// v is simply left untouched.
func (s *Store) Load(collection string, v any) error {
	data, err := os.ReadFile(s.path(collection))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s snapshot: %w", collection, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s snapshot: %w", collection, err)
	}
	return nil
}
