package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store reads and replaces the whole catalog document. There is no merge:
// callers that change the catalog submit the full document back.
type Store interface {
	Load(ctx context.Context) (*Catalog, error)
	Replace(ctx context.Context, c *Catalog) error
	Snapshot() *Catalog
}

// FileStore keeps the catalog in a single JSON file and an in-memory copy.
// Replace writes a temp file and renames it over the target, so a concurrent
// Load sees either the old or the new document.
type FileStore struct {
	path string

	mu      sync.RWMutex
	current *Catalog
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load reads and parses the document and refreshes the in-memory copy.
// On failure the in-memory copy is left untouched.
func (s *FileStore) Load(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StorageError{Op: "load", Path: s.path, Err: err}
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &StorageError{Op: "load", Path: s.path, Err: err}
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &StorageError{Op: "load", Path: s.path, Err: fmt.Errorf("parsing json: %w", err)}
	}
	if c.Categories == nil {
		c.Categories = []Category{}
	}

	s.mu.Lock()
	s.current = &c
	s.mu.Unlock()

	return c.Clone(), nil
}

// Replace validates c and overwrites the document. The previous content stays
// on disk and in memory if anything fails.
func (s *FileStore) Replace(ctx context.Context, c *Catalog) error {
	if err := Validate(c); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "replace", Path: s.path, Err: err}
	}

	next := c.Clone()
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return &StorageError{Op: "replace", Path: s.path, Err: err}
	}

	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return &StorageError{Op: "replace", Path: s.path, Err: err}
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of the last loaded or replaced catalog.
func (s *FileStore) Snapshot() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// EnsureExists writes an empty catalog when the document is missing.
func (s *FileStore) EnsureExists(ctx context.Context) error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Op: "load", Path: s.path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &StorageError{Op: "replace", Path: s.path, Err: err}
	}
	return s.Replace(ctx, &Catalog{Categories: []Category{}})
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

var _ Store = (*FileStore)(nil)
