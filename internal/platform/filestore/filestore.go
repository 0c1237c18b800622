// Package filestore implements the task record store on a directory of
// flat JSON files, one file per task. It suits single-node deployments
// that need persistence without an external datastore.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nexusdata/nexusdata/internal/store"
)

const recordExt = ".json"

// FileTaskStore is a store.TaskStore persisting each record as
// <dir>/<task_id>.json. A process-wide mutex serializes mutations; the
// admission path and the dispatcher never race on the same key, so
// coarse locking costs nothing observable.
type FileTaskStore struct {
	mu  sync.Mutex
	dir string
}

// New creates the backing directory if needed and returns the store.
func New(dir string) (*FileTaskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &FileTaskStore{dir: dir}, nil
}

func (s *FileTaskStore) path(taskID string) string {
	return filepath.Join(s.dir, taskID+recordExt)
}

// Create persists a new record, refusing to overwrite an existing one.
func (s *FileTaskStore) Create(ctx context.Context, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(rec.TaskID)
	if _, err := os.Stat(path); err == nil {
		return store.ErrDuplicate
	}
	return s.write(path, rec)
}

// Get retrieves a record by task identifier.
func (s *FileTaskStore) Get(ctx context.Context, taskID string) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(taskID)
}

// Update applies a change set with a read-modify-write under the lock.
func (s *FileTaskStore) Update(ctx context.Context, taskID string, changes store.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(taskID)
	if err != nil {
		return err
	}
	if err := rec.Apply(changes); err != nil {
		return err
	}
	return s.write(s.path(taskID), rec)
}

// Delete removes a record file.
func (s *FileTaskStore) Delete(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(taskID))
	if errors.Is(err, fs.ErrNotExist) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", taskID, err)
	}
	return nil
}

// DeleteOlderThan purges records created before the cutoff. Files that no
// longer decode are removed as well; a corrupt record has no other way
// out of the store.
func (s *FileTaskStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list store directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		taskID := strings.TrimSuffix(entry.Name(), recordExt)

		rec, err := s.read(taskID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			if rmErr := os.Remove(s.path(taskID)); rmErr == nil {
				deleted++
			}
			continue
		}
		if err != nil {
			continue
		}
		if rec.CreatedAt.Before(cutoff) {
			if rmErr := os.Remove(s.path(taskID)); rmErr == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

func (s *FileTaskStore) read(taskID string) (*store.Record, error) {
	blob, err := os.ReadFile(s.path(taskID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", taskID, err)
	}

	var rec store.Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", taskID, err)
	}
	return &rec, nil
}

func (s *FileTaskStore) write(path string, rec *store.Record) error {
	blob, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	// Write-then-rename keeps a crashed write from leaving a truncated
	// record behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize record write: %w", err)
	}
	return nil
}
