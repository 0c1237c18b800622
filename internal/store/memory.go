package store

import (
	"context"
	"sync"
	"time"
)

// MemoryTaskStore is a mutex-guarded in-process TaskStore. It backs the
// default single-node deployment and the test suites; the durable backends
// live in internal/platform.
type MemoryTaskStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryTaskStore creates an empty in-memory store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{records: make(map[string]*Record)}
}

// Create persists a new record.
func (s *MemoryTaskStore) Create(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.TaskID]; ok {
		return ErrDuplicate
	}
	s.records[rec.TaskID] = rec.Clone()
	return nil
}

// Get retrieves a record by task ID.
func (s *MemoryTaskStore) Get(ctx context.Context, taskID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Update merges a partial change set into the stored record.
func (s *MemoryTaskStore) Update(ctx context.Context, taskID string, changes Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[taskID]
	if !ok {
		return ErrNotFound
	}
	return rec.Apply(changes)
}

// Delete removes a record.
func (s *MemoryTaskStore) Delete(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[taskID]; !ok {
		return ErrNotFound
	}
	delete(s.records, taskID)
	return nil
}

// DeleteOlderThan removes every record created before the cutoff.
func (s *MemoryTaskStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}
