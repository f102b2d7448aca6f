// Package seminar reads seminar records, whose program field can hold the analysis
// a course links to with a "linked_seminar:<id>" curriculum.
package seminar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no seminar has the requested id.
var ErrNotFound = errors.New("seminar not found")

// Seminar is the subset of a seminar record the analysis pipeline needs.
// Program holds the JSON value exactly as the API returns it: usually a string
// containing (possibly double-encoded) analysis JSON, sometimes an object.
type Seminar struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Program json.RawMessage `json:"program"`
}

// Source fetches seminars by id.
type Source interface {
	GetSeminar(ctx context.Context, id string) (*Seminar, error)
}

// ProgramFromText wraps a stored program column as the JSON string the API would return.
func ProgramFromText(text string) json.RawMessage {
	if text == "" {
		return nil
	}
	b, err := json.Marshal(text)
	if err != nil {
		return nil
	}
	return b
}

// MemoryStore is an in-memory Source.
type MemoryStore struct {
	seminars map[string]Seminar
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory seminar store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seminars: make(map[string]Seminar),
	}
}

// Put adds or replaces a seminar.
func (s *MemoryStore) Put(sem Seminar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seminars[sem.ID] = sem
}

func (s *MemoryStore) GetSeminar(_ context.Context, id string) (*Seminar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sem, ok := s.seminars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &sem, nil
}
