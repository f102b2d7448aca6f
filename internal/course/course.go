// Package course reads the marketplace courses whose curriculum field carries an
// analysis reference.
package course

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no course has the requested id.
var ErrNotFound = errors.New("course not found")

// Course is the subset of a course record the analysis pipeline reads.
type Course struct {
	ID                string     `json:"id" yaml:"id"`
	Title             string     `json:"title" yaml:"title"`
	Curriculum        string     `json:"curriculum" yaml:"curriculum"`
	AnalysisMaterials []Material `json:"analysisMaterials" yaml:"analysis_materials"`
}

// Material is an attached analysis file. The pipeline passes these through untouched.
type Material struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
	Type string `json:"type" yaml:"type"`
}

// Source fetches courses by id.
type Source interface {
	GetCourse(ctx context.Context, id string) (*Course, error)
}

// MemoryStore is an in-memory Source.
type MemoryStore struct {
	courses map[string]Course
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory course store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses: make(map[string]Course),
	}
}

// Put adds or replaces a course.
func (s *MemoryStore) Put(c Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
}

func (s *MemoryStore) GetCourse(_ context.Context, id string) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.courses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.AnalysisMaterials = append([]Material{}, c.AnalysisMaterials...)
	return &c, nil
}
