package output

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound indicates the requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// ArtifactStore persists exported artifacts keyed by workflow and name.
type ArtifactStore interface {
	// Save stores (or overwrites) the artifact bytes.
	Save(workflowID, name string, data []byte) error
	// Get returns the stored bytes or ErrNotFound.
	Get(workflowID, name string) ([]byte, error)
	// List returns the artifact names stored for the workflow.
	List(workflowID string) ([]string, error)
	// Delete removes the artifact or returns ErrNotFound.
	Delete(workflowID, name string) error
}

// InMemoryStore is an in-process ArtifactStore for tests, examples and
// single-process deployments. It keeps all artifacts in a nested map guarded
// by an RWMutex. Data is copied on save and retrieval to avoid accidental
// external mutation of internal buffers.
//
// Layout: workflowID -> name -> raw bytes
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the artifact bytes for the given workflow and
// name. The input slice is copied before storage.
func (s *InMemoryStore) Save(workflowID, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.artifacts[workflowID]; !exists {
		s.artifacts[workflowID] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.artifacts[workflowID][name] = cp
	return nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (s *InMemoryStore) Get(workflowID, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.artifacts[workflowID]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := m[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the sorted artifact names stored for the workflow. The slice
// is a snapshot and safe for caller mutation.
func (s *InMemoryStore) List(workflowID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.artifacts[workflowID]
	if !ok {
		return []string{}, nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(workflowID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.artifacts[workflowID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m[name]; !ok {
		return ErrNotFound
	}
	delete(m, name)
	return nil
}
