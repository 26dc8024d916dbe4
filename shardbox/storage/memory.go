package storage

import (
	"sort"
	"sync"
)

// MemStore is an in-memory Store. Containers are plain record slices; reads
// return copies so callers can iterate while migrations rewrite a node.
type MemStore struct {
	mu         sync.RWMutex
	containers map[string][]Record
}

func NewMemStore() *MemStore {
	return &MemStore{
		containers: make(map[string][]Record),
	}
}

func (s *MemStore) CreateContainer(node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[node]; !ok {
		s.containers[node] = []Record{}
	}
	return nil
}

func (s *MemStore) DeleteContainer(node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.containers, node)
	return nil
}

func (s *MemStore) GetAll(node string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.containers[node]
	out := make([]Record, len(recs))
	copy(out, recs)
	return out, nil
}

func (s *MemStore) GetByID(id string, node string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Record{}
	for _, rec := range s.containers[node] {
		if rec.ID == id {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemStore) Insert(rec Record, node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[node]; !ok {
		return ErrContainerNotFound
	}
	s.containers[node] = append(s.containers[node], rec)
	return nil
}

func (s *MemStore) DeleteByID(id string, node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.containers[node]
	if !ok {
		return nil
	}
	kept := recs[:0]
	for _, rec := range recs {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	s.containers[node] = kept
	return nil
}

// HasContainer reports whether node's container is provisioned.
func (s *MemStore) HasContainer(node string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.containers[node]
	return ok
}

// Containers returns the provisioned container names in lexical order.
func (s *MemStore) Containers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.containers))
	for n := range s.containers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
