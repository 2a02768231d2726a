package jobs

import (
	"context"
	"errors"
	"sync"
)

// ErrResultNotFound is returned for unknown or already retrieved ids.
var ErrResultNotFound = errors.New("result not found")

// ResultStore holds completed results until they are retrieved once.
type ResultStore interface {
	// Put stores r under id.
	Put(ctx context.Context, id string, r Result) error
	// Take returns and removes the result under id.
	Take(ctx context.Context, id string) (Result, error)
	// Summaries lists every stored result without payloads.
	Summaries(ctx context.Context) (map[string]Summary, error)
}

// MemoryStore is an in-process ResultStore.
type MemoryStore struct {
	mu      sync.Mutex
	results map[string]Result
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]Result)}
}

func (s *MemoryStore) Put(_ context.Context, id string, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = r
	return nil
}

func (s *MemoryStore) Take(_ context.Context, id string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return Result{}, ErrResultNotFound
	}
	delete(s.results, id)
	return r, nil
}

func (s *MemoryStore) Summaries(context.Context) (map[string]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Summary, len(s.results))
	for id, r := range s.results {
		out[id] = r.Summary()
	}
	return out, nil
}
