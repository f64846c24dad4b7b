package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ritotombe/supportflow/pkg/domain"
	"github.com/ritotombe/supportflow/pkg/ports"
)

// Store implements ports.ThreadStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*ports.Thread
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*ports.Thread),
	}
}

// Save persists the thread in memory.
func (s *Store) Save(ctx context.Context, thread *ports.Thread) error {
	copied := copyThread(thread)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[thread.ID] = copied
	return nil
}

// Load retrieves the thread from memory.
func (s *Store) Load(ctx context.Context, threadID string) (*ports.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.data[threadID]
	if !ok {
		return nil, domain.ErrThreadNotFound
	}

	// Copy on read so caller can't mutate store state directly by pointer
	return copyThread(thread), nil
}

// Delete removes the thread.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, threadID)
	return nil
}

// List returns stored thread IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func copyThread(t *ports.Thread) *ports.Thread {
	c := *t
	c.Messages = append([]domain.Message(nil), t.Messages...)
	return &c
}
