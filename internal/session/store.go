// Package session provides thread session storage and lifecycle management
// for promptd. A session (thread) is one logical conversation keyed by a
// caller-supplied identifier; all state is in-memory and intentionally
// ephemeral, cleared on explicit end or process shutdown.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"promptd/pkg/prompttypes"
)

// Store is the process-wide mapping from thread identifier to session record.
// The map itself is guarded by a mutex (Go forbids unsynchronized concurrent
// map writes); the records it holds are not. Two concurrent requests mutating
// the same thread may interleave, which matches the delivered behaviour of
// this service.
type Store struct {
	mu      sync.RWMutex
	threads map[string]*prompttypes.ChatThread
}

// NewStore creates an empty thread store.
func NewStore() *Store {
	return &Store{
		threads: make(map[string]*prompttypes.ChatThread),
	}
}

// Get returns the thread for the given identifier, if present.
func (s *Store) Get(threadID string) (*prompttypes.ChatThread, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread, ok := s.threads[threadID]
	return thread, ok
}

// Put stores the thread under its identifier, replacing any existing entry.
func (s *Store) Put(thread *prompttypes.ChatThread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[thread.ID] = thread
}

// Delete removes the thread with the given identifier and reports whether it
// existed.
func (s *Store) Delete(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.threads[threadID]
	delete(s.threads, threadID)
	return ok
}

// IDs returns the identifiers of all active threads.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of active threads.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threads)
}

// NewMessage builds a history message with a fresh id and timestamp.
func NewMessage(role, content string) prompttypes.Message {
	return prompttypes.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}
