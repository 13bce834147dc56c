package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a session is absent or has expired.
var ErrNotFound = errors.New("session not found")

// Store exposes session persistence for the auth gateway.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Set(ctx context.Context, s Session) error
	Destroy(ctx context.Context, id string) error
}

// Sweeper is implemented by stores that can drop expired sessions in bulk.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore implements Store with a process-local map.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Session
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Session),
		now:   time.Now,
	}
}

// Get looks up a session by identifier. Expired entries are removed on access.
func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}

	if item.Expired(s.now()) {
		s.mu.Lock()
		delete(s.items, id)
		s.mu.Unlock()
		return Session{}, ErrNotFound
	}
	return item, nil
}

// Set stores or replaces a session.
func (s *MemoryStore) Set(_ context.Context, item Session) error {
	if item.ID == "" {
		return errors.New("session id is required")
	}

	s.mu.Lock()
	s.items[item.ID] = item
	s.mu.Unlock()
	return nil
}

// Destroy removes a session. Missing sessions are not an error.
func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Sweep drops every session expired at now and returns how many were removed.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, item := range s.items {
		if item.Expired(now) {
			delete(s.items, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
