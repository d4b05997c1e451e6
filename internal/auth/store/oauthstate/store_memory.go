package oauthstate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskgate/pkg/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-node development.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	clock  func() time.Time
}

// MemoryOption configures a MemoryStore instance.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock function for testability.
func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemoryStore creates an empty in-memory state store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		states: make(map[string]time.Time),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Create(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state] = s.clock().Add(ttl)

	// Opportunistic sweep so abandoned logins do not accumulate.
	now := s.clock()
	for k, expiry := range s.states {
		if now.After(expiry) {
			delete(s.states, k)
		}
	}
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.states[state]
	if !ok {
		return fmt.Errorf("oauth state: %w", sentinel.ErrNotFound)
	}
	delete(s.states, state)

	if s.clock().After(expiry) {
		return fmt.Errorf("oauth state: %w", sentinel.ErrNotFound)
	}
	return nil
}
