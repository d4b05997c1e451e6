package user

import (
	"context"
	"fmt"
	"sync"

	"taskgate/internal/auth/models"
	"taskgate/pkg/domain"
	"taskgate/pkg/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-node development.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[domain.UserID]*models.UserAccount
	byEmail map[string]domain.UserID
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[domain.UserID]*models.UserAccount),
		byEmail: make(map[string]domain.UserID),
	}
}

func (s *MemoryStore) Create(_ context.Context, account *models.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.NormalizeEmail(account.Email)
	if _, exists := s.byEmail[key]; exists {
		return fmt.Errorf("create user %s: %w", key, sentinel.ErrConflict)
	}

	stored := *account
	s.byID[account.ID] = &stored
	s.byEmail[key] = account.ID
	return nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, sentinel.ErrNotFound)
	}
	account := *s.byID[id]
	return &account, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id domain.UserID) (*models.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	account := *stored
	return &account, nil
}

func (s *MemoryStore) UpdateRefreshToken(_ context.Context, id domain.UserID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	stored.RefreshToken = token
	return nil
}
