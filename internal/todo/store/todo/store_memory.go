package todo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"taskgate/internal/todo/models"
	"taskgate/pkg/domain"
	"taskgate/pkg/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-node development.
type MemoryStore struct {
	mu    sync.RWMutex
	todos map[domain.TodoID]*models.Todo
}

// NewMemoryStore creates an empty in-memory todo store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{todos: make(map[domain.TodoID]*models.Todo)}
}

func (s *MemoryStore) Create(_ context.Context, todo *models.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *todo
	s.todos[todo.ID] = &stored
	return nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, owner domain.UserID) ([]*models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Todo
	for _, stored := range s.todos {
		if stored.OwnerID == owner {
			todo := *stored
			out = append(out, &todo)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) FindByID(_ context.Context, owner domain.UserID, id domain.TodoID) (*models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.todos[id]
	if !ok || stored.OwnerID != owner {
		return nil, fmt.Errorf("todo %s: %w", id, sentinel.ErrNotFound)
	}
	todo := *stored
	return &todo, nil
}

func (s *MemoryStore) Update(_ context.Context, todo *models.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.todos[todo.ID]
	if !ok || stored.OwnerID != todo.OwnerID {
		return fmt.Errorf("todo %s: %w", todo.ID, sentinel.ErrNotFound)
	}
	updated := *todo
	s.todos[todo.ID] = &updated
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, owner domain.UserID, id domain.TodoID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.todos[id]
	if !ok || stored.OwnerID != owner {
		return fmt.Errorf("todo %s: %w", id, sentinel.ErrNotFound)
	}
	delete(s.todos, id)
	return nil
}
