// Package service implements owner-scoped task management. A todo belonging
// to another user is reported as not found, never as forbidden, so the API
// does not reveal which identifiers exist.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taskgate/internal/todo/models"
	"taskgate/pkg/domain"
	dErrors "taskgate/pkg/domain-errors"
	"taskgate/pkg/sentinel"
)

// TodoStore is the persistence the todo service needs.
type TodoStore interface {
	Create(ctx context.Context, todo *models.Todo) error
	ListByOwner(ctx context.Context, owner domain.UserID) ([]*models.Todo, error)
	FindByID(ctx context.Context, owner domain.UserID, id domain.TodoID) (*models.Todo, error)
	Update(ctx context.Context, todo *models.Todo) error
	Delete(ctx context.Context, owner domain.UserID, id domain.TodoID) error
}

// Service orchestrates todo CRUD for authenticated users.
type Service struct {
	todos  TodoStore
	logger *slog.Logger
	now    func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service.
func New(todos TodoStore, opts ...Option) *Service {
	s := &Service{todos: todos, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all todos owned by the user, newest first.
func (s *Service) List(ctx context.Context, owner domain.UserID) ([]*models.Todo, error) {
	todos, err := s.todos.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list todos")
	}
	if todos == nil {
		todos = []*models.Todo{}
	}
	return todos, nil
}

// Get returns a single owned todo.
func (s *Service) Get(ctx context.Context, owner domain.UserID, id domain.TodoID) (*models.Todo, error) {
	todo, err := s.todos.FindByID(ctx, owner, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "todo not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load todo")
	}
	return todo, nil
}

// Create validates and stores a new todo for the user.
func (s *Service) Create(ctx context.Context, owner domain.UserID, title, description string) (*models.Todo, error) {
	todo, err := models.NewTodo(owner, title, description, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.todos.Create(ctx, todo); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create todo")
	}
	return todo, nil
}

// Update applies a partial patch to an owned todo.
func (s *Service) Update(ctx context.Context, owner domain.UserID, id domain.TodoID, patch models.Patch) (*models.Todo, error) {
	todo, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(todo, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.todos.Update(ctx, todo); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "todo not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update todo")
	}
	return todo, nil
}

// Delete removes an owned todo.
func (s *Service) Delete(ctx context.Context, owner domain.UserID, id domain.TodoID) error {
	if err := s.todos.Delete(ctx, owner, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "todo not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete todo")
	}
	return nil
}
