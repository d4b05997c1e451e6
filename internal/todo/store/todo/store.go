// Package todo persists task records. Implementations return sentinel
// errors; the service layer translates them into coded domain errors.
// Lookups are always owner-scoped so a store can never leak another user's
// tasks.
package todo

import (
	"context"

	"taskgate/internal/todo/models"
	"taskgate/pkg/domain"
)

// Store is the persistence contract for todos.
type Store interface {
	// Create inserts a new todo.
	Create(ctx context.Context, todo *models.Todo) error
	// ListByOwner returns all todos owned by the user, newest first.
	ListByOwner(ctx context.Context, owner domain.UserID) ([]*models.Todo, error)
	// FindByID returns the todo only when it is owned by the given user.
	// Returns sentinel.ErrNotFound otherwise, including for todos that exist
	// under a different owner.
	FindByID(ctx context.Context, owner domain.UserID, id domain.TodoID) (*models.Todo, error)
	// Update persists changed fields of an owned todo. Returns
	// sentinel.ErrNotFound when absent or owned by someone else.
	Update(ctx context.Context, todo *models.Todo) error
	// Delete removes an owned todo. Returns sentinel.ErrNotFound when absent
	// or owned by someone else.
	Delete(ctx context.Context, owner domain.UserID, id domain.TodoID) error
}
