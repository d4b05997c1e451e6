// Package user persists account records. Implementations return sentinel
// errors; the service layer translates them into coded domain errors.
package user

import (
	"context"

	"taskgate/internal/auth/models"
	"taskgate/pkg/domain"
)

// Store is the persistence contract for user accounts.
type Store interface {
	// Create inserts a new account. Returns sentinel.ErrConflict when an
	// account with the same email already exists.
	Create(ctx context.Context, account *models.UserAccount) error
	// FindByEmail looks an account up by its normalized email. Returns
	// sentinel.ErrNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	// FindByID looks an account up by its identifier. Returns
	// sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, id domain.UserID) (*models.UserAccount, error)
	// UpdateRefreshToken replaces the stored refresh token slot for the
	// account. An empty token clears the slot.
	UpdateRefreshToken(ctx context.Context, id domain.UserID, token string) error
}
