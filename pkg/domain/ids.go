// Package domain holds the typed identifiers shared across modules. Distinct
// ID types keep a user ID from ever being passed where a todo ID belongs.
package domain

import (
	"github.com/google/uuid"

	dErrors "taskgate/pkg/domain-errors"
)

// UserID identifies a registered account.
type UserID uuid.UUID

// TodoID identifies a todo item.
type TodoID uuid.UUID

// NewUserID allocates a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewTodoID allocates a fresh random todo ID.
func NewTodoID() TodoID { return TodoID(uuid.New()) }

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id TodoID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id UserID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id TodoID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// ParseUserID validates an ID arriving at a trust boundary (token claims,
// URL parameters). Empty, malformed, and nil UUIDs are all rejected.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseTodoID validates a todo ID arriving at a trust boundary.
func ParseTodoID(s string) (TodoID, error) {
	u, err := parse(s)
	if err != nil {
		return TodoID{}, err
	}
	return TodoID(u), nil
}

func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil uuid")
	}
	return u, nil
}
