package models

import (
	"strings"
	"time"

	"taskgate/pkg/domain"
	dErrors "taskgate/pkg/domain-errors"
)

// Todo is a single task owned by exactly one user. Every store and service
// operation is scoped to the owner; other users cannot observe that a given
// todo exists.
type Todo struct {
	ID          domain.TodoID `json:"id"`
	OwnerID     domain.UserID `json:"-"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Completed   bool          `json:"completed"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

const maxTitleLength = 200

// NewTodo validates and builds a todo owned by the given user.
func NewTodo(owner domain.UserID, title, description string, now time.Time) (*Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "title cannot be empty")
	}
	if len(title) > maxTitleLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "title is too long")
	}
	return &Todo{
		ID:          domain.NewTodoID(),
		OwnerID:     owner,
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Patch carries a partial update. Nil fields are left unchanged.
type Patch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// Apply merges the patch into the todo, validating changed fields.
func (p Patch) Apply(t *Todo, now time.Time) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "title cannot be empty")
		}
		if len(title) > maxTitleLength {
			return dErrors.New(dErrors.CodeInvalidInput, "title is too long")
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	t.UpdatedAt = now
	return nil
}
