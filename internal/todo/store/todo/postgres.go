package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskgate/internal/todo/models"
	"taskgate/pkg/domain"
	"taskgate/pkg/sentinel"
)

// PostgresStore persists todos in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed todo store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the todos table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS todos (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS todos_owner_id_idx ON todos (owner_id, created_at DESC)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate todos table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, todo *models.Todo) error {
	query := `
		INSERT INTO todos (id, owner_id, title, description, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		todo.ID.String(),
		todo.OwnerID.String(),
		todo.Title,
		todo.Description,
		todo.Completed,
		todo.CreatedAt,
		todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner domain.UserID) ([]*models.Todo, error) {
	query := `
		SELECT id, owner_id, title, description, completed, created_at, updated_at
		FROM todos WHERE owner_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []*models.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, owner domain.UserID, id domain.TodoID) (*models.Todo, error) {
	query := `
		SELECT id, owner_id, title, description, completed, created_at, updated_at
		FROM todos WHERE id = $1 AND owner_id = $2
	`
	row := s.db.QueryRowContext(ctx, query, id.String(), owner.String())
	todo, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("todo %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, err
	}
	return todo, nil
}

func (s *PostgresStore) Update(ctx context.Context, todo *models.Todo) error {
	query := `
		UPDATE todos SET title = $3, description = $4, completed = $5, updated_at = $6
		WHERE id = $1 AND owner_id = $2
	`
	result, err := s.db.ExecContext(ctx, query,
		todo.ID.String(),
		todo.OwnerID.String(),
		todo.Title,
		todo.Description,
		todo.Completed,
		todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	return checkAffected(result, todo.ID)
}

func (s *PostgresStore) Delete(ctx context.Context, owner domain.UserID, id domain.TodoID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND owner_id = $2`, id.String(), owner.String())
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return checkAffected(result, id)
}

func checkAffected(result sql.Result, id domain.TodoID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("todo rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("todo %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	var (
		todo       models.Todo
		rawID      string
		rawOwnerID string
	)
	err := row.Scan(&rawID, &rawOwnerID, &todo.Title, &todo.Description, &todo.Completed, &todo.CreatedAt, &todo.UpdatedAt)
	if err != nil {
		return nil, err
	}
	id, err := domain.ParseTodoID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan todo: malformed id %q: %w", rawID, err)
	}
	owner, err := domain.ParseUserID(rawOwnerID)
	if err != nil {
		return nil, fmt.Errorf("scan todo: malformed owner id %q: %w", rawOwnerID, err)
	}
	todo.ID = id
	todo.OwnerID = owner
	return &todo, nil
}
