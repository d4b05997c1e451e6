package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"taskgate/internal/auth/models"
	"taskgate/pkg/domain"
	"taskgate/pkg/sentinel"
)

const pqUniqueViolation = "23505"

// PostgresStore persists user accounts in PostgreSQL.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a PostgresStore instance.
type PostgresOption func(*PostgresStore)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgresStore constructs a PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate creates the users table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate users table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, account *models.UserAccount) error {
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock()
	}
	query := `
		INSERT INTO users (id, email, password_hash, refresh_token, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		account.ID.String(),
		models.NormalizeEmail(account.Email),
		account.PasswordHash,
		account.RefreshToken,
		account.IsAdmin,
		createdAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("create user %s: %w", account.Email, sentinel.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	query := `
		SELECT id, email, password_hash, refresh_token, is_admin, created_at
		FROM users WHERE email = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)), email)
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.UserID) (*models.UserAccount, error) {
	query := `
		SELECT id, email, password_hash, refresh_token, is_admin, created_at
		FROM users WHERE id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id.String()), id.String())
}

func (s *PostgresStore) UpdateRefreshToken(ctx context.Context, id domain.UserID, token string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, id.String(), token)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row, ref string) (*models.UserAccount, error) {
	var (
		account models.UserAccount
		rawID   string
	)
	err := row.Scan(&rawID, &account.Email, &account.PasswordHash, &account.RefreshToken, &account.IsAdmin, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", ref, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	id, err := domain.ParseUserID(rawID)
	if err != nil {
		return nil, fmt.Errorf("find user: malformed id %q: %w", rawID, err)
	}
	account.ID = id
	return &account, nil
}
