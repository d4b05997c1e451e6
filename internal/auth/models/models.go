package models

import (
	"strings"
	"time"

	"taskgate/pkg/domain"
)

// UserAccount is the durable account record. PasswordHash and RefreshToken
// never leave the auth module; handlers expose PublicUser instead.
type UserAccount struct {
	ID           domain.UserID
	Email        string
	PasswordHash string
	// RefreshToken mirrors the most recently issued refresh token. It is a
	// single slot: a new login overwrites it, which is what invalidates the
	// previous refresh token on the server side.
	RefreshToken string
	IsAdmin      bool
	CreatedAt    time.Time
}

// Public strips the fields that must never be serialized.
func (u *UserAccount) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

// PublicUser is the externally visible projection of an account.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair bundles the two credentials minted at login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// NormalizeEmail canonicalizes an email for lookup and storage. Uniqueness
// is enforced on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
