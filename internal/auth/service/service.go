// Package service is the session manager. It owns the full credential
// lifecycle: registration, password login, token issuance and refresh, and
// resolving presented tokens back into accounts. Stores speak sentinel
// errors; everything leaving this package carries a domain error code, and
// every authentication failure collapses to the same opaque unauthorized
// error so callers cannot probe which step rejected them.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"taskgate/internal/auth/metrics"
	"taskgate/internal/auth/models"
	"taskgate/internal/auth/oauth"
	"taskgate/internal/auth/password"
	"taskgate/internal/auth/token"
	"taskgate/pkg/audit"
	"taskgate/pkg/domain"
	dErrors "taskgate/pkg/domain-errors"
	"taskgate/pkg/sentinel"
)

// tokenType is the scheme reported alongside every issued pair.
const tokenType = "Bearer"

// UserStore is the persistence the session manager needs.
type UserStore interface {
	Create(ctx context.Context, account *models.UserAccount) error
	FindByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	FindByID(ctx context.Context, id domain.UserID) (*models.UserAccount, error)
	UpdateRefreshToken(ctx context.Context, id domain.UserID, token string) error
}

// Service orchestrates accounts and their tokens.
type Service struct {
	users      UserStore
	codec      *token.Codec
	accessTTL  time.Duration
	refreshTTL time.Duration

	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
	now            func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
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
func New(users UserStore, codec *token.Codec, accessTTL, refreshTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:      users,
		codec:      codec,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// errAuthFailure is the single answer for every credential problem. Wrong
// email, wrong password, unknown account and stale refresh token must all
// look identical from the outside.
func errAuthFailure() error {
	return dErrors.New(dErrors.CodeUnauthorized, "could not validate credentials")
}

// Register creates a new account with a hashed password.
func (s *Service) Register(ctx context.Context, email, plaintext string) (*models.UserAccount, error) {
	email = models.NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return nil, err
	}

	account := &models.UserAccount{
		ID:           domain.NewUserID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.emitAudit(ctx, audit.Event{
		Action: audit.ActionUserRegistered,
		UserID: account.ID.String(),
		Email:  account.Email,
	})
	s.metrics.IncrementRegistrations()

	return account, nil
}

// Authenticate verifies an email/password pair and returns the account.
// Credential failures are reported as the opaque unauthorized error; a store
// outage is not an authentication verdict and surfaces as unavailable.
func (s *Service) Authenticate(ctx context.Context, email, plaintext string) (*models.UserAccount, error) {
	account, err := s.users.FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Burn comparable time so a missing account is not distinguishable
			// from a wrong password by latency.
			password.Verify(plaintext, "$2a$10$7EqJtq98hPqEX7fNZaFWoOa3kSO/2EIdYKZyYQXyhPLS1N7aO1rhe")
			return nil, errAuthFailure()
		}
		s.logError(ctx, "account lookup failed", err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "account lookup failed")
	}

	if !password.Verify(plaintext, account.PasswordHash) {
		return nil, errAuthFailure()
	}
	return account, nil
}

// IssueTokenPair mints an access/refresh pair for the account and stores the
// refresh token, superseding whatever was in the slot before.
func (s *Service) IssueTokenPair(ctx context.Context, account *models.UserAccount) (models.TokenPair, error) {
	access, err := s.codec.Encode(account.Email, account.ID, s.accessTTL)
	if err != nil {
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	refresh, err := s.codec.Encode(account.Email, account.ID, s.refreshTTL)
	if err != nil {
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign refresh token")
	}

	if err := s.users.UpdateRefreshToken(ctx, account.ID, refresh); err != nil {
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist refresh token")
	}

	return models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenType,
	}, nil
}

// Login authenticates the credentials and issues a fresh token pair. The
// userAgent string is only used for the audit trail.
func (s *Service) Login(ctx context.Context, email, plaintext, userAgent string) (models.TokenPair, error) {
	start := s.now()
	defer s.metrics.ObserveLogin(start)

	account, err := s.Authenticate(ctx, email, plaintext)
	if err != nil {
		s.metrics.IncrementLoginFailed()
		s.emitAudit(ctx, audit.Event{
			Action: audit.ActionLoginFailed,
			Email:  models.NormalizeEmail(email),
			Device: deviceSummary(userAgent),
		})
		return models.TokenPair{}, err
	}

	pair, err := s.IssueTokenPair(ctx, account)
	if err != nil {
		return models.TokenPair{}, err
	}

	s.metrics.IncrementLoginSucceeded()
	s.emitAudit(ctx, audit.Event{
		Action: audit.ActionLoginSucceeded,
		UserID: account.ID.String(),
		Email:  account.Email,
		Device: deviceSummary(userAgent),
	})
	return pair, nil
}

// Refresh validates a refresh token and mints a new access token. The
// refresh token itself is not rotated; it stays valid until its own expiry
// or until a later login supersedes it. The presented token must match the
// stored slot byte for byte, which is what retires tokens from older logins.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		s.metrics.IncrementRefreshDenied()
		return models.TokenPair{}, errAuthFailure()
	}

	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		s.metrics.IncrementRefreshDenied()
		return models.TokenPair{}, errAuthFailure()
	}

	account, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logError(ctx, "account lookup failed", err)
			return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "account lookup failed")
		}
		s.metrics.IncrementRefreshDenied()
		return models.TokenPair{}, errAuthFailure()
	}

	if subtle.ConstantTimeCompare([]byte(account.RefreshToken), []byte(refreshToken)) != 1 {
		s.metrics.IncrementRefreshDenied()
		s.emitAudit(ctx, audit.Event{
			Action: audit.ActionRefreshDenied,
			UserID: account.ID.String(),
			Email:  account.Email,
		})
		return models.TokenPair{}, errAuthFailure()
	}

	access, err := s.codec.Encode(account.Email, account.ID, s.accessTTL)
	if err != nil {
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}

	s.metrics.IncrementTokensRefreshed()
	s.emitAudit(ctx, audit.Event{
		Action: audit.ActionTokenRefreshed,
		UserID: account.ID.String(),
		Email:  account.Email,
	})

	return models.TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
	}, nil
}

// ResolveAccessToken verifies an access token and loads its account.
func (s *Service) ResolveAccessToken(ctx context.Context, raw string) (*models.UserAccount, error) {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		s.metrics.IncrementDecodeFailures()
		return nil, errAuthFailure()
	}

	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return nil, errAuthFailure()
	}

	account, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logError(ctx, "account lookup failed", err)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "account lookup failed")
		}
		return nil, errAuthFailure()
	}
	return account, nil
}

// ResolveAccessTokenLenient is ResolveAccessToken for pages that render for
// anonymous visitors too: a missing, invalid or expired token yields
// (nil, nil) instead of an error. Only infrastructure failures surface.
// Reserved for browser-facing page handlers that pair with RedirectSession;
// the JSON API always resolves strictly.
func (s *Service) ResolveAccessTokenLenient(ctx context.Context, raw string) (*models.UserAccount, error) {
	if raw == "" {
		return nil, nil
	}

	claims, err := s.codec.Decode(raw)
	if err != nil {
		return nil, nil
	}

	userID, err := domain.ParseUserID(claims.UserID)
	if err != nil {
		return nil, nil
	}

	account, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "account lookup failed")
	}
	return account, nil
}

// RequireAdmin resolves the token strictly and additionally requires the
// admin flag. A valid token for a regular account fails exactly like an
// invalid token so the response does not reveal that the account exists.
func (s *Service) RequireAdmin(ctx context.Context, raw string) (*models.UserAccount, error) {
	account, err := s.ResolveAccessToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !account.IsAdmin {
		return nil, errAuthFailure()
	}
	return account, nil
}

// LoginWithProvider signs in an account matching a provider-asserted
// identity. Accounts are never auto-provisioned: an identity without a
// matching local account is rejected with a forbidden error so the caller
// can point the user at registration.
func (s *Service) LoginWithProvider(ctx context.Context, identity oauth.Identity, userAgent string) (models.TokenPair, error) {
	key := models.NormalizeEmail(identity.Key())
	if key == "" {
		return models.TokenPair{}, dErrors.New(dErrors.CodeForbidden, "provider returned no usable identity")
	}

	account, err := s.users.FindByEmail(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emitAudit(ctx, audit.Event{
				Action:   audit.ActionOAuthDenied,
				Email:    key,
				Provider: "github",
			})
			return models.TokenPair{}, dErrors.New(dErrors.CodeForbidden,
				fmt.Sprintf("no account registered for %s", key))
		}
		s.logError(ctx, "account lookup failed", err)
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "account lookup failed")
	}

	pair, err := s.IssueTokenPair(ctx, account)
	if err != nil {
		return models.TokenPair{}, err
	}

	s.metrics.IncrementOAuthExchanges()
	s.emitAudit(ctx, audit.Event{
		Action:   audit.ActionOAuthLogin,
		UserID:   account.ID.String(),
		Email:    account.Email,
		Device:   deviceSummary(userAgent),
		Provider: "github",
	})
	return pair, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.Timestamp = s.now().UTC()
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logError(ctx, "audit emit failed", err)
	}
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))
}

// deviceSummary condenses a User-Agent header into a short human-readable
// label for the audit trail, e.g. "Chrome 120 on Linux".
func deviceSummary(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return rawUA
	}
	if idx := strings.IndexByte(version, '.'); idx > 0 {
		version = version[:idx]
	}
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	return summary
}
