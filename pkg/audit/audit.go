// Package audit records security-relevant actions taken through the auth
// subsystem. Events are emitted synchronously from domain logic; sinks decide
// where they land. Event payloads never include passwords, hashes, or token
// strings.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Action names the audited operation.
type Action string

const (
	ActionUserRegistered Action = "user_registered"
	ActionLoginSucceeded Action = "login_succeeded"
	ActionLoginFailed    Action = "login_failed"
	ActionTokenRefreshed Action = "token_refreshed"
	ActionRefreshDenied  Action = "refresh_denied"
	ActionOAuthLogin     Action = "oauth_login"
	ActionOAuthDenied    Action = "oauth_denied"
)

// Event is emitted from domain logic to capture key auth actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Action    Action
	Timestamp time.Time
	// UserID is empty for failed attempts against unknown accounts.
	UserID string
	Email  string
	// Device is a short human-readable summary of the client (browser and
	// OS), parsed from the User-Agent header. Never the raw header.
	Device string
	// Provider names the external identity provider for delegated logins.
	Provider string
}

// Publisher receives audit events. Implementations must be safe for
// concurrent use and must not block on slow sinks.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// LogPublisher writes audit events to structured logs.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Emit(ctx context.Context, event Event) error {
	p.log.InfoContext(ctx, "audit",
		"action", string(event.Action),
		"user_id", event.UserID,
		"email", event.Email,
		"device", event.Device,
		"provider", event.Provider,
		"at", event.Timestamp.UTC(),
	)
	return nil
}

// MemoryPublisher collects events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Emit(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// NopPublisher discards events. Useful when auditing is not configured.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) error { return nil }
