// Package oauthstate persists single-use OAuth state nonces. A state is
// created when the login redirect is built and consumed exactly once when the
// provider calls back; replays and unknown states are rejected.
package oauthstate

import (
	"context"
	"time"
)

// Store is the persistence contract for OAuth state nonces.
type Store interface {
	// Create registers a state value that expires after ttl.
	Create(ctx context.Context, state string, ttl time.Duration) error
	// Consume atomically removes the state. Returns sentinel.ErrNotFound when
	// the state is unknown, already consumed, or expired.
	Consume(ctx context.Context, state string) error
}
