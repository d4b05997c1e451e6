package testutil

import (
	"context"
	"net/http"

	"taskgate/internal/auth/models"
	httptransport "taskgate/internal/transport/http"
)

// WithAccount adds an authenticated account to the request context.
// This simulates what the session middleware does for authenticated requests.
func WithAccount(req *http.Request, account *models.UserAccount) *http.Request {
	ctx := context.WithValue(req.Context(), httptransport.ContextKeyAccount, account)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
