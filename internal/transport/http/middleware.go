package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"taskgate/internal/auth/models"
)

const bearerPrefix = "Bearer "

// SessionResolver turns a presented access token into an account.
type SessionResolver interface {
	ResolveAccessToken(ctx context.Context, raw string) (*models.UserAccount, error)
}

type contextKeyAccount struct{}

// ContextKeyAccount is exported for use in handlers.
var ContextKeyAccount = contextKeyAccount{}

// AccountFrom retrieves the authenticated account from the context.
func AccountFrom(ctx context.Context) *models.UserAccount {
	account, ok := ctx.Value(ContextKeyAccount).(*models.UserAccount)
	if !ok {
		return nil
	}
	return account
}

// extractToken pulls the access token from the Authorization header, falling
// back to the session cookie. Cookie values carry the same "Bearer " prefix
// as the header so either source decodes identically.
func extractToken(r *http.Request) string {
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
		return after
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		if after, ok := strings.CutPrefix(cookie.Value, bearerPrefix); ok {
			return after
		}
		return cookie.Value
	}
	return ""
}

// RequireSession rejects unauthenticated requests with a 401 JSON envelope.
// API clients use this flavor.
func RequireSession(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return sessionMiddleware(resolver, logger, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:   "unauthorized",
			Message: "could not validate credentials",
		})
	})
}

// RedirectSession sends unauthenticated requests to the login page instead of
// answering 401. Browser-facing routes use this flavor.
func RedirectSession(resolver SessionResolver, logger *slog.Logger, loginURL string) func(http.Handler) http.Handler {
	return sessionMiddleware(resolver, logger, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, loginURL, http.StatusFound)
	})
}

func sessionMiddleware(resolver SessionResolver, logger *slog.Logger, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := extractToken(r)
			if raw == "" {
				reject(w, r)
				return
			}

			account, err := resolver.ResolveAccessToken(ctx, raw)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "rejected access token",
						slog.String("path", r.URL.Path),
					)
				}
				reject(w, r)
				return
			}

			ctx = context.WithValue(ctx, ContextKeyAccount, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
