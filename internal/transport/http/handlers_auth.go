package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"taskgate/internal/auth/models"
	"taskgate/internal/auth/oauth"
	"taskgate/internal/auth/store/oauthstate"
	dErrors "taskgate/pkg/domain-errors"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// SessionService is the surface of the session manager the HTTP layer needs.
type SessionService interface {
	Register(ctx context.Context, email, password string) (*models.UserAccount, error)
	Login(ctx context.Context, email, password, userAgent string) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	ResolveAccessToken(ctx context.Context, raw string) (*models.UserAccount, error)
	LoginWithProvider(ctx context.Context, identity oauth.Identity, userAgent string) (models.TokenPair, error)
}

// OAuthBridge is the provider flow surface the HTTP layer needs.
type OAuthBridge interface {
	Configured() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	ResolveIdentity(ctx context.Context, token *oauth2.Token) (oauth.Identity, error)
}

// AuthHandler handles registration, login, refresh and the OAuth flow.
type AuthHandler struct {
	sessions       SessionService
	bridge         OAuthBridge
	states         oauthstate.Store
	logger         *slog.Logger
	cookieSessions bool
	stateTTL       time.Duration
	refreshTTL     time.Duration
}

// AuthHandlerOption configures an AuthHandler.
type AuthHandlerOption func(*AuthHandler)

// WithCookieSessions makes login and refresh mirror the issued tokens into
// HTTP-only cookies for browser clients.
func WithCookieSessions(enabled bool) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.cookieSessions = enabled
	}
}

// WithOAuthBridge wires the provider login flow.
func WithOAuthBridge(bridge OAuthBridge, states oauthstate.Store, stateTTL time.Duration) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.bridge = bridge
		h.states = states
		if stateTTL > 0 {
			h.stateTTL = stateTTL
		}
	}
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(sessions SessionService, logger *slog.Logger, refreshTTL time.Duration, opts ...AuthHandlerOption) *AuthHandler {
	h := &AuthHandler{
		sessions:   sessions,
		logger:     logger,
		refreshTTL: refreshTTL,
		stateTTL:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the auth routes with the chi router.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/token", h.handleToken)
	r.Post("/auth/refresh", h.handleRefresh)
	r.Get("/auth/github/login", h.handleGitHubLogin)
	r.Get("/auth/github/callback", h.handleGitHubCallback)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	if err := validateCredentials(req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.sessions.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account.Public())
}

// handleToken is the password login endpoint. It accepts the classic
// form-encoded username/password shape so standard OAuth2 password-flow
// clients work against it unchanged.
func (h *AuthHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid form body"))
		return
	}

	email := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if err := validateCredentials(email, password); err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.sessions.Login(r.Context(), email, password, r.UserAgent())
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// Body is optional; cookie clients send nothing.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if req.RefreshToken == "" {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "refresh token required"))
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

// HandleProfile returns the authenticated account. Mounted behind the
// session middleware.
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	account := AccountFrom(r.Context())
	if account == nil {
		h.logger.ErrorContext(r.Context(), "account missing from context despite session middleware")
		writeError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	writeJSON(w, http.StatusOK, account.Public())
}

func (h *AuthHandler) handleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.bridge == nil || !h.bridge.Configured() {
		writeError(w, dErrors.New(dErrors.CodeUnavailable, "github login is not configured"))
		return
	}

	state := uuid.NewString()
	if err := h.states.Create(r.Context(), state, h.stateTTL); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to store oauth state", slog.String("error", err.Error()))
		writeError(w, dErrors.New(dErrors.CodeInternal, "could not start login"))
		return
	}

	http.Redirect(w, r, h.bridge.AuthURL(state), http.StatusFound)
}

func (h *AuthHandler) handleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bridge == nil || !h.bridge.Configured() {
		writeError(w, dErrors.New(dErrors.CodeUnavailable, "github login is not configured"))
		return
	}

	query := r.URL.Query()
	state := query.Get("state")
	code := query.Get("code")
	if state == "" || code == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "missing state or code"))
		return
	}

	if err := h.states.Consume(ctx, state); err != nil {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown or expired login state"))
		return
	}

	token, err := h.bridge.Exchange(ctx, code)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.bridge.ResolveIdentity(ctx, token)
	if err != nil {
		writeError(w, err)
		return
	}

	pair, err := h.sessions.LoginWithProvider(ctx, identity, r.UserAgent())
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

// setSessionCookies mirrors the token pair into HTTP-only cookies when
// cookie sessions are enabled. The access token cookie keeps the "Bearer "
// prefix so its value is interchangeable with the Authorization header.
func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, pair models.TokenPair) {
	if !h.cookieSessions {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    bearerPrefix + pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/api/v1/auth",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func validateCredentials(email, password string) error {
	if !govalidator.StringLength(email, "3", "255") || !govalidator.IsEmail(email) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid email")
	}
	if !govalidator.StringLength(password, "1", "255") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid password")
	}
	return nil
}
