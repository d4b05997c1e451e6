package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/oauth2"

	authModel "taskgate/internal/auth/models"
	"taskgate/internal/auth/oauth"
	"taskgate/internal/auth/store/oauthstate"
	"taskgate/internal/transport/http/mocks"
	"taskgate/pkg/domain"
	dErrors "taskgate/pkg/domain-errors"
)

//go:generate mockgen -source=handlers_auth.go -destination=mocks/auth-mocks.go -package=mocks SessionService,OAuthBridge

type AuthHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *AuthHandlerSuite) newHandler(t *testing.T, opts ...AuthHandlerOption) (*mocks.MockSessionService, chi.Router) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockSessionService(ctrl)
	handler := NewAuthHandler(mockService, testLogger(), 7*24*time.Hour, opts...)
	router := chi.NewRouter()
	handler.Register(router)
	return mockService, router
}

func decodeError(t *testing.T, body io.Reader) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func (s *AuthHandlerSuite) TestHandler_Register() {
	s.T().Run("valid registration - 201", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		account := &authModel.UserAccount{
			ID:        domain.NewUserID(),
			Email:     "user@example.com",
			CreatedAt: time.Now(),
		}
		mockService.EXPECT().Register(gomock.Any(), "user@example.com", "secret-pw").Return(account, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"user@example.com","password":"secret-pw"}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var got authModel.PublicUser
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "user@example.com", got.Email)
		assert.Equal(t, account.ID.String(), got.ID)
	})

	s.T().Run("malformed body - 400", func(t *testing.T) {
		_, router := s.newHandler(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{not json"))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	s.T().Run("invalid email rejected before the service - 400", func(t *testing.T) {
		_, router := s.newHandler(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"not-an-email","password":"pw"}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(dErrors.CodeInvalidInput), decodeError(t, rec.Body).Error)
	})

	s.T().Run("duplicate email - 409", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), "user@example.com", "pw").
			Return(nil, dErrors.New(dErrors.CodeConflict, "an account with this email already exists"))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"user@example.com","password":"pw"}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, string(dErrors.CodeConflict), decodeError(t, rec.Body).Error)
	})
}

func loginForm(email, password string) *http.Request {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (s *AuthHandlerSuite) TestHandler_Token() {
	pair := authModel.TokenPair{
		AccessToken:  "access-jwt",
		RefreshToken: "refresh-jwt",
		TokenType:    "Bearer",
	}

	s.T().Run("valid credentials - 200 with pair", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Login(gomock.Any(), "user@example.com", "secret-pw", gomock.Any()).Return(pair, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, loginForm("user@example.com", "secret-pw"))

		assert.Equal(t, http.StatusOK, rec.Code)

		var got authModel.TokenPair
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, pair, got)
		assert.Empty(t, rec.Result().Cookies(), "cookies are off by default")
	})

	s.T().Run("cookie sessions mirror the pair into cookies", func(t *testing.T) {
		mockService, router := s.newHandler(t, WithCookieSessions(true))
		mockService.EXPECT().Login(gomock.Any(), "user@example.com", "secret-pw", gomock.Any()).Return(pair, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, loginForm("user@example.com", "secret-pw"))

		require.Equal(t, http.StatusOK, rec.Code)

		cookies := map[string]*http.Cookie{}
		for _, c := range rec.Result().Cookies() {
			cookies[c.Name] = c
		}
		require.Contains(t, cookies, accessTokenCookie)
		require.Contains(t, cookies, refreshTokenCookie)
		assert.Equal(t, "Bearer access-jwt", cookies[accessTokenCookie].Value)
		assert.True(t, cookies[accessTokenCookie].HttpOnly)
		assert.Equal(t, "refresh-jwt", cookies[refreshTokenCookie].Value)
	})

	s.T().Run("bad credentials - 401", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Login(gomock.Any(), "user@example.com", "wrong", gomock.Any()).
			Return(authModel.TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "could not validate credentials"))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, loginForm("user@example.com", "wrong"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	s.T().Run("missing fields - 400", func(t *testing.T) {
		_, router := s.newHandler(t)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, loginForm("", ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func (s *AuthHandlerSuite) TestHandler_Refresh() {
	pair := authModel.TokenPair{
		AccessToken:  "new-access-jwt",
		RefreshToken: "refresh-jwt",
		TokenType:    "Bearer",
	}

	s.T().Run("token from JSON body - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Refresh(gomock.Any(), "refresh-jwt").Return(pair, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
			strings.NewReader(`{"refresh_token":"refresh-jwt"}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	s.T().Run("token from cookie - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Refresh(gomock.Any(), "refresh-jwt").Return(pair, nil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(""))
		req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: "refresh-jwt"})
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	s.T().Run("missing token - 401", func(t *testing.T) {
		_, router := s.newHandler(t)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(""))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	s.T().Run("stale token - 401", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Refresh(gomock.Any(), "stale").
			Return(authModel.TokenPair{}, dErrors.New(dErrors.CodeUnauthorized, "could not validate credentials"))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh",
			strings.NewReader(`{"refresh_token":"stale"}`))
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func (s *AuthHandlerSuite) newOAuthHandler(t *testing.T) (*mocks.MockSessionService, *mocks.MockOAuthBridge, *oauthstate.MemoryStore, chi.Router) {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockSessionService(ctrl)
	mockBridge := mocks.NewMockOAuthBridge(ctrl)
	states := oauthstate.NewMemoryStore()
	handler := NewAuthHandler(mockService, testLogger(), 7*24*time.Hour,
		WithOAuthBridge(mockBridge, states, 5*time.Minute))
	router := chi.NewRouter()
	handler.Register(router)
	return mockService, mockBridge, states, router
}

func (s *AuthHandlerSuite) TestHandler_GitHubLogin() {
	s.T().Run("unconfigured bridge - 503", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockBridge := mocks.NewMockOAuthBridge(ctrl)
		mockBridge.EXPECT().Configured().Return(false)

		handler := NewAuthHandler(mocks.NewMockSessionService(ctrl), testLogger(), time.Hour,
			WithOAuthBridge(mockBridge, oauthstate.NewMemoryStore(), time.Minute))
		router := chi.NewRouter()
		handler.Register(router)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	s.T().Run("redirects to the provider with a stored state", func(t *testing.T) {
		_, mockBridge, states, router := s.newOAuthHandler(t)
		mockBridge.EXPECT().Configured().Return(true)

		var capturedState string
		mockBridge.EXPECT().AuthURL(gomock.Any()).DoAndReturn(func(state string) string {
			capturedState = state
			return "https://github.com/login/oauth/authorize?state=" + state
		})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), capturedState)

		// The state must be consumable exactly once.
		require.NoError(t, states.Consume(context.Background(), capturedState))
		assert.Error(t, states.Consume(context.Background(), capturedState))
	})
}

func (s *AuthHandlerSuite) TestHandler_GitHubCallback() {
	pair := authModel.TokenPair{AccessToken: "access-jwt", RefreshToken: "refresh-jwt", TokenType: "Bearer"}
	identity := oauth.Identity{Email: "user@example.com", Login: "user"}
	ghToken := &oauth2.Token{AccessToken: "gh-token"}

	callback := func(state, code string) *http.Request {
		target := "/auth/github/callback?state=" + url.QueryEscape(state) + "&code=" + url.QueryEscape(code)
		return httptest.NewRequest(http.MethodGet, target, nil)
	}

	s.T().Run("happy path - 200 with pair", func(t *testing.T) {
		mockService, mockBridge, states, router := s.newOAuthHandler(t)
		require.NoError(t, states.Create(context.Background(), "state-1", time.Minute))

		mockBridge.EXPECT().Configured().Return(true)
		mockBridge.EXPECT().Exchange(gomock.Any(), "code-1").Return(ghToken, nil)
		mockBridge.EXPECT().ResolveIdentity(gomock.Any(), ghToken).Return(identity, nil)
		mockService.EXPECT().LoginWithProvider(gomock.Any(), identity, gomock.Any()).Return(pair, nil)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, callback("state-1", "code-1"))

		assert.Equal(t, http.StatusOK, rec.Code)

		var got authModel.TokenPair
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, pair, got)
	})

	s.T().Run("unknown state - 401", func(t *testing.T) {
		_, mockBridge, _, router := s.newOAuthHandler(t)
		mockBridge.EXPECT().Configured().Return(true)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, callback("never-stored", "code-1"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	s.T().Run("replayed state - 401", func(t *testing.T) {
		mockService, mockBridge, states, router := s.newOAuthHandler(t)
		require.NoError(t, states.Create(context.Background(), "state-1", time.Minute))

		mockBridge.EXPECT().Configured().Return(true).Times(2)
		mockBridge.EXPECT().Exchange(gomock.Any(), "code-1").Return(ghToken, nil)
		mockBridge.EXPECT().ResolveIdentity(gomock.Any(), ghToken).Return(identity, nil)
		mockService.EXPECT().LoginWithProvider(gomock.Any(), identity, gomock.Any()).Return(pair, nil)

		first := httptest.NewRecorder()
		router.ServeHTTP(first, callback("state-1", "code-1"))
		require.Equal(t, http.StatusOK, first.Code)

		second := httptest.NewRecorder()
		router.ServeHTTP(second, callback("state-1", "code-1"))
		assert.Equal(t, http.StatusUnauthorized, second.Code)
	})

	s.T().Run("missing parameters - 400", func(t *testing.T) {
		_, mockBridge, _, router := s.newOAuthHandler(t)
		mockBridge.EXPECT().Configured().Return(true)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/github/callback", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	s.T().Run("unregistered identity - 403", func(t *testing.T) {
		mockService, mockBridge, states, router := s.newOAuthHandler(t)
		require.NoError(t, states.Create(context.Background(), "state-1", time.Minute))

		mockBridge.EXPECT().Configured().Return(true)
		mockBridge.EXPECT().Exchange(gomock.Any(), "code-1").Return(ghToken, nil)
		mockBridge.EXPECT().ResolveIdentity(gomock.Any(), ghToken).Return(identity, nil)
		mockService.EXPECT().LoginWithProvider(gomock.Any(), identity, gomock.Any()).
			Return(authModel.TokenPair{}, dErrors.New(dErrors.CodeForbidden, "no account registered for user@example.com"))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, callback("state-1", "code-1"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, string(dErrors.CodeForbidden), decodeError(t, rec.Body).Error)
	})

	s.T().Run("failed code exchange - 403", func(t *testing.T) {
		_, mockBridge, states, router := s.newOAuthHandler(t)
		require.NoError(t, states.Create(context.Background(), "state-1", time.Minute))

		mockBridge.EXPECT().Configured().Return(true)
		mockBridge.EXPECT().Exchange(gomock.Any(), "bad-code").
			Return(nil, dErrors.New(dErrors.CodeForbidden, "authorization code exchange failed"))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, callback("state-1", "bad-code"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	s.T().Run("rejected provider token - 403", func(t *testing.T) {
		_, mockBridge, states, router := s.newOAuthHandler(t)
		require.NoError(t, states.Create(context.Background(), "state-1", time.Minute))

		mockBridge.EXPECT().Configured().Return(true)
		mockBridge.EXPECT().Exchange(gomock.Any(), "code-1").Return(ghToken, nil)
		mockBridge.EXPECT().ResolveIdentity(gomock.Any(), ghToken).
			Return(oauth.Identity{}, dErrors.New(dErrors.CodeForbidden, "provider rejected token: status 401"))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, callback("state-1", "code-1"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, string(dErrors.CodeForbidden), decodeError(t, rec.Body).Error)
	})
}
