package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	authModel "taskgate/internal/auth/models"
	"taskgate/internal/transport/http/mocks"
	"taskgate/pkg/domain"
	dErrors "taskgate/pkg/domain-errors"
)

func sessionProbe(t *testing.T, mw func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := AccountFrom(r.Context())
		require.NotNil(t, account, "handler must only run with an account in context")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(account.Email))
	}))
}

func TestRequireSession(t *testing.T) {
	account := &authModel.UserAccount{ID: domain.NewUserID(), Email: "user@example.com"}

	t.Run("missing token - 401", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockSessionService(ctrl)
		handler := sessionProbe(t, RequireSession(resolver, testLogger()))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("rejected token - 401", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockSessionService(ctrl)
		resolver.EXPECT().ResolveAccessToken(gomock.Any(), "bad-token").
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "could not validate credentials"))
		handler := sessionProbe(t, RequireSession(resolver, testLogger()))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad-token")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("header token reaches the handler", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockSessionService(ctrl)
		resolver.EXPECT().ResolveAccessToken(gomock.Any(), "good-token").Return(account, nil)
		handler := sessionProbe(t, RequireSession(resolver, testLogger()))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user@example.com", rec.Body.String())
	})

	t.Run("cookie token with Bearer prefix works like the header", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockSessionService(ctrl)
		resolver.EXPECT().ResolveAccessToken(gomock.Any(), "good-token").Return(account, nil)
		handler := sessionProbe(t, RequireSession(resolver, testLogger()))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "Bearer good-token"})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockSessionService(ctrl)
		resolver.EXPECT().ResolveAccessToken(gomock.Any(), "header-token").Return(account, nil)
		handler := sessionProbe(t, RequireSession(resolver, testLogger()))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "Bearer cookie-token"})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRedirectSession(t *testing.T) {
	const loginURL = "/api/v1/auth/github/login"

	t.Run("missing token redirects to login", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockSessionService(ctrl)
		handler := sessionProbe(t, RedirectSession(resolver, testLogger(), loginURL))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, loginURL, rec.Header().Get("Location"))
	})

	t.Run("rejected token redirects to login", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockSessionService(ctrl)
		resolver.EXPECT().ResolveAccessToken(gomock.Any(), "expired").
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "could not validate credentials"))
		handler := sessionProbe(t, RedirectSession(resolver, testLogger(), loginURL))

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Authorization", "Bearer expired")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("valid token reaches the handler", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		resolver := mocks.NewMockSessionService(ctrl)
		account := &authModel.UserAccount{ID: domain.NewUserID(), Email: "user@example.com"}
		resolver.EXPECT().ResolveAccessToken(gomock.Any(), "good-token").Return(account, nil)
		handler := sessionProbe(t, RedirectSession(resolver, testLogger(), loginURL))

		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Authorization", "Bearer good-token")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
