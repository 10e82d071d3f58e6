package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/khural/internal/server/handlers"
	"github.com/iudanet/khural/pkg/api"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}

func testJWTConfig() handlers.JWTConfig {
	return handlers.JWTConfig{
		Secret:         []byte("test-secret-key"),
		AccessTokenTTL: 15 * time.Minute,
	}
}

// mustNotCall handler, который не должен быть вызван
func mustNotCall(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called")
	})
}

func assertAPIError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assert.Equal(t, status, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusText(status), resp.Error)
	assert.Equal(t, message, resp.Message)
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtConfig := testJWTConfig()

	token, _, err := handlers.GenerateAccessToken(jwtConfig, "editor")
	require.NoError(t, err)

	handler := AuthMiddleware(setupTestLogger(), jwtConfig)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := handlers.GetSubject(r.Context())
		require.True(t, ok, "subject should be in context")
		assert.Equal(t, "editor", subject)

		role, ok := handlers.GetRole(r.Context())
		require.True(t, ok, "role should be in context")
		assert.Equal(t, handlers.RoleAdmin, role)

		w.WriteHeader(http.StatusOK)
	}))

	for _, scheme := range []string{"Bearer", "bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/news", nil)
		req.Header.Set("Authorization", scheme+" "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, scheme)
	}
}

func TestAuthMiddleware_MissingAuthHeader(t *testing.T) {
	handler := AuthMiddleware(setupTestLogger(), testJWTConfig())(mustNotCall(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/news", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assertAPIError(t, w, http.StatusUnauthorized, "missing token")
}

func TestAuthMiddleware_InvalidAuthHeaderFormat(t *testing.T) {
	handler := AuthMiddleware(setupTestLogger(), testJWTConfig())(mustNotCall(t))

	tests := []struct {
		name   string
		header string
	}{
		{name: "no Bearer prefix", header: "token123"},
		{name: "wrong prefix", header: "Basic token123"},
		{name: "only Bearer", header: "Bearer"},
		{name: "Bearer with blank token", header: "Bearer   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/news", nil)
			req.Header.Set("Authorization", tt.header)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assertAPIError(t, w, http.StatusUnauthorized, "invalid token format")
		})
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	jwtConfig := testJWTConfig()
	handler := AuthMiddleware(setupTestLogger(), jwtConfig)(mustNotCall(t))

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, handlers.AdminClaims{
		Role: handlers.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "editor",
			Issuer:    handlers.TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString(jwtConfig.Secret)
	require.NoError(t, err)

	otherSecret, _, err := handlers.GenerateAccessToken(handlers.JWTConfig{
		Secret:         []byte("secret-key-2"),
		AccessTokenTTL: time.Minute,
	}, "editor")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "malformed token", token: "invalid.token.here"},
		{name: "random string", token: "randomstring123"},
		{name: "expired token", token: expired},
		{name: "token with wrong secret", token: otherSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/news", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assertAPIError(t, w, http.StatusUnauthorized, "invalid token")
		})
	}
}

func TestAuthMiddleware_ForbiddenRole(t *testing.T) {
	jwtConfig := testJWTConfig()
	handler := AuthMiddleware(setupTestLogger(), jwtConfig)(mustNotCall(t))

	viewer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, handlers.AdminClaims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "guest",
			Issuer:    handlers.TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString(jwtConfig.Secret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/news/1", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assertAPIError(t, w, http.StatusForbidden, "token does not grant admin access")
}
