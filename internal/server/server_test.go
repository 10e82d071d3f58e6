package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/khural/internal/client/api"
	"github.com/iudanet/khural/internal/models"
	"github.com/iudanet/khural/internal/server/config"
	"github.com/iudanet/khural/internal/server/handlers"
	"github.com/iudanet/khural/internal/server/middleware"
	"github.com/iudanet/khural/internal/server/storage/sqlite"
	pkgapi "github.com/iudanet/khural/pkg/api"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            "0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database:  config.DatabaseConfig{Path: ":memory:"},
		JWT:       config.JWTConfig{Expiration: time.Hour},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 1000, Enabled: true},
		Logging:   config.LoggingConfig{Level: "error"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(context.Background(), cfg.Database.Path)
	require.NoError(t, err)

	s := New(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)), "test")
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
		_ = store.Close()
	})
	return ts
}

func TestServer_ClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.DropFields = []string{"photoUrl"}
	ts := newTestServer(t, cfg)

	deputies := api.NewClient(ts.URL).For(models.EntityDeputies)

	created, err := deputies.Create(ctx, models.Entity{"name": "Ivan", "photoUrl": "a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "1", created.ID())
	assert.NotContains(t, created, "photoUrl", "server drops unsupported fields")

	updated, err := deputies.Update(ctx, "1", models.Entity{"bio": "text"})
	require.NoError(t, err)
	assert.Equal(t, "text", updated["bio"])

	list, err := deputies.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ivan", list[0]["name"])

	require.NoError(t, deputies.Remove(ctx, "1"))

	_, err = deputies.Update(ctx, "1", models.Entity{"bio": "x"})
	require.Error(t, err)
	assert.True(t, pkgapi.IsNotFound(err))

	err = deputies.Remove(ctx, "1")
	assert.True(t, pkgapi.IsNotFound(err))

	health, err := api.NewClient(ts.URL).Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestServer_AuthEnabled(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.JWT.Secret = "s3cret"
	ts := newTestServer(t, cfg)

	// Без токена
	_, err := api.NewClient(ts.URL).List(ctx, models.EntityNews)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, pkgapi.StatusCode(err))

	// Health check открыт
	_, err = api.NewClient(ts.URL).Health(ctx)
	require.NoError(t, err)

	token, _, err := handlers.GenerateAccessToken(JWTConfig(cfg), "editor")
	require.NoError(t, err)

	list, err := api.NewClient(ts.URL, api.WithToken(token)).List(ctx, models.EntityNews)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestServer_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerMinute = 2
	ts := newTestServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/api/v1/pages")
		require.NoError(t, err)
		_ = resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestServer_RequestIDAndErrorFormat(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/api/v1/users")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	var body pkgapi.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unknown entity type", body.Message)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	s := New(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)), "test")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
