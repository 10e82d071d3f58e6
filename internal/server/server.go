// Package server собирает dev REST сервер сущностей панели управления:
// хранилище, handlers и цепочку middleware.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/khural/internal/server/config"
	"github.com/iudanet/khural/internal/server/handlers"
	"github.com/iudanet/khural/internal/server/middleware"
	"github.com/iudanet/khural/internal/server/storage"
	"github.com/iudanet/khural/pkg/api"
)

// Store хранилище сервера
type Store interface {
	storage.EntityStorage
	handlers.Pinger
}

// Server HTTP сервер сущностей
type Server struct {
	logger  *slog.Logger
	limiter *middleware.RateLimiter
	handler http.Handler
	cfg     *config.Config
}

// New собирает сервер. Цепочка: request id -> recovery -> logging -> rate limit,
// затем для маршрутов сущностей проверка JWT, если задан секрет.
func New(cfg *config.Config, store Store, logger *slog.Logger, version string) *Server {
	s := &Server{
		logger: logger,
		cfg:    cfg,
	}

	var protect []mux.MiddlewareFunc
	if cfg.JWT.AuthEnabled() {
		protect = append(protect, middleware.AuthMiddleware(logger, JWTConfig(cfg)))
	} else {
		logger.Warn("JWT_SECRET is not set, entity API is open")
	}

	router := handlers.NewRouter(
		handlers.NewEntityHandler(logger, store, cfg.DropFields),
		handlers.NewHealthHandler(logger, version, store),
		protect...,
	)

	var h http.Handler = router
	if cfg.RateLimit.Enabled && cfg.RateLimit.RequestsPerMinute > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
		h = middleware.RateLimitMiddleware(s.limiter, logger)(h)
	}
	h = middleware.LoggingWithSkip(logger, []string{api.BasePath + "/health"})(h)
	h = middleware.RecoveryMiddleware(logger)(h)
	s.handler = middleware.RequestIDMiddleware(h)

	return s
}

// JWTConfig параметры токенов из конфигурации сервера
func JWTConfig(cfg *config.Config) handlers.JWTConfig {
	return handlers.JWTConfig{
		Secret:         []byte(cfg.JWT.Secret),
		AccessTokenTTL: cfg.JWT.Expiration,
	}
}

// Handler возвращает корневой обработчик со всеми middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve обслуживает запросы на ln до отмены ctx, затем корректно завершает работу
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// ListenAndServe слушает адрес из конфигурации
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Close останавливает фоновые задачи middleware
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
