// Package config загружает конфигурацию dev-сервера сущностей из окружения и .env.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iudanet/khural/internal/validation"
)

// Config конфигурация сервера
type Config struct {
	Logging    LoggingConfig
	Server     ServerConfig
	Database   DatabaseConfig
	DropFields []string `validate:"dive,fieldname"`
	JWT        JWTConfig
	RateLimit  RateLimitConfig
}

// ServerConfig параметры HTTP сервера
type ServerConfig struct {
	Host            string        `validate:"omitempty,hostname|ip"`
	Port            string        `validate:"required,numeric"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// DatabaseConfig параметры хранилища сущностей
type DatabaseConfig struct {
	// Path путь к файлу SQLite; ":memory:" для хранилища в памяти
	Path string `validate:"required"`
}

// JWTConfig параметры авторизации. Пустой Secret отключает проверку токенов
type JWTConfig struct {
	Secret     string
	Expiration time.Duration `validate:"gt=0"`
}

// RateLimitConfig ограничение частоты запросов по IP
type RateLimitConfig struct {
	RequestsPerMinute int `validate:"gte=0"`
	Enabled           bool
}

// LoggingConfig параметры логирования
type LoggingConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

// Addr адрес для http.Server
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// AuthEnabled сообщает, что API требует bearer токен
func (c JWTConfig) AuthEnabled() bool {
	return c.Secret != ""
}

// SlogLevel уровень логирования для slog
func (c LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load читает переменные окружения, предварительно загрузив envFiles
// (по умолчанию ".env"). Отсутствующий .env не является ошибкой;
// уже заданные переменные окружения не перезаписываются.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return d
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", ""),
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     duration("READ_TIMEOUT", "15s"),
			WriteTimeout:    duration("WRITE_TIMEOUT", "15s"),
			ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", "10s"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "khural.db"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", ""),
			Expiration: duration("JWT_EXPIRATION", "24h"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 300),
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		DropFields: getEnvAsList("KHURAL_DROP_FIELDS"),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения по тегам validate
func (c *Config) Validate() error {
	if err := validation.New().Struct(c); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList разбирает список через запятую, пропуская пустые элементы
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
