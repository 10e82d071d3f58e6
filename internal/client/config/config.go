// Package config загружает настройки клиента из флагов, переменных окружения
// KHURAL_* и необязательного YAML файла.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения, например KHURAL_SERVER
const EnvPrefix = "KHURAL"

// Бэкенды хранилища переопределений
const (
	BackendBolt   = "bolt"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Форматы вывода
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Ключи настроек (совпадают с именами флагов)
const (
	KeyConfig       = "config"
	KeyServer       = "server"
	KeyToken        = "token"
	KeyBackend      = "backend"
	KeyDB           = "db"
	KeyStateDir     = "state-dir"
	KeyLogLevel     = "log-level"
	KeyTimeout      = "timeout"
	KeyVersionCheck = "version-check"
	KeyFormat       = "format"
)

// Config настройки клиента
type Config struct {
	ServerURL    string
	Token        string
	Backend      string
	DBPath       string
	StateDir     string
	LogLevel     string
	Format       string
	Timeout      time.Duration
	VersionCheck bool
}

// RegisterFlags добавляет флаги настроек в набор (обычно persistent флаги корневой команды)
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfig, "", "Path to config file (default: ~/.config/khural/config.yaml if present)")
	fs.String(KeyServer, "http://localhost:8080", "Server URL")
	fs.String(KeyToken, "", "Bearer token for the API")
	fs.String(KeyBackend, BackendBolt, "Override storage backend (bolt|file|memory)")
	fs.String(KeyDB, "khural-client.db", "Path to bolt database (backend=bolt)")
	fs.String(KeyStateDir, "khural-state", "Directory for override files (backend=file)")
	fs.String(KeyLogLevel, "warn", "Log level (debug|info|warn|error)")
	fs.Duration(KeyTimeout, 30*time.Second, "HTTP request timeout")
	fs.Bool(KeyVersionCheck, false, "Reject stale override writes and retry on the fresh record")
	fs.String(KeyFormat, FormatTable, "Output format (table|json|yaml)")
}

// Load собирает настройки. Приоритет: флаг > KHURAL_* > файл > значение флага по умолчанию.
// flags может быть nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Переменные окружения: KHURAL_STATE_DIR -> "state-dir"
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyServer, "http://localhost:8080")
	v.SetDefault(KeyBackend, BackendBolt)
	v.SetDefault(KeyDB, "khural-client.db")
	v.SetDefault(KeyStateDir, "khural-state")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyVersionCheck, false)
	v.SetDefault(KeyFormat, FormatTable)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if path := configFile(v.GetString(KeyConfig)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		ServerURL:    v.GetString(KeyServer),
		Token:        v.GetString(KeyToken),
		Backend:      strings.ToLower(v.GetString(KeyBackend)),
		DBPath:       v.GetString(KeyDB),
		StateDir:     v.GetString(KeyStateDir),
		LogLevel:     strings.ToLower(v.GetString(KeyLogLevel)),
		Format:       strings.ToLower(v.GetString(KeyFormat)),
		Timeout:      v.GetDuration(KeyTimeout),
		VersionCheck: v.GetBool(KeyVersionCheck),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configFile возвращает явно заданный файл или пользовательский файл по умолчанию
func configFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "khural", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Validate проверяет настройки
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.ServerURL) == "" {
		errs = append(errs, errors.New("server URL is required"))
	}

	switch c.Backend {
	case BackendBolt:
		if c.DBPath == "" {
			errs = append(errs, errors.New("db path is required for bolt backend"))
		}
	case BackendFile:
		if c.StateDir == "" {
			errs = append(errs, errors.New("state dir is required for file backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want bolt, file or memory)", c.Backend))
	}

	switch c.Format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		errs = append(errs, fmt.Errorf("unknown format %q (want table, json or yaml)", c.Format))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel возвращает уровень логирования
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
