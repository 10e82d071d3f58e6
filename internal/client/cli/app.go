// Package cli реализует команды клиента админки: просмотр сводного списка,
// запись сущностей с откатом к локальным переопределениям и управление ими.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iudanet/khural/internal/client/api"
	"github.com/iudanet/khural/internal/client/config"
	"github.com/iudanet/khural/internal/client/coordinator"
	"github.com/iudanet/khural/internal/client/events"
	"github.com/iudanet/khural/internal/client/identity"
	"github.com/iudanet/khural/internal/client/iocli"
	"github.com/iudanet/khural/internal/client/overrides"
	"github.com/iudanet/khural/internal/client/storage"
	"github.com/iudanet/khural/internal/client/storage/boltdb"
	"github.com/iudanet/khural/internal/client/storage/filestore"
	"github.com/iudanet/khural/internal/client/storage/memory"
	"github.com/iudanet/khural/internal/models"
)

// BuildInfo сведения о сборке (задаются через ldflags)
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// App состояние одного запуска CLI
type App struct {
	io        iocli.IO
	logOut    io.Writer
	cfg       *config.Config
	logger    *slog.Logger
	kv        storage.KVStorage
	closeKV   func() error
	bus       *events.Bus
	store     *overrides.Store
	snapshots *overrides.Snapshots
	resolver  *identity.Resolver
	client    *api.Client
	build     BuildInfo
}

// Option настраивает App
type Option func(*App)

// WithIO задает ввод/вывод команд
func WithIO(out iocli.IO) Option {
	return func(a *App) {
		a.io = out
	}
}

// WithLogOutput задает поток для логов (по умолчанию stderr)
func WithLogOutput(w io.Writer) Option {
	return func(a *App) {
		a.logOut = w
	}
}

// WithStorage подменяет бэкенд переопределений, выбранный настройками
func WithStorage(kv storage.KVStorage) Option {
	return func(a *App) {
		a.kv = kv
	}
}

// WithBuildInfo задает сведения о сборке для команды version
func WithBuildInfo(build BuildInfo) Option {
	return func(a *App) {
		a.build = build
	}
}

// Execute выполняет CLI с аргументами args
func Execute(ctx context.Context, args []string, opts ...Option) error {
	app := &App{
		io:     iocli.NewStdio(),
		logOut: os.Stderr,
		build:  BuildInfo{Version: "dev", BuildDate: "unknown", GitCommit: "unknown"},
	}
	for _, opt := range opts {
		opt(app)
	}
	defer app.close()

	cmd := NewRootCmd(app)
	cmd.SetArgs(args)
	cmd.SetOut(app.io)
	cmd.SetErr(app.logOut)
	return cmd.ExecuteContext(ctx)
}

// NewRootCmd создает корневую команду
func NewRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "khural",
		Short:        "Khural admin client with local-first overrides",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Show the display list (server list merged with local overrides)
  khural list committees

  # Create, edit and delete; failed writes are kept locally
  khural create committees name=Budget seats=7
  khural update deputies 42 'committees=["budget","ecology"]'
  khural delete news 13

  # Retry everything saved locally
  khural sync committees
`),
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[annotationNoSetup] == "true" {
			return nil
		}
		return app.setup(cmd.Context(), cmd.Flags())
	}

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newCreateCmd(app))
	cmd.AddCommand(newUpdateCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newSyncCmd(app))
	cmd.AddCommand(newOverridesCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

const annotationNoSetup = "khural/no-setup"

func (a *App) setup(ctx context.Context, flags *pflag.FlagSet) error {
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if a.kv == nil {
		kv, closeKV, err := openStorage(ctx, cfg, a.logger)
		if err != nil {
			return err
		}
		a.kv = kv
		a.closeKV = closeKV
	}

	a.bus = events.NewBus(a.logger)
	a.store = overrides.NewStore(a.kv, a.bus, a.logger, overrides.WithVersionCheck(cfg.VersionCheck))
	a.snapshots = overrides.NewSnapshots(a.kv, a.logger)
	a.resolver = identity.NewResolver(a.store, identity.NewGenerator(), a.logger)
	a.client = api.NewClient(cfg.ServerURL, api.WithToken(cfg.Token), api.WithTimeout(cfg.Timeout))

	a.logger.Debug("Client initialized",
		"server", cfg.ServerURL,
		"backend", cfg.Backend)
	return nil
}

func (a *App) close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.closeKV != nil {
		if err := a.closeKV(); err != nil && a.logger != nil {
			a.logger.Error("Failed to close storage", "error", err)
		}
	}
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.KVStorage, func() error, error) {
	switch cfg.Backend {
	case config.BackendBolt:
		st, err := boltdb.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return st, st.Close, nil
	case config.BackendFile:
		st, err := filestore.New(cfg.StateDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open state dir: %w", err)
		}
		return st, nil, nil
	default:
		return memory.New().Handle(), nil, nil
	}
}

func (a *App) coordinator(entityType models.EntityType) *coordinator.Coordinator {
	return coordinator.New(entityType, a.client.For(entityType), a.store, a.resolver, a.logger,
		coordinator.WithSnapshots(a.snapshots))
}

func entityTypeNames() []string {
	types := models.EntityTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.String())
	}
	return names
}

func parseEntityArg(arg string) (models.EntityType, error) {
	t, err := models.ParseEntityType(arg)
	if err != nil {
		return "", fmt.Errorf("%w (known: %s)", err, strings.Join(entityTypeNames(), ", "))
	}
	return t, nil
}
