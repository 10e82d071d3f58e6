package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/khural/internal/server"
	"github.com/iudanet/khural/internal/server/config"
	"github.com/iudanet/khural/internal/server/handlers"
	"github.com/iudanet/khural/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("khural-server", flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "Show version information")
	envFile := fs.String("env", ".env", "Path to .env file")
	issueToken := fs.String("issue-token", "", "Print an admin access token for the given subject and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Show version and exit if requested
	if *showVersion {
		printVersion(stdout)
		return nil
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Logging.SlogLevel(),
	}))

	if *issueToken != "" {
		if !cfg.JWT.AuthEnabled() {
			return errors.New("JWT_SECRET must be set to issue tokens")
		}
		token, _, err := handlers.GenerateAccessToken(server.JWTConfig(cfg), *issueToken)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, token)
		return err
	}

	store, err := sqlite.New(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	logger.Info("Khural server starting",
		"version", Version,
		"addr", cfg.Server.Addr(),
		"db", cfg.Database.Path,
		"auth", cfg.JWT.AuthEnabled(),
		"drop_fields", cfg.DropFields)

	return server.New(cfg, store, logger, Version).ListenAndServe(ctx)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Khural Server\n")
	fmt.Fprintf(w, "Version:    %s\n", Version)
	fmt.Fprintf(w, "Build Date: %s\n", BuildDate)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
}
