package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/khural/internal/client/config"
	"github.com/iudanet/khural/internal/client/overrides"
	"github.com/iudanet/khural/internal/reconcile"
)

func newWatchCmd(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <entity>",
		Short: "Keep printing the display list as overrides change (here or in another process)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseEntityArg(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			base, err := app.loadBase(ctx, entityType, false)
			if err != nil {
				return err
			}

			list := reconcile.NewList(ctx, app.store, entityType, base, app.logger)
			defer list.Close()

			go func() {
				err := app.store.Watch(ctx)
				switch {
				case err == nil, errors.Is(err, context.Canceled):
				case errors.Is(err, overrides.ErrWatchUnsupported):
					app.logger.Warn("Backend does not report changes made by other processes, use --backend file")
				default:
					app.logger.Error("Override watcher stopped", "error", err)
				}
			}()

			var tick <-chan time.Time
			if interval > 0 {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				tick = ticker.C
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tick:
					if base, err := app.loadBase(ctx, entityType, false); err == nil {
						list.SetBase(ctx, base)
					} else {
						app.logger.Warn("Failed to refresh server list", "error", err)
					}
				case _, ok := <-list.Changes():
					if !ok {
						return nil
					}
					if app.cfg.Format == config.FormatTable {
						app.io.Printf("--- %s %s ---\n", entityType, time.Now().Format(time.TimeOnly))
					}
					if err := app.renderRows(list.Rows()); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Also reload the server list at this interval (0 disables)")
	return cmd
}
