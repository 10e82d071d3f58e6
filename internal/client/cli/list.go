package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/khural/internal/models"
	"github.com/iudanet/khural/internal/reconcile"
)

func newListCmd(app *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:       "list <entity>",
		Short:     "Show the display list: server list merged with local overrides",
		Args:      cobra.ExactArgs(1),
		ValidArgs: entityTypeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseEntityArg(args[0])
			if err != nil {
				return err
			}
			base, err := app.loadBase(cmd.Context(), entityType, offline)
			if err != nil {
				return err
			}
			rows := reconcile.MergeWithStatus(base, app.store.Read(cmd.Context(), entityType))
			return app.renderRows(rows)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Do not contact the server, use the last cached list")
	return cmd
}

// loadBase загружает серверный список. Если сервер недоступен, используется
// последний сохраненный снимок с предупреждением; без снимка ошибка возвращается.
func (a *App) loadBase(ctx context.Context, entityType models.EntityType, offline bool) ([]models.Entity, error) {
	if !offline {
		base, err := a.coordinator(entityType).Load(ctx)
		if err == nil {
			return base, nil
		}
		snap, ok := a.snapshots.Load(ctx, entityType)
		if !ok {
			return nil, err
		}
		a.logger.Warn("Server list unavailable, using cached copy",
			"entity_type", entityType.String(),
			"saved_at", snap.SavedAt.Format(time.RFC3339),
			"error", err)
		return snap.Items, nil
	}

	snap, ok := a.snapshots.Load(ctx, entityType)
	if !ok {
		return nil, fmt.Errorf("no cached list for %s, run without --offline first", entityType)
	}
	return snap.Items, nil
}
