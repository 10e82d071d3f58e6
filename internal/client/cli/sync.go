package cli

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/khural/internal/client/config"
	"github.com/iudanet/khural/internal/models"
)

func newSyncCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sync [entity]",
		Short: "Resubmit locally saved creates and patches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var types []models.EntityType
			switch {
			case all:
				types = models.EntityTypes()
			case len(args) == 1:
				entityType, err := parseEntityArg(args[0])
				if err != nil {
					return err
				}
				types = []models.EntityType{entityType}
			default:
				return cmd.Help()
			}

			for _, entityType := range types {
				results := app.coordinator(entityType).Resync(cmd.Context())
				if len(results) == 0 && all {
					continue
				}
				if app.cfg.Format == config.FormatTable {
					app.io.Printf("== %s ==\n", entityType)
				}
				if err := app.renderResults(results); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Sync every entity type")
	return cmd
}
