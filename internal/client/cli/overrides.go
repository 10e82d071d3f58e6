package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newOverridesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Inspect or reset local overrides",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <entity>",
		Short: "Print the override record of an entity type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseEntityArg(args[0])
			if err != nil {
				return err
			}
			return app.renderRecord(entityType, app.store.Read(cmd.Context(), entityType))
		},
	})

	var yes bool
	reset := &cobra.Command{
		Use:   "reset <entity>",
		Short: "Drop all local overrides of an entity type (unsynced changes are lost)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseEntityArg(args[0])
			if err != nil {
				return err
			}
			if !yes {
				answer, err := app.io.ReadInput("Discard all local overrides for " + entityType.String() + "? [y/N]: ")
				if err != nil {
					return err
				}
				if a := strings.ToLower(answer); a != "y" && a != "yes" {
					app.io.Println("Aborted.")
					return nil
				}
			}
			app.store.Clear(cmd.Context(), entityType)
			app.io.Printf("Overrides for %s reset.\n", entityType)
			return nil
		},
	}
	reset.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(reset)

	return cmd
}
