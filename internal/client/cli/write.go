package cli

import (
	"github.com/spf13/cobra"
)

func newCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create <entity> key=value...",
		Short: "Create an entity; if the server rejects it, keep it locally",
		Long: `Create an entity on the server. On failure the entity is saved locally
with a local id (local-...) and shown in the list until it is synced.
Pass id=local-... to resave an entity that so far exists only locally.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseEntityArg(args[0])
			if err != nil {
				return err
			}
			body, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			res := app.coordinator(entityType).SubmitCreate(cmd.Context(), body)
			return app.renderResult(res)
		},
	}
}

func newUpdateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "update <entity> <id> key=value...",
		Short: "Patch an entity; if the server rejects it, keep the patch locally",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseEntityArg(args[0])
			if err != nil {
				return err
			}
			patch, err := parseFields(args[2:])
			if err != nil {
				return err
			}
			res := app.coordinator(entityType).SubmitUpdate(cmd.Context(), args[1], patch)
			return app.renderResult(res)
		},
	}
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete an entity; it disappears from the list even if the server call fails",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := parseEntityArg(args[0])
			if err != nil {
				return err
			}
			res := app.coordinator(entityType).SubmitDelete(cmd.Context(), args[1])
			return app.renderResult(res)
		},
	}
}
