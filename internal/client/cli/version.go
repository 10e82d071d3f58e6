package cli

import (
	"github.com/spf13/cobra"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			app.io.Printf("Khural Client\n")
			app.io.Printf("Version:    %s\n", app.build.Version)
			app.io.Printf("Build Date: %s\n", app.build.BuildDate)
			app.io.Printf("Git Commit: %s\n", app.build.GitCommit)
		},
	}
}
