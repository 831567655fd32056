// Package cli implements the middag command line.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"middag/internal/config"
)

// App holds what the commands share.
type App struct {
	Config *config.Config
	Logger *slog.Logger
}

// NewRootCmd creates the top-level "middag" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	if app.Logger == nil {
		app.Logger = slog.Default()
	}

	root := &cobra.Command{
		Use:           "middag",
		Short:         "Weekly dinner planner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newPlanCmd(app),
		newShowCmd(app),
		newMetricsCmd(app),
		newMetricsCleanupCmd(app),
	)

	return root
}
