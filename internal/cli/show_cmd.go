package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"middag/internal/app"
	"middag/internal/share"
)

func newShowCmd(a *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a shared plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.OpenBackend(a.Config)
			if err != nil {
				return err
			}
			defer backend.Close()

			data, err := backend.Store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading plan %s: %w", args[0], err)
			}
			st, err := share.Decode(data)
			if err != nil {
				return err
			}

			if asJSON {
				return writeStateJSON(cmd.OutOrStdout(), st)
			}
			printPlan(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored document")
	return cmd
}
