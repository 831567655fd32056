package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"middag/internal/app"
	"middag/internal/i18n"
	"middag/internal/menu"
	"middag/internal/planner"
	"middag/internal/share"
)

func newPlanCmd(a *App) *cobra.Command {
	var (
		file       string
		url        string
		lang       string
		policy     string
		categories []string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate a weekly dinner plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && url == "" {
				file, url = a.Config.MenuFile, a.Config.MenuURL
			}
			if file == "" && url == "" {
				return fmt.Errorf("MENU_URL or MENU_FILE environment variable not set")
			}

			gen := planner.NewGenerator(planner.WithLogger(a.Logger))
			p := app.NewPlanner(menu.NewClient(url, file), gen,
				app.WithDefaults(a.Config.DefaultLanguage, a.Config.DefaultPolicy),
				app.WithPlannerLogger(a.Logger),
			)

			req := app.NewStateRequest{Language: lang, Policy: policy}
			if cmd.Flags().Changed("category") {
				req.Categories = categories
			}
			st, err := p.NewState(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("generating plan: %w", err)
			}

			if asJSON {
				return writeStateJSON(cmd.OutOrStdout(), st)
			}
			printPlan(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Read the menu from an .xlsx or .html file")
	cmd.Flags().StringVar(&url, "url", "", "Fetch the menu from a published spreadsheet URL")
	cmd.Flags().StringVar(&lang, "lang", "", "Language of day labels (en, no, es)")
	cmd.Flags().StringVar(&policy, "policy", "", "Selection policy (random or weighted)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Category to include (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the shared plan document instead of text")
	return cmd
}

func printPlan(w io.Writer, st share.State) {
	fmt.Fprintln(w, i18n.T(st.Language, i18n.KeyWeeklyPlanTitle, nil))
	fmt.Fprintln(w, planner.CopyText(st.Plan))
}

func writeStateJSON(w io.Writer, st share.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
