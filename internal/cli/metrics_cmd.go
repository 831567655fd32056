package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"middag/internal/app"
	"middag/internal/metrics"
)

func newMetricsCmd(a *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show daily generation usage and system health",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := app.OpenBackend(a.Config)
			if err != nil {
				return err
			}
			defer backend.Close()

			usage, err := backend.Metrics.GetDailyUsage(cmd.Context(), days)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(usage) == 0 {
				fmt.Fprintln(out, "No generations recorded.")
			} else {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tPLANS\tLOCKED\tPLACEHOLDERS\tAVG MS\tWEIGHTED")
				for _, d := range usage {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.2f\t%.0f%%\n",
						d.Date, d.Generations, d.LockedSlots, d.Placeholders, d.AvgLatencyMS, d.WeightedShare*100)
				}
				tw.Flush()
			}

			h := metrics.GetSysHealth(a.Config.DataPath())
			fmt.Fprintf(out, "\nData: %s  RAM: %dMB  Goroutines: %d\n", h.DataDiskSize, h.AllocMB, h.Goroutines)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Number of days to report")
	return cmd
}

func newMetricsCleanupCmd(a *App) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Delete generation metrics older than --days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}
			backend, err := app.OpenBackend(a.Config)
			if err != nil {
				return err
			}
			defer backend.Close()

			n, err := backend.Metrics.Cleanup(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d metric records older than %d days.\n", n, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Keep records from the last N days")
	return cmd
}
