package views

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"faceconsole/internal/app"
)

func newDashboardCmd(a *app.App) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show recognition statistics and trends",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}

			if err := renderDashboard(cmd.Context(), a, cmd.OutOrStdout()); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			// Poll on a fixed interval until interrupted. Failed polls keep
			// the last-known-good values on screen.
			ticker := time.NewTicker(a.Config.StatsPollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					if err := renderDashboard(cmd.Context(), a, cmd.OutOrStdout()); err != nil {
						a.Logger.Warning("stats poll failed: %v", err)
					}
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "refresh on the polling interval")
	return cmd
}

func renderDashboard(ctx context.Context, a *app.App, out io.Writer) error {
	stats, err := a.API.DashboardStats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Students enrolled:   %d\n", stats.TotalStudents)
	fmt.Fprintf(out, "Recognized today:    %d\n", stats.RecognizedToday)
	fmt.Fprintf(out, "Unrecognized today:  %d\n", stats.UnrecognizedToday)
	fmt.Fprintf(out, "Active alerts:       %d\n", stats.ActiveAlerts)
	fmt.Fprintf(out, "Recognition rate:    %.1f%%\n", stats.RecognitionRate)

	// Trend fetch failure is non-critical: stats already rendered.
	trends, err := a.API.DashboardTrends(ctx)
	if err != nil {
		a.Logger.Warning("trends fetch failed: %v", err)
		return nil
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tRECOGNIZED\tUNRECOGNIZED")
	for _, p := range trends {
		fmt.Fprintf(w, "%s\t%d\t%d\n", p.Day, p.Recognized, p.Unrecognized)
	}
	return w.Flush()
}
