package views

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"faceconsole/internal/app"
	"faceconsole/internal/live"
)

func newAlertsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "View and dismiss security alerts",
	}
	cmd.AddCommand(newAlertsListCmd(a), newAlertsDeleteCmd(a), newAlertsFollowCmd(a))
	return cmd
}

func newAlertsListCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}

			alerts, err := a.API.ListAlerts(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSEVERITY\tMESSAGE\tLOCATION\tTIME")
			for _, al := range alerts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					al.ID, orDash(al.Severity), orDash(al.Message), orDash(al.Location), orDash(al.Time))
			}
			return w.Flush()
		},
	}
}

func newAlertsDeleteCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Dismiss an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}

			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid alert id %q", args[0])
			}
			if err := a.API.DeleteAlert(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed alert %d\n", id)
			return nil
		},
	}
}

// newAlertsFollowCmd subscribes to the notification channel and prints
// events as they arrive, until interrupted.
func newAlertsFollowCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "follow",
		Short: "Stream new alerts as they happen",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}

			stream := live.NewEventStream(
				a.API.WebsocketURL("/ws"),
				live.FixedDelay(a.Config.ReconnectDelay),
				a.Logger,
			)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return stream.Run(ctx)
			})
			g.Go(func() error {
				for {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case ev := <-stream.Events():
						fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s (%s)\n",
							orDash(ev.Time), ev.Headline(), orDash(ev.Location))
					}
				}
			})

			fmt.Fprintln(cmd.OutOrStdout(), "Following alerts, Ctrl-C to stop...")
			if err := g.Wait(); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
