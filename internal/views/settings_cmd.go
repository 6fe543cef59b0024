package views

import (
	"fmt"

	"github.com/spf13/cobra"

	"faceconsole/internal/app"
	"faceconsole/internal/dto"
)

func newSettingsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View and change system settings",
	}
	cmd.AddCommand(
		newSettingsShowCmd(a),
		newSettingsSetCmd(a),
		newSettingsMaintenanceCmd(a),
	)
	return cmd
}

func newSettingsShowCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}

			settings, err := a.API.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			printSettings(cmd, settings)
			return nil
		},
	}
}

func newSettingsSetCmd(a *app.App) *cobra.Command {
	var (
		twoFactor, systemNotifications, emailAlerts bool
		sessionTimeout                              int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings (only the flags you pass)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}

			update := dto.SettingsUpdate{
				TwoFactorAuth:       boolFlag(cmd.Flags().Changed("two-factor"), twoFactor),
				SessionTimeout:      intFlag(cmd.Flags().Changed("session-timeout"), sessionTimeout),
				SystemNotifications: boolFlag(cmd.Flags().Changed("system-notifications"), systemNotifications),
				EmailAlerts:         boolFlag(cmd.Flags().Changed("email-alerts"), emailAlerts),
			}
			if update == (dto.SettingsUpdate{}) {
				return fmt.Errorf("nothing to change: pass at least one setting flag")
			}
			if update.SessionTimeout != nil && (*update.SessionTimeout < 5 || *update.SessionTimeout > 120) {
				return fmt.Errorf("session timeout must be between 5 and 120 minutes")
			}

			settings, err := a.API.UpdateSettings(cmd.Context(), update)
			if err != nil {
				return err
			}
			printSettings(cmd, settings)
			return nil
		},
	}

	cmd.Flags().BoolVar(&twoFactor, "two-factor", false, "require two-factor authentication")
	cmd.Flags().IntVar(&sessionTimeout, "session-timeout", 30, "session timeout in minutes (5-120)")
	cmd.Flags().BoolVar(&systemNotifications, "system-notifications", true, "enable system notifications")
	cmd.Flags().BoolVar(&emailAlerts, "email-alerts", true, "enable email alerts")
	return cmd
}

func newSettingsMaintenanceCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Backend maintenance operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear-cache",
		Short: "Clear the recognition cache",
		RunE: func(c *cobra.Command, _ []string) error {
			if err := requireAdmin(c.Context(), a); err != nil {
				return err
			}
			if err := a.API.ClearCache(c.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), "Cache cleared")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Reload recognition data",
		RunE: func(c *cobra.Command, _ []string) error {
			if err := requireAdmin(c.Context(), a); err != nil {
				return err
			}
			if err := a.API.RefreshSystem(c.Context()); err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), "Refresh started")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cache-stats",
		Short: "Show recognition-cache statistics",
		RunE: func(c *cobra.Command, _ []string) error {
			if err := requireAdmin(c.Context(), a); err != nil {
				return err
			}
			stats, err := a.API.CacheStats(c.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "Entries:    %d\nSize:       %d bytes\nLast flush: %s\n",
				stats.Entries, stats.SizeBytes, orDash(stats.LastFlush))
			return nil
		},
	})

	return cmd
}

func printSettings(cmd *cobra.Command, s *dto.Settings) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Security")
	fmt.Fprintf(out, "  Two-factor auth:      %t\n", s.Security.TwoFactorAuth)
	fmt.Fprintf(out, "  Session timeout:      %d min\n", s.Security.SessionTimeout)
	fmt.Fprintln(out, "Notifications")
	fmt.Fprintf(out, "  System notifications: %t\n", s.Notifications.SystemNotifications)
	fmt.Fprintf(out, "  Email alerts:         %t\n", s.Notifications.EmailAlerts)
}
