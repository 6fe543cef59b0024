package views

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"faceconsole/internal/app"
	"faceconsole/internal/store"
)

const themeKey = "theme"

// newThemeCmd manages the persisted light/dark display preference.
func newThemeCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme [light|dark]",
		Short: "Show or set the display theme preference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				theme, err := a.Store.GetPreference(themeKey)
				if errors.Is(err, store.ErrNotFound) {
					theme = "light"
				} else if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), theme)
				return nil
			}

			theme := args[0]
			if theme != "light" && theme != "dark" {
				return fmt.Errorf("unknown theme %q: use light or dark", theme)
			}
			if err := a.Store.SetPreference(themeKey, theme); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s\n", theme)
			return nil
		},
	}
	return cmd
}
