// Package views is the console's presentation layer: thin cobra commands
// over the session manager, guard and stream controller.
package views

import (
	"github.com/spf13/cobra"

	"faceconsole/internal/app"
)

// NewRootCmd builds the command tree.
func NewRootCmd(a *app.App) *cobra.Command {
	root := &cobra.Command{
		Use:           "faceconsole",
		Short:         "Console for the face-recognition student identification system",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRegisterSuperAdminCmd(a),
		newAdminsCmd(a),
		newStudentsCmd(a),
		newDashboardCmd(a),
		newAlertsCmd(a),
		newSettingsCmd(a),
		newThemeCmd(a),
		newMonitorCmd(a),
		newUploadCmd(a),
	)
	return root
}
