package views

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"faceconsole/internal/app"
)

func newStudentsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage student face records",
	}
	cmd.AddCommand(newStudentsListCmd(a), newStudentsDeleteFaceCmd(a))
	return cmd
}

func newStudentsListCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enrolled face records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}

			records, err := a.API.ListStudents(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FACE ID\tSTUDENT\tCREATED\tLAST DETECTED\tSTATUS")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.FaceID, r.StudentID, r.CreatedAt, orDash(r.LastDetected), orDash(r.Status))
			}
			return w.Flush()
		},
	}
}

func newStudentsDeleteFaceCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-face <face-id>",
		Short: "Delete one face-data record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}

			if err := a.API.DeleteFaceData(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted face record %s\n", args[0])
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
