package views

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"faceconsole/internal/app"
	"faceconsole/internal/dto"
)

// newAdminsCmd is the admin-management view. Every subcommand is gated on
// the administrator role; a signed-in standard user is refused with the
// landing message, not the sign-in one.
func newAdminsCmd(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admins",
		Short: "Manage administrator accounts",
	}
	cmd.AddCommand(
		newAdminsListCmd(a),
		newAdminsAddCmd(a),
		newAdminsUpdateCmd(a),
		newAdminsDeleteCmd(a),
	)
	return cmd
}

func newAdminsListCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAdmin(cmd.Context(), a); err != nil {
				return err
			}

			users, err := a.API.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tACTIVE\tLAST LOGIN")
			for _, u := range users {
				lastLogin := "-"
				if u.LastLogin != nil {
					lastLogin = u.LastLogin.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n",
					u.ID, u.Username, u.Email, roleLabel(u), u.IsActive, lastLogin)
			}
			return w.Flush()
		},
	}
}

func newAdminsAddCmd(a *app.App) *cobra.Command {
	var req dto.CreateUserRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAdmin(cmd.Context(), a); err != nil {
				return err
			}

			user, err := a.API.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "username")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	cmd.Flags().BoolVar(&req.IsSuperuser, "superuser", false, "grant the administrator role")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAdminsUpdateCmd(a *app.App) *cobra.Command {
	var (
		username, email, password string
		active, superuser         bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(cmd.Context(), a); err != nil {
				return err
			}

			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id %q", args[0])
			}

			req := dto.UpdateUserRequest{
				IsActive:    boolFlag(cmd.Flags().Changed("active"), active),
				IsSuperuser: boolFlag(cmd.Flags().Changed("superuser"), superuser),
			}
			if cmd.Flags().Changed("username") {
				req.Username = &username
			}
			if cmd.Flags().Changed("email") {
				req.Email = &email
			}
			if cmd.Flags().Changed("password") {
				req.Password = &password
			}

			user, err := a.API.UpdateUser(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "new username")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().BoolVar(&active, "active", true, "account enabled")
	cmd.Flags().BoolVar(&superuser, "superuser", false, "administrator role")
	return cmd
}

func newAdminsDeleteCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAdmin(cmd.Context(), a); err != nil {
				return err
			}

			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id %q", args[0])
			}
			if err := a.API.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %d\n", id)
			return nil
		},
	}
}
