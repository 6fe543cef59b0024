package views

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"faceconsole/internal/app"
	"faceconsole/internal/dto"
	"faceconsole/internal/session"
)

func newLoginCmd(a *app.App) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Username: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				username = strings.TrimSpace(line)
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				password = strings.TrimSpace(line)
			}

			if !a.Session.Login(cmd.Context(), username, password) {
				if err := a.Session.LastError(); err != nil {
					a.Logger.Warning("login attempt failed: %v", err)
				}
				return fmt.Errorf("login failed: check username and password")
			}

			identity := a.Session.Identity()
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", identity.ID, identity.Role)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and purge the persisted token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			restoreOnce(cmd.Context(), a)
			a.Session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app.App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAuth(cmd.Context(), a); err != nil {
				return err
			}

			identity := a.Session.Identity()
			fmt.Fprintf(cmd.OutOrStdout(), "Subject: %s\nRole:    %s\n", identity.ID, identity.Role)
			if p := identity.Profile; p != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Email:   %s\nActive:  %t\n", p.Email, p.IsActive)
			}
			return nil
		},
	}
}

func newRegisterSuperAdminCmd(a *app.App) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register-superadmin",
		Short: "Create the initial superuser account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.API.RegisterSuperAdmin(cmd.Context(), dto.CreateUserRequest{
				Username:    username,
				Email:       email,
				Password:    password,
				IsSuperuser: true,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created superuser %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// roleLabel renders the role column for account listings.
func roleLabel(u dto.User) session.Role {
	if u.IsSuperuser {
		return session.RoleAdmin
	}
	return session.RoleUser
}
