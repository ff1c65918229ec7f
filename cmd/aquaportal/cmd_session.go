package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/aquaportal/pkg/account"
	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/auth"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

var (
	loginEmail    string
	loginPassword string
	loginRole     string
)

// aquaportal login: authenticate as one role.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as a user, supplier or admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := readSecret(cmd, loginPassword, "Password")

		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			id, err := a.Session.Login(ctx, loginEmail, password, loginRole)
			if err != nil {
				return errors.New(session.LoginMessage(err))
			}

			name := id.Name
			if name == "" {
				name = "User"
			}
			a.Notices.Success("Welcome, %s!", name)
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: %s\n", id.Dashboard())
			return nil
		})
	},
}

// aquaportal logout: drop the stored session.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			a.Session.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		})
	},
}

// aquaportal whoami: show the current identity.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			id, ok := a.Session.Identity()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}

			tw := table(cmd.OutOrStdout())
			fmt.Fprintf(tw, "ID\t%s\n", id.ID)
			fmt.Fprintf(tw, "NAME\t%s\n", orDash(id.Name))
			fmt.Fprintf(tw, "EMAIL\t%s\n", id.Email)
			fmt.Fprintf(tw, "ROLE\t%s\n", id.Role)
			fmt.Fprintf(tw, "DASHBOARD\t%s\n", id.Dashboard())
			if exp, ok := auth.ExpiresAt(a.Session.Token()); ok {
				fmt.Fprintf(tw, "EXPIRES\t%s\n", when(exp))
			}
			return tw.Flush()
		})
	},
}

var signupForm account.SignupForm

// aquaportal signup: register an account.
var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new account (suppliers need GEO_LAT/GEO_LNG)",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := signupForm
		f.Password = readSecret(cmd, f.Password, "Password")
		if f.ConfirmPassword == "" {
			f.ConfirmPassword = readSecret(cmd, "", "Confirm password")
		}

		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			msg, err := a.Accounts.Signup(ctx, f)
			if err != nil {
				return errors.New(account.Message(err, account.FlowSignup))
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		})
	},
}

// ─── Password ────────────────────────────────────────────────────────────────

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change, forget or reset a password",
}

var changeForm account.ChangePasswordForm

var passwordChangeCmd = &cobra.Command{
	Use:   "change",
	Short: "Change the logged-in account's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := changeForm
		f.CurrentPassword = readSecret(cmd, f.CurrentPassword, "Current password")
		f.NewPassword = readSecret(cmd, f.NewPassword, "New password")
		f.ConfirmNewPassword = readSecret(cmd, f.ConfirmNewPassword, "Confirm new password")

		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			if _, ok := a.Session.Identity(); !ok {
				return errors.New("not logged in")
			}
			msg, err := a.Accounts.ChangePassword(ctx, f)
			if err != nil {
				return errors.New(account.Message(err, account.FlowChange))
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		})
	},
}

var forgotForm account.ForgotPasswordForm

var passwordForgotCmd = &cobra.Command{
	Use:   "forgot",
	Short: "Ask for a password reset link",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			msg, err := a.Accounts.ForgotPassword(ctx, forgotForm)
			if err != nil {
				return errors.New(account.Message(err, account.FlowForgot))
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		})
	},
}

var resetForm account.ResetPasswordForm

var passwordResetCmd = &cobra.Command{
	Use:   "reset <token>",
	Short: "Set a new password with the emailed reset token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := resetForm
		f.Token = args[0]
		f.Password = readSecret(cmd, f.Password, "New password")
		f.ConfirmPassword = readSecret(cmd, f.ConfirmPassword, "Confirm new password")

		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			msg, err := a.Accounts.ResetPassword(ctx, f)
			if err != nil {
				return errors.New(account.Message(err, account.FlowReset))
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (read from stdin when empty)")
	loginCmd.Flags().StringVar(&loginRole, "role", string(session.RoleUser), "user, supplier or admin")

	signupCmd.Flags().StringVar(&signupForm.Name, "name", "", "display name")
	signupCmd.Flags().StringVar(&signupForm.Email, "email", "", "account email")
	signupCmd.Flags().StringVar(&signupForm.Password, "password", "", "password (read from stdin when empty)")
	signupCmd.Flags().StringVar(&signupForm.ConfirmPassword, "confirm", "", "password again")
	signupCmd.Flags().StringVar(&signupForm.Role, "role", string(session.RoleUser), "user, supplier or admin")

	passwordChangeCmd.Flags().StringVar(&changeForm.CurrentPassword, "current", "", "current password")
	passwordChangeCmd.Flags().StringVar(&changeForm.NewPassword, "new", "", "new password")
	passwordChangeCmd.Flags().StringVar(&changeForm.ConfirmNewPassword, "confirm", "", "new password again")

	passwordForgotCmd.Flags().StringVar(&forgotForm.Email, "email", "", "account email")
	passwordForgotCmd.Flags().StringVar(&forgotForm.Role, "role", string(session.RoleUser), "user, supplier or admin")

	passwordResetCmd.Flags().StringVar(&resetForm.Password, "password", "", "new password")
	passwordResetCmd.Flags().StringVar(&resetForm.ConfirmPassword, "confirm", "", "new password again")
	passwordResetCmd.Flags().StringVar(&resetForm.Role, "role", string(session.RoleUser), "user, supplier or admin")

	passwordCmd.AddCommand(passwordChangeCmd, passwordForgotCmd, passwordResetCmd)
}
