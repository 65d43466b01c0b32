package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/marcus/sheetdash/internal/apiclient"
	"github.com/marcus/sheetdash/internal/config"
	"github.com/marcus/sheetdash/internal/output"
	"github.com/marcus/sheetdash/internal/validate"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in to the dashboard server",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := validate.Login{}
		in.Username, _ = cmd.Flags().GetString("username")
		in.Password, _ = cmd.Flags().GetString("password")

		if (in.Username == "" || in.Password == "") && interactive() {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Username").Value(&in.Username).
					Validate(validate.Required("username", "Username is required")),
				huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&in.Password).
					Validate(validate.Required("password", "Password is required")),
			).Title("Log in to " + config.GetServerURL()))
			if err := form.Run(); err != nil {
				return err
			}
		}
		if err := in.Validate(); err != nil {
			return fail(cmd, err)
		}

		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		user, err := client.Login(cmd.Context(), apiclient.LoginRequest{Username: in.Username, Password: in.Password})
		if err != nil {
			if errors.Is(err, apiclient.ErrUnauthorized) {
				return fail(cmd, fmt.Errorf("invalid username or password"))
			}
			return fail(cmd, err)
		}
		if err := saveSession(client, user); err != nil {
			return fail(cmd, fmt.Errorf("save credentials: %w", err))
		}
		output.Success("Logged in as %s", user.Username)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:     "register",
	Short:   "Create a dashboard account",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := validate.Register{}
		in.Username, _ = cmd.Flags().GetString("username")
		in.Email, _ = cmd.Flags().GetString("email")
		in.Password, _ = cmd.Flags().GetString("password")
		in.PasswordConfirm = in.Password
		in.TermsAccepted, _ = cmd.Flags().GetBool("accept-terms")
		first, _ := cmd.Flags().GetString("first-name")
		last, _ := cmd.Flags().GetString("last-name")

		if in.Username == "" && interactive() {
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().Title("Username").Value(&in.Username).
						Validate(validate.MinLen("username", 3, "Username must be at least 3 characters")),
					huh.NewInput().Title("Email").Value(&in.Email).
						Validate(validate.Email("email", "Please enter a valid email")),
					huh.NewInput().Title("First name").Value(&first),
					huh.NewInput().Title("Last name").Value(&last),
				).Title("Create account"),
				huh.NewGroup(
					huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&in.Password).
						Validate(validate.MinLen("password", 8, "Password must be at least 8 characters")),
					huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&in.PasswordConfirm),
					huh.NewConfirm().Title("I accept the terms and conditions").Value(&in.TermsAccepted),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
		}
		if err := in.Validate(); err != nil {
			return fail(cmd, err)
		}

		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		user, err := client.Register(cmd.Context(), apiclient.RegisterRequest{
			Username:        in.Username,
			Password:        in.Password,
			PasswordConfirm: in.PasswordConfirm,
			Email:           in.Email,
			FirstName:       first,
			LastName:        last,
		})
		if err != nil {
			return fail(cmd, err)
		}
		if err := saveSession(client, user); err != nil {
			return fail(cmd, fmt.Errorf("save credentials: %w", err))
		}
		output.Success("Account created. Logged in as %s", user.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "End the session and forget stored credentials",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		if err := client.Logout(cmd.Context()); err != nil && !errors.Is(err, apiclient.ErrUnauthorized) {
			output.Warning("server logout failed: %v", err)
		}
		if err := config.ClearAuth(); err != nil {
			return fail(cmd, fmt.Errorf("clear credentials: %w", err))
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the logged-in user",
	GroupID: "account",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return fail(cmd, err)
		}
		user, err := client.CurrentUser(cmd.Context())
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(user)
		}
		fmt.Printf("User:   %s\n", user.Username)
		if user.Email != "" {
			fmt.Printf("Email:  %s\n", user.Email)
		}
		fmt.Printf("Server: %s\n", client.BaseURL)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")

	registerCmd.Flags().StringP("username", "u", "", "Username (at least 3 characters)")
	registerCmd.Flags().String("email", "", "Email address")
	registerCmd.Flags().StringP("password", "p", "", "Password (at least 8 characters)")
	registerCmd.Flags().String("first-name", "", "First name")
	registerCmd.Flags().String("last-name", "", "Last name")
	registerCmd.Flags().Bool("accept-terms", false, "Accept the terms and conditions")

	whoamiCmd.Flags().Bool("json", false, "JSON output")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
