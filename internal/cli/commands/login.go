package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/branchd-dev/authsession/internal/cli/userconfig"
)

// NewLoginCmd creates the login command
func NewLoginCmd(rt *Runtime) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the selected server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), rt, username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set AUTHSESSION_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set AUTHSESSION_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, rt *Runtime, username, password string) error {
	s, err := rt.openSession()
	if err != nil {
		return err
	}

	// Environment variables are useful for CI
	if username == "" {
		username = os.Getenv("AUTHSESSION_USERNAME")
	}
	if username == "" {
		username, err = userconfig.LastUsername(s.server.URL)
		if err != nil {
			rt.Logger.Warn().Err(err).Msg("Failed to read remembered username")
		}
	}
	if password == "" {
		password = os.Getenv("AUTHSESSION_PASSWORD")
	}

	if username == "" {
		_ = s.finish(nil)
		return fmt.Errorf("username is required (use --username flag or AUTHSESSION_USERNAME env var)")
	}

	if password == "" {
		password, err = rt.ReadPassword()
		if err != nil {
			_ = s.finish(nil)
			return err
		}
	}

	rt.printf("Logging in to %s (%s) as %s...\n", s.server.Alias, s.server.URL, username)

	user, err := s.Login(ctx, username, password)
	if err != nil {
		_ = s.finish(nil)
		return fmt.Errorf("login failed: %w", err)
	}

	if err := userconfig.RememberLogin(s.server.URL, username, time.Now()); err != nil {
		rt.Logger.Warn().Err(err).Msg("Failed to remember login")
	}

	rt.printf("✓ Login successful!\n")
	rt.printf("  User: %s\n", user.DisplayName())
	if user.Email != "" {
		rt.printf("  Email: %s\n", user.Email)
	}

	return s.finish(nil)
}

func readPasswordFromTerminal() (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or AUTHSESSION_PASSWORD env var)")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}
