package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out of the selected server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), rt)
		},
	}
}

func runLogout(ctx context.Context, rt *Runtime) error {
	s, err := rt.openSession()
	if err != nil {
		return err
	}

	if err := s.Logout(ctx); err != nil {
		_ = s.finish(nil)
		return fmt.Errorf("logout failed: %w", err)
	}

	rt.printf("✓ Logged out of %s\n", s.server.Alias)
	return s.finish(nil)
}
