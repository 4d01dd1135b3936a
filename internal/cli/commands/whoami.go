package commands

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/branchd-dev/authsession/internal/cli/auth"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(rt *Runtime) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd.Context(), rt, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full profile as JSON")

	return cmd
}

func runWhoami(ctx context.Context, rt *Runtime, asJSON bool) error {
	s, user, err := rt.openStartedSession(ctx)
	if err != nil {
		return err
	}

	if user == nil {
		_ = s.finish(nil)
		return auth.ErrNotAuthenticated
	}

	if asJSON {
		enc := json.NewEncoder(rt.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(user); err != nil {
			return s.finish(err)
		}
		return s.finish(nil)
	}

	rt.printf("%s on %s\n", user.DisplayName(), s.server.Alias)
	if user.Email != "" {
		rt.printf("  Email: %s\n", user.Email)
	}
	rt.printf("  ID: %s\n", user.ID)

	return s.finish(nil)
}
