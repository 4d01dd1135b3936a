package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/branchd-dev/authsession/internal/cli/config"
	"github.com/branchd-dev/authsession/internal/cli/serverselect"
	"github.com/branchd-dev/authsession/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "select-server [url-or-alias]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ authsession select-server                        # Interactive selection
  $ authsession select-server http://localhost:8000  # Select by URL
  $ authsession select-server staging                # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectServer(rt, urlOrAlias)
		},
	}
}

func runSelectServer(rt *Runtime, urlOrAlias string) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'authsession init <url>' to create a configuration file", err)
	}

	var server *config.Server
	if urlOrAlias != "" {
		server, err = serverselect.GetServerByURLOrAlias(cfg, urlOrAlias)
	} else {
		server, err = rt.Prompt(cfg)
	}
	if err != nil {
		return err
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	rt.printf("Selected server: %s (%s)\n", server.Alias, server.URL)
	return nil
}
