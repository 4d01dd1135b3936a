package commands

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/branchd-dev/authsession/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd(rt *Runtime) *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Add an API server to authsession.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rt, args[0], alias)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Name for the server (default server-N)")

	return cmd
}

func runInit(rt *Runtime, serverURL, alias string) error {
	u, err := url.Parse(serverURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: expected http(s)://host[:port]", serverURL)
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	configPath := filepath.Join(currentDir, config.ConfigFileName)

	cfg := &config.Config{}
	isNewConfig := true
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		isNewConfig = false
		rt.printf("Found existing %s\n", config.ConfigFileName)
	} else {
		cfg.Endpoints = config.DefaultEndpoints()
	}

	if _, err := cfg.GetServerByURL(serverURL); err == nil {
		rt.printf("Server %s already exists in %s\n", serverURL, config.ConfigFileName)
		return nil
	}

	if alias == "" {
		alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
	}
	if _, err := cfg.GetServerByAlias(alias); err == nil {
		return fmt.Errorf("alias '%s' is already used", alias)
	}

	cfg.Servers = append(cfg.Servers, config.Server{Alias: alias, URL: serverURL})
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		rt.printf("✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, serverURL, alias)
	} else {
		rt.printf("✓ Added server %s (%s) to ./%s\n", serverURL, alias, config.ConfigFileName)
	}
	rt.printf("\nNext step: run 'authsession login' to sign in\n")

	return nil
}
