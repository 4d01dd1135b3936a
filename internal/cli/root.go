package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/branchd-dev/authsession/internal/cli/commands"
	"github.com/branchd-dev/authsession/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around rt
func NewRootCmd(rt *commands.Runtime) *cobra.Command {
	var logLevel, logFormat string

	rootCmd := &cobra.Command{
		Use:   "authsession",
		Short: "authsession - authenticated requests against a cookie-session API",
		Long: `authsession CLI - Sign in to a token-cookie API and call it.

Requests carry the session cookies, renew the access token before they go
out, and are replayed once after a successful refresh when the server
answers 401.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Logs go to stderr so command output stays clean on stdout
			logger.InitWithWriter(rt.ErrOut, logLevel, logFormat)
			rt.Logger = logger.GetLogger()
		},
	}

	rootCmd.PersistentFlags().StringVar(&rt.ServerAlias, "server", "", "Server URL or alias from authsession.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("AUTHSESSION_LOG_LEVEL", "warn"), "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(rt.Out, "authsession version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd(rt))
	rootCmd.AddCommand(commands.NewLoginCmd(rt))
	rootCmd.AddCommand(commands.NewLogoutCmd(rt))
	rootCmd.AddCommand(commands.NewWhoamiCmd(rt))
	rootCmd.AddCommand(commands.NewRequestCmd(rt))
	rootCmd.AddCommand(commands.NewPostsCmd(rt))
	rootCmd.AddCommand(commands.NewSelectServerCmd(rt))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Execute runs the root command
func Execute() error {
	rt := commands.NewRuntime()
	if err := NewRootCmd(rt).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
