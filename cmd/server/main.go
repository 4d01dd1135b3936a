// Command server runs the development auth API: cookie-borne JWT sessions
// with a refresh endpoint and a small posts resource.
package main

import (
	"fmt"
	"os"

	"github.com/branchd-dev/authsession/internal/config"
	"github.com/branchd-dev/authsession/internal/logger"
	"github.com/branchd-dev/authsession/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().
		Str("version", version).
		Dur("access_ttl", cfg.Auth.AccessTTL).
		Dur("refresh_ttl", cfg.Auth.RefreshTTL).
		Msg("Starting development auth server...")

	// Blocks until SIGINT or SIGTERM
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
}
