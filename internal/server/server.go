// Package server is a development stand-in for the token-based auth API.
// It speaks the same contract the session client expects: cookie-borne
// access and refresh JWTs, an identity endpoint, a refresh endpoint that
// rotates both cookies, and a small authenticated posts resource.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/branchd-dev/authsession/internal/auth"
	"github.com/branchd-dev/authsession/internal/config"
	"github.com/branchd-dev/authsession/internal/models"
)

// Server represents the HTTP server
type Server struct {
	router  *gin.Engine
	db      *gorm.DB
	config  *config.Config
	logger  zerolog.Logger
	issuer  *auth.Issuer
	version string
}

// Option configures a Server
type Option func(*Server)

// WithIssuer replaces the token issuer built from config
func WithIssuer(issuer *auth.Issuer) Option {
	return func(s *Server) {
		s.issuer = issuer
	}
}

// New creates a new server instance backed by the configured SQLite database
func New(cfg *config.Config, zlog zerolog.Logger, version string, opts ...Option) (*Server, error) {
	db, err := initDatabase(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db, cfg, zlog, version, opts...)
}

// NewWithDB creates a server on an already opened database
func NewWithDB(db *gorm.DB, cfg *config.Config, zlog zerolog.Logger, version string, opts ...Option) (*Server, error) {
	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s := &Server{
		db:      db,
		config:  cfg,
		logger:  zlog,
		version: version,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.issuer == nil {
		issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
		if err != nil {
			return nil, err
		}
		s.issuer = issuer
	}

	if err := s.ensureSeedUser(); err != nil {
		return nil, err
	}

	s.setupRouter()
	return s, nil
}

// initDatabase opens the SQLite database
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// SQLite serializes writers anyway
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys=1").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// ensureSeedUser creates the configured development user if missing
func (s *Server) ensureSeedUser() error {
	if s.config.Auth.SeedUsername == "" {
		return nil
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", s.config.Auth.SeedUsername).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up seed user: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(s.config.Auth.SeedPassword)
	if err != nil {
		return err
	}
	user := &models.User{
		Username:     s.config.Auth.SeedUsername,
		Email:        s.config.Auth.SeedEmail,
		PasswordHash: hash,
	}
	if err := s.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create seed user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Seed user created")
	return nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	// The browser client sends cookies cross-origin, so credentials must be allowed
	if len(s.config.Server.AllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints
	public := s.router.Group("/dj-rest-auth")
	{
		public.POST("/login/", s.login)
		public.POST("/logout/", s.logout)
		public.POST("/registration/", s.register)
		public.POST("/token/refresh/", s.refresh)
	}

	// Authenticated endpoints
	authed := s.router.Group("/")
	authed.Use(JWTAuthMiddleware(s.db, s.issuer, s.logger))
	{
		authed.GET("/dj-rest-auth/user/", s.getCurrentUser)
		authed.PATCH("/dj-rest-auth/user/", s.updateCurrentUser)

		authed.GET("/posts/", s.listPosts)
		authed.POST("/posts/", s.createPost)
		authed.GET("/posts/:id/", s.getPost)
		authed.DELETE("/posts/:id/", s.deletePost)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "authsession-devserver",
		"version":   s.version,
	})
}

// Handler returns the HTTP handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.Address,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
