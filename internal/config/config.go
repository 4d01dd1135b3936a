package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the development auth server
type Config struct {
	// Database Configuration
	Database DatabaseConfig

	// HTTP Configuration
	Server ServerConfig

	// Token Configuration
	Auth AuthConfig

	// Logging Configuration
	Logging LoggingConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `validate:"required"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Address        string   `validate:"required"`
	AllowedOrigins []string `validate:"dive,url"`
}

// AuthConfig holds token and seed user configuration
type AuthConfig struct {
	JWTSecret  string        `validate:"required,min=32"`
	AccessTTL  time.Duration `validate:"gt=0"`
	RefreshTTL time.Duration `validate:"gtfield=AccessTTL"`

	// Seed user created on startup when no user with that name exists
	SeedUsername string
	SeedPassword string `validate:"required_with=SeedUsername"`
	SeedEmail    string `validate:"omitempty,email"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	accessTTL, err := durationEnv("ACCESS_TOKEN_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := durationEnv("REFRESH_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	// Development default: a random secret per process, so tokens do not
	// survive restarts unless JWT_SECRET is set.
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = hex.EncodeToString(b)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URL: envOr("DATABASE_URL", "authsession.sqlite"),
		},
		Server: ServerConfig{
			Address:        envOr("LISTEN_ADDRESS", ":8000"),
			AllowedOrigins: splitList(envOr("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Auth: AuthConfig{
			JWTSecret:    secret,
			AccessTTL:    accessTTL,
			RefreshTTL:   refreshTTL,
			SeedUsername: os.Getenv("SEED_USERNAME"),
			SeedPassword: os.Getenv("SEED_PASSWORD"),
			SeedEmail:    os.Getenv("SEED_EMAIL"),
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
