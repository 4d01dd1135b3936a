package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/branchd-dev/authsession/internal/session"
)

const ConfigFileName = "authsession.yaml"

var ErrNotFound = errors.New("authsession.yaml not found")

// Server is an API backend the CLI can talk to
type Server struct {
	Alias string `yaml:"alias"`
	URL   string `yaml:"url"`
}

// Endpoints are the auth paths on the backend, relative to the server URL
type Endpoints struct {
	UserInfo    string `yaml:"user_info,omitempty"`
	Refresh     string `yaml:"refresh,omitempty"`
	Login       string `yaml:"login,omitempty"`
	Logout      string `yaml:"logout,omitempty"`
	SignInRoute string `yaml:"sign_in_route,omitempty"`
}

// Config represents the CLI project configuration file
type Config struct {
	Servers   []Server  `yaml:"servers"`
	Endpoints Endpoints `yaml:"endpoints,omitempty"`

	// Interceptor policy; unset means the session defaults
	ProactiveRefresh  *bool  `yaml:"proactive_refresh,omitempty"`
	CoordinateRefresh *bool  `yaml:"coordinate_refresh,omitempty"`
	Timeout           string `yaml:"timeout,omitempty"`
}

// DefaultEndpoints returns the dj-rest-auth layout
func DefaultEndpoints() Endpoints {
	d := session.DefaultConfig("")
	return Endpoints{
		UserInfo:    d.UserInfoPath,
		Refresh:     d.RefreshPath,
		Login:       d.LoginPath,
		Logout:      d.LogoutPath,
		SignInRoute: d.SignInRoute,
	}
}

func (e *Endpoints) applyDefaults() {
	d := DefaultEndpoints()
	if e.UserInfo == "" {
		e.UserInfo = d.UserInfo
	}
	if e.Refresh == "" {
		e.Refresh = d.Refresh
	}
	if e.Login == "" {
		e.Login = d.Login
	}
	if e.Logout == "" {
		e.Logout = d.Logout
	}
	if e.SignInRoute == "" {
		e.SignInRoute = d.SignInRoute
	}
}

// FindConfigFile searches for authsession.yaml in the current directory and its parents
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, currentDir)
}

// Load reads the configuration file and fills in default endpoints
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Endpoints.applyDefaults()

	return &cfg, nil
}

// LoadFromCurrentDir loads config from the current directory or its parents
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURL returns a server by its URL
func (c *Config) GetServerByURL(url string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].URL == url {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL '%s' not found", url)
}

// GetDefaultServer returns the first server in the list
func (c *Config) GetDefaultServer() (*Server, error) {
	if len(c.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", ConfigFileName)
	}
	return &c.Servers[0], nil
}

// SessionConfig builds the session configuration for server
func (c *Config) SessionConfig(server *Server) (session.Config, error) {
	cfg := session.DefaultConfig(server.URL)

	ep := c.Endpoints
	ep.applyDefaults()
	cfg.UserInfoPath = ep.UserInfo
	cfg.RefreshPath = ep.Refresh
	cfg.LoginPath = ep.Login
	cfg.LogoutPath = ep.Logout
	cfg.SignInRoute = ep.SignInRoute

	if c.ProactiveRefresh != nil {
		cfg.ProactiveRefresh = *c.ProactiveRefresh
	}
	if c.CoordinateRefresh != nil {
		cfg.CoordinateRefresh = *c.CoordinateRefresh
	}
	if c.Timeout != "" {
		timeout, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
		cfg.Timeout = timeout
	}

	return cfg, cfg.Validate()
}
