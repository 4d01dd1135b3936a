// Package userconfig keeps per-user CLI state outside the project: which
// server is selected and what happened on each server last time.
package userconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	stateDirName  = "authsession"
	stateFileName = "state.yaml"

	// DirEnv overrides the directory holding the state file
	DirEnv = "AUTHSESSION_CONFIG_DIR"
)

// ServerState is what the CLI remembers about one server URL.
type ServerState struct {
	LastUsername string    `yaml:"last_username,omitempty"`
	LastLoginAt  time.Time `yaml:"last_login_at,omitempty"`
}

// State is the content of ~/.config/authsession/state.yaml.
type State struct {
	SelectedServer string                  `yaml:"selected_server,omitempty"`
	Servers        map[string]*ServerState `yaml:"servers,omitempty"`
}

// Path returns the location of the state file.
func Path() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return filepath.Join(dir, stateFileName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, stateDirName, stateFileName), nil
}

// Load reads the state file. A missing file is an empty state.
func Load() (*State, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &st, nil
}

// Save writes the state through a temp file so a crash never leaves it half written.
func (s *State) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return os.Rename(tmp, path)
}

// Server returns the remembered state for serverURL, or nil.
func (s *State) Server(serverURL string) *ServerState {
	return s.Servers[serverURL]
}

func (s *State) server(serverURL string) *ServerState {
	if s.Servers == nil {
		s.Servers = make(map[string]*ServerState)
	}
	st, ok := s.Servers[serverURL]
	if !ok {
		st = &ServerState{}
		s.Servers[serverURL] = st
	}
	return st
}

func update(fn func(*State)) error {
	st, err := Load()
	if err != nil {
		return err
	}
	fn(st)
	return st.Save()
}

// SetSelectedServer remembers serverURL as the default server. An empty URL
// clears the selection.
func SetSelectedServer(serverURL string) error {
	return update(func(s *State) { s.SelectedServer = serverURL })
}

// GetSelectedServer returns the selected server URL, or "" if none.
func GetSelectedServer() (string, error) {
	st, err := Load()
	if err != nil {
		return "", err
	}
	return st.SelectedServer, nil
}

// RememberLogin records a successful sign-in on serverURL.
func RememberLogin(serverURL, username string, at time.Time) error {
	return update(func(s *State) {
		srv := s.server(serverURL)
		srv.LastUsername = username
		srv.LastLoginAt = at.UTC()
	})
}

// LastUsername returns the username last used on serverURL, or "".
func LastUsername(serverURL string) (string, error) {
	st, err := Load()
	if err != nil {
		return "", err
	}
	if srv := st.Server(serverURL); srv != nil {
		return srv.LastUsername, nil
	}
	return "", nil
}
