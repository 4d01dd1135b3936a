package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchd-dev/authsession/internal/cli/config"
)

func TestInitCommand_NewConfig(t *testing.T) {
	dir := setupTestEnvironment(t)
	rt := newTestRuntime()

	require.NoError(t, run(NewInitCmd(rt.Runtime), "http://localhost:8000"))

	configPath := filepath.Join(dir, config.ConfigFileName)
	require.True(t, fileExists(configPath))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "http://localhost:8000", cfg.Servers[0].URL)
	assert.Equal(t, "server-1", cfg.Servers[0].Alias)
	assert.Equal(t, config.DefaultEndpoints(), cfg.Endpoints)
	assert.Contains(t, rt.out.String(), "Created")
}

func TestInitCommand_AddsToExistingConfig(t *testing.T) {
	dir := setupTestEnvironment(t, config.Server{Alias: "local", URL: "http://localhost:8000"})
	rt := newTestRuntime()

	require.NoError(t, run(NewInitCmd(rt.Runtime), "https://api.example.com"))
	require.NoError(t, run(NewInitCmd(rt.Runtime), "https://staging.example.com", "--alias", "staging"))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 3)
	assert.Equal(t, "server-2", cfg.Servers[1].Alias)
	assert.Equal(t, "staging", cfg.Servers[2].Alias)
}

func TestInitCommand_DuplicateURL(t *testing.T) {
	dir := setupTestEnvironment(t, config.Server{Alias: "local", URL: "http://localhost:8000"})
	rt := newTestRuntime()

	require.NoError(t, run(NewInitCmd(rt.Runtime), "http://localhost:8000"))
	assert.Contains(t, rt.out.String(), "already exists")

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 1)
}

func TestInitCommand_DuplicateAlias(t *testing.T) {
	setupTestEnvironment(t, config.Server{Alias: "local", URL: "http://localhost:8000"})
	rt := newTestRuntime()

	err := run(NewInitCmd(rt.Runtime), "http://localhost:9000", "--alias", "local")
	assert.Error(t, err)
}

func TestInitCommand_InvalidURL(t *testing.T) {
	dir := setupTestEnvironment(t)
	rt := newTestRuntime()

	for _, arg := range []string{"localhost:8000", "ftp://example.com", "http://"} {
		assert.Error(t, run(NewInitCmd(rt.Runtime), arg), arg)
	}
	assert.False(t, fileExists(filepath.Join(dir, config.ConfigFileName)))
}
