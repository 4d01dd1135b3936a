package commands

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/branchd-dev/authsession/internal/cli/auth"
	"github.com/branchd-dev/authsession/internal/cli/config"
	"github.com/branchd-dev/authsession/internal/cli/userconfig"
)

var errNoPrompt = errors.New("prompt not available in tests")

// setupTestEnvironment switches to a temp project directory holding an
// authsession.yaml with servers and isolates the user config and keyring.
func setupTestEnvironment(t *testing.T, servers ...config.Server) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(userconfig.DirEnv, t.TempDir())
	t.Setenv("AUTHSESSION_USERNAME", "")
	t.Setenv("AUTHSESSION_PASSWORD", "")
	keyring.MockInit()

	if servers != nil {
		cfg := &config.Config{Servers: servers, Endpoints: config.DefaultEndpoints()}
		require.NoError(t, config.Save(filepath.Join(dir, config.ConfigFileName), cfg))
	}
	return dir
}

type testRuntime struct {
	*Runtime
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newTestRuntime() *testRuntime {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &testRuntime{
		Runtime: &Runtime{
			Out:     out,
			ErrOut:  errOut,
			Cookies: auth.Default,
			Prompt: func(*config.Config) (*config.Server, error) {
				return nil, errNoPrompt
			},
			ReadPassword: func() (string, error) {
				return "", errors.New("no terminal")
			},
			Logger: zerolog.Nop(),
		},
		out:    out,
		errOut: errOut,
	}
}

// run executes cmd with args the way the root command would
func run(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
