package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchd-dev/authsession/internal/cli/commands"
)

func TestRootCmd_Version(t *testing.T) {
	var out bytes.Buffer
	rt := commands.NewRuntime()
	rt.Out = &out
	rt.ErrOut = &bytes.Buffer{}

	root := NewRootCmd(rt)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "authsession version dev\n", out.String())
}

func TestRootCmd_ServerFlag(t *testing.T) {
	rt := commands.NewRuntime()
	rt.Out = &bytes.Buffer{}
	rt.ErrOut = &bytes.Buffer{}

	root := NewRootCmd(rt)
	root.SetArgs([]string{"--server", "staging", "--log-level", "debug", "version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "staging", rt.ServerAlias)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd(commands.NewRuntime())

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"version", "init", "login", "logout", "whoami", "request", "posts", "select-server"} {
		assert.True(t, names[want], want)
	}
}
