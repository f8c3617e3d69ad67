package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	root := GetRootCmd()
	require.NotNil(t, root)
	assert.Equal(t, "mnemo", root.Use)
	assert.Equal(t, version, root.Version)
}

func TestSubcommandsRegistered(t *testing.T) {
	expected := []string{
		"serve", "add", "search", "update", "delete",
		"list", "tasks", "report", "ingest", "organize", "sweep",
	}

	names := map[string]bool{}
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}

	for _, name := range expected {
		assert.True(t, names[name], "missing subcommand %s", name)
	}
}

func TestGlobalFlags(t *testing.T) {
	flags := GetRootCmd().PersistentFlags()
	assert.NotNil(t, flags.Lookup("config"))
	assert.NotNil(t, flags.Lookup("log-level"))

	user := flags.Lookup("user")
	require.NotNil(t, user)
	assert.Equal(t, "local", user.DefValue)
}
