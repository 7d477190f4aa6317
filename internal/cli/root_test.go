package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tupdb", cmd.Use)
	assert.Contains(t, cmd.Long, "dependency-graph")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"init", "scan", "graph", "flags", "export"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestExportSubcommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"compiledb", "dot"} {
		subCmd, _, err := cmd.Find([]string{"export", name})
		require.NoError(t, err, "export %s should exist", name)
		require.NotNil(t, subCmd)
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, ".tup/db", dbFlag.DefValue)
}

func TestFlagsCommandArgs(t *testing.T) {
	cmd := NewRootCommand()
	flagsCmd, _, err := cmd.Find([]string{"flags"})
	require.NoError(t, err)
	assert.Equal(t, "flags <kind> <id>", flagsCmd.Use)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "graph"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestParseFlagKind(t *testing.T) {
	for _, name := range []string{"create", "modify", "config", "variant", "transient"} {
		k, err := parseFlagKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, k.String())
	}
	_, err := parseFlagKind("bogus")
	assert.Error(t, err)
}
