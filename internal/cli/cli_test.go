package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, CommandHelp, parsed.Command)
	require.True(t, parsed.ShowHelp)
}

func TestParseSimpleCommands(t *testing.T) {
	for _, command := range []Command{
		CommandRecord, CommandStop, CommandCancel, CommandStatus,
		CommandAccept, CommandReject, CommandPeek, CommandItems,
		CommandDevices, CommandDoctor, CommandVersion,
	} {
		parsed, err := Parse([]string{string(command)})
		require.NoError(t, err, command)
		require.Equal(t, command, parsed.Command)
		require.False(t, parsed.ShowHelp)
	}
}

func TestParseConfigFlag(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/outlay.conf", "record"})
	require.NoError(t, err)
	require.Equal(t, CommandRecord, parsed.Command)
	require.Equal(t, "/tmp/outlay.conf", parsed.ConfigPath)

	_, err = Parse([]string{"--config"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "--config requires a path")
}

func TestParseSetArguments(t *testing.T) {
	parsed, err := Parse([]string{"set", "--name", "Macbook Pro", "--price", "1899.99"})
	require.NoError(t, err)
	require.Equal(t, CommandSet, parsed.Command)
	require.Equal(t, "Macbook Pro", parsed.Name)
	require.NotNil(t, parsed.Price)
	require.Equal(t, 1899.99, *parsed.Price)

	parsed, err = Parse([]string{"set", "--price", "12"})
	require.NoError(t, err)
	require.Empty(t, parsed.Name)
	require.Equal(t, float64(12), *parsed.Price)
}

func TestParseSetRejectsBadArguments(t *testing.T) {
	_, err := Parse([]string{"set"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "--name and/or --price")

	_, err = Parse([]string{"set", "--price", "a lot"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid price")

	_, err = Parse([]string{"set", "--name"})
	require.Error(t, err)

	_, err = Parse([]string{"set", "--count", "3"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown set argument")
}

func TestParseDelete(t *testing.T) {
	parsed, err := Parse([]string{"delete", "a1b2c3"})
	require.NoError(t, err)
	require.Equal(t, CommandDelete, parsed.Command)
	require.Equal(t, "a1b2c3", parsed.ID)

	_, err = Parse([]string{"delete"})
	require.Error(t, err)

	_, err = Parse([]string{"delete", "a", "b"})
	require.Error(t, err)
}

func TestParseRejectsUnknownInput(t *testing.T) {
	_, err := Parse([]string{"transcode"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown command")

	_, err = Parse([]string{"--fast"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown flag")

	_, err = Parse([]string{"status", "extra"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected arguments")
}

func TestHelpTextMentionsEveryCommand(t *testing.T) {
	text := HelpText("outlay")
	for command := range validCommands {
		require.Contains(t, text, string(command))
	}
	require.Contains(t, text, "--config PATH")
}
