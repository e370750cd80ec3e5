package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh root command with args and captures its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootShowsHelp(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "headsup")
	assert.Contains(t, out, "rank")
	assert.Contains(t, out, "serve")
}

func TestRootRejectsUnknownCommand(t *testing.T) {
	_, err := execute(t, "nonsense")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc1234", "2024-06-01")
	defer SetVersionInfo("dev", "unknown", "unknown")

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "headsup version 1.2.3")
	assert.Contains(t, out, "Commit: abc1234")
	assert.Contains(t, out, "Built: 2024-06-01")
}

func TestRankRequiresOwnerArgument(t *testing.T) {
	_, err := execute(t, "rank")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "arg"))
}

func TestConfigShowDefaults(t *testing.T) {
	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "aggregation:")
	assert.Contains(t, out, "min_score: 0.3")
}

func TestConfigShowRejectsMissingFile(t *testing.T) {
	defer func() { configPath = "" }()

	_, err := execute(t, "config", "show", "--config", "/does/not/exist.yaml")
	assert.Error(t, err)
}
