package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"transform", "sync", "migrate", "runs", "serve"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "opportunity-etl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
}

func TestTransformCommand_Flags(t *testing.T) {
	for _, name := range []string{"opportunities", "accounts", "fx", "stage-map", "outdir", "xlsx", "save"} {
		require.NotNil(t, transformCmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
	assert.True(t, names["anomalies"])
}

func TestServeCommand_Flags(t *testing.T) {
	assert.NotNil(t, serveCmd.Flags().Lookup("port"))
}
