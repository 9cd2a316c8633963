package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"migrate", "revert"})
	require.NoError(t, err)
	assert.Equal(t, "revert", cmd.Name())

	cmd, _, err = rootCmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("addr"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("env-file"))
}
