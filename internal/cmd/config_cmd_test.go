package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/ash/internal/config"
)

func TestRunConfig_List(t *testing.T) {
	setupCmdEnv(t)

	out, err := runWithOutput(t, configCmd, func(c *cobra.Command) error {
		return runConfig(c, nil)
	})
	require.NoError(t, err)

	for _, key := range config.ListKeys() {
		assert.Contains(t, out, key)
	}
	assert.Contains(t, out, "history.path = (not set)")
	assert.Contains(t, out, "Config file: "+config.DefaultPaths().ConfigFile())
}

func TestRunConfig_Get(t *testing.T) {
	setupCmdEnv(t)

	out, err := runWithOutput(t, configCmd, func(c *cobra.Command) error {
		return runConfig(c, []string{"history.dedup"})
	})
	require.NoError(t, err)
	assert.Equal(t, "consecutive\n", out)
}

func TestRunConfig_GetUnknownKey(t *testing.T) {
	setupCmdEnv(t)

	_, err := runWithOutput(t, configCmd, func(c *cobra.Command) error {
		return runConfig(c, []string{"daemon.socket_path"})
	})
	require.Error(t, err)
}

func TestRunConfig_Set(t *testing.T) {
	root := setupCmdEnv(t)
	cfgFile = filepath.Join(root, "nested", "ash.yaml")

	out, err := runWithOutput(t, configCmd, func(c *cobra.Command) error {
		return runConfig(c, []string{"history.batch_size", "25"})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "history.batch_size = 25")
	assert.Contains(t, out, "Saved to: "+cfgFile)

	cfg, err := config.LoadFromFile(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.History.BatchSize)
}

func TestRunConfig_SetInvalid(t *testing.T) {
	root := setupCmdEnv(t)
	cfgFile = filepath.Join(root, "ash.yaml")

	_, err := runWithOutput(t, configCmd, func(c *cobra.Command) error {
		return runConfig(c, []string{"history.dedup", "sometimes"})
	})
	require.Error(t, err)

	_, statErr := os.Stat(cfgFile)
	assert.True(t, os.IsNotExist(statErr), "invalid value must not be saved")
}

func TestConfigCmd_Args(t *testing.T) {
	assert.NoError(t, configCmd.Args(configCmd, nil))
	assert.NoError(t, configCmd.Args(configCmd, []string{"a", "b"}))
	assert.Error(t, configCmd.Args(configCmd, []string{"a", "b", "c"}))
}
