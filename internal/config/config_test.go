package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("env-file", "", "")
	flags.String("fee-percent", "0.5", "")
	flags.Int("batch-size", 800, "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", runFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "./defi.db", cfg.DBPath)
	assert.Equal(t, DefaultBaseToken, cfg.BaseToken)
	assert.Equal(t, "1", cfg.StartAmount)
	assert.Equal(t, "0.5", cfg.FeePercent)
	assert.Equal(t, 800, cfg.BatchSize)
	assert.Equal(t, DefaultViewContract, cfg.ViewContract)
	assert.Equal(t, "sync", cfg.Events)
	assert.Equal(t, 1024, cfg.QueueSize)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.True(t, cfg.SweepOnStart)
	assert.False(t, cfg.SkipUnchanged)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("ws: wss://from-file\nworkers: 3\nfee-percent: \"0.25\"\n"), 0o644))
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ARBSCOPE_RPC=https://from-dotenv\n"), 0o644))
	t.Setenv("ARBSCOPE_RPC", "")
	require.NoError(t, os.Unsetenv("ARBSCOPE_RPC"))
	t.Setenv("ARBSCOPE_QUEUE_SIZE", "64")
	t.Setenv("ARBSCOPE_SKIP_UNCHANGED", "true")

	cfg, err := Load(cfgFile, runFlags(t, "--env-file", envFile, "--batch-size", "100"))
	require.NoError(t, err)

	assert.Equal(t, "https://from-dotenv", cfg.RPCURL)
	assert.Equal(t, "wss://from-file", cfg.WSURL)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "0.25", cfg.FeePercent)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.True(t, cfg.SkipUnchanged)
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), runFlags(t))
	assert.Error(t, err)
}

func TestLoadReplay(t *testing.T) {
	flags := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.String("env-file", "", "")
	flags.String("in", "", "")
	require.NoError(t, flags.Parse([]string{"--in", "updates.jsonl"}))

	cfg, err := LoadReplay("", flags)
	require.NoError(t, err)
	assert.Equal(t, "updates.jsonl", cfg.In)
	assert.Equal(t, "./data/replay.jsonl", cfg.Out)
	assert.Equal(t, "0.5", cfg.FeePercent)
}
