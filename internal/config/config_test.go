package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, ":7890", cfg.Server.Addr)
	assert.False(t, cfg.Heartbeat.Enabled)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moltis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9999\"\nheartbeat:\n  enabled: true\n  every: 30m\n"), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.True(t, cfg.Heartbeat.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Heartbeat.Every)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moltis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9999\"\n"), 0o644))

	t.Setenv("MOLTIS_SERVER_ADDR", ":1111")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, ":1111", cfg.Server.Addr)
}

func TestResolveConfigDirPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("MOLTIS_CONFIG_DIR", "/tmp/from-env")
	dir, err := cfg.ResolveConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env", dir)

	cfg.Gateway.ConfigDir = "/tmp/explicit"
	dir, err = cfg.ResolveConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit", dir)
}
