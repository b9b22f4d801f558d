package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":3001", cfg.Server.Address)
	assert.Equal(t, 8, cfg.Server.MaxPlayersPerLobby)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.Database.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  address: ":9000"
  max_players_per_lobby: 6
logging:
  level: debug
  format: json
database:
  enabled: true
  url: postgres://localhost/tricktake
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 6, cfg.Server.MaxPlayersPerLobby)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "postgres://localhost/tricktake", cfg.Database.URL)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
