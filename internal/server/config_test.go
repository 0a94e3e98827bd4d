package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServerConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	assert.Equal(t, 8, cfg.Table.Decks)
	require.NoError(t, cfg.Validate())
}

func TestLoadServerConfig(t *testing.T) {
	path := writeConfig(t, `
server {
  address   = "0.0.0.0"
  port      = 9000
  log_level = "debug"
}

table {
  decks           = 6
  reshuffle_at    = 40
  bet_seconds     = 15
  action_seconds  = 20
  dealer_bankroll = 50000
}
`)

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	assert.Equal(t, "debug", cfg.Server.LogLevel)

	rules := cfg.Rules()
	assert.Equal(t, 6, rules.Decks)
	assert.Equal(t, 40, rules.ReshuffleAt)
	assert.Equal(t, 15, rules.BetSeconds)
	assert.Equal(t, 20, rules.ActionSeconds)
	assert.Equal(t, 50000, rules.DealerBankroll)
}

func TestLoadServerConfigPartialTableKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
server {
  port = 9001
}

table {
  decks = 4
}
`)

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Table.Decks)
	assert.Equal(t, 50, cfg.Table.ReshuffleAt)
	assert.Equal(t, 10, cfg.Table.BetSeconds)
	assert.Equal(t, "localhost", cfg.Server.Address)
}

func TestLoadServerConfigRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, `server { port = `)
	_, err := LoadServerConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultServerConfig()
	cfg.Table.ReshuffleAt = 52 * 8
	assert.Error(t, cfg.Validate())

	cfg = DefaultServerConfig()
	cfg.Table.DealerBankroll = -1
	assert.Error(t, cfg.Validate())
}
