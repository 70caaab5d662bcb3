package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royale-server/internal/rules"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.WatchdogTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, def.Store.Join, cfg.Store.Join)
	assert.Equal(t, def.Match, cfg.Match)
	assert.Equal(t, def.Rules.Scripts, cfg.Rules.Scripts)
	assert.Equal(t, def.Rules.Settings.Grace, cfg.Rules.Settings.Grace)
	assert.Equal(t, def.Rules.Settings.ObstacleLoot, cfg.Rules.Settings.ObstacleLoot)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "royale.yaml", `
server:
  addr: "127.0.0.1:9000"
  watchdogTimeout: 30s
log:
  level: debug
  pretty: true
store:
  enabled: false
  salt: pepper
match:
  width: 200
  maxPlayers: 8
  teamMode: true
  gas:
    damages: [3, 5]
rules:
  scripts: [grace_period, deathmatch]
  grace:
    period: 4
  deathmatch:
    duration: 60
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.WatchdogTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, "pepper", cfg.Store.Join.Salt)
	assert.Equal(t, 200.0, cfg.Match.Width)
	assert.Equal(t, 512.0, cfg.Match.Height)
	assert.Equal(t, 8, cfg.Match.MaxPlayers)
	assert.True(t, cfg.Match.TeamMode)
	assert.Equal(t, []float64{3, 5}, cfg.Match.Gas.Damages)
	assert.Equal(t, []string{rules.NameGracePeriod, rules.NameDeathmatch}, cfg.Rules.Scripts)
	assert.Equal(t, 4.0, cfg.Rules.Settings.Grace.Period)
	assert.Equal(t, 30.0, cfg.Rules.Settings.Grace.CanJoin)
	assert.Equal(t, 60.0, cfg.Rules.Settings.Deathmatch.Duration)
	assert.Equal(t, 5.0, cfg.Rules.Settings.Deathmatch.RespawnDelay)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ROYALE_SERVER_ADDR", ":7000")
	t.Setenv("ROYALE_MATCH_MAXPLAYERS", "12")
	t.Setenv("ROYALE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 12, cfg.Match.MaxPlayers)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/royale.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read")
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
match:
  tickRate: 0
server:
  maxConnsPerIP: -1
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxConnsPerIP")
	assert.Contains(t, err.Error(), "tickRate")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"watchdog too short": func(c *Config) { c.Server.WatchdogTimeout = c.Match.LivenessInterval },
		"no cell size":       func(c *Config) { c.Match.CellSize = 0 },
		"no store path":      func(c *Config) { c.Store.Path = "" },
		"long salt": func(c *Config) {
			c.Store.Join.Salt = string(make([]byte, 65))
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
