// Package config loads server settings from defaults, an optional file and
// ROYALE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"royale-server/internal/match"
	"royale-server/internal/rules"
	"royale-server/internal/store"
)

// EnvPrefix is prepended to every environment override, e.g. ROYALE_SERVER_ADDR
const EnvPrefix = "ROYALE"

// ServerConfig holds the host settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxConnsPerIP   int           `mapstructure:"maxConnsPerIP"`
	MaxMatches      int           `mapstructure:"maxMatches"`
	WatchdogTimeout time.Duration `mapstructure:"watchdogTimeout"` // silence before a match is torn down
	SendBuffer      int           `mapstructure:"sendBuffer"`      // queued frames per client
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// StoreConfig holds the join log database settings
type StoreConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Path    string           `mapstructure:"path"`
	Join    store.JoinConfig `mapstructure:",squash"`
}

// RulesConfig names the scripts every match activates, in order
type RulesConfig struct {
	Scripts  []string       `mapstructure:"scripts"`
	Settings rules.Settings `mapstructure:",squash"`
}

// Config is the full server configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Store  StoreConfig  `mapstructure:"store"`
	Match  match.Config `mapstructure:"match"`
	Rules  RulesConfig  `mapstructure:"rules"`
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MaxConnsPerIP:   5,
			MaxMatches:      16,
			WatchdogTimeout: 10 * time.Second,
			SendBuffer:      64,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Enabled: true,
			Path:    "royale.db",
			Join:    store.DefaultJoinConfig(),
		},
		Match: match.DefaultConfig(),
		Rules: RulesConfig{
			Scripts: []string{
				rules.NameGracePeriod,
				rules.NameMovingGas,
				rules.NameGasDamageScaling,
				rules.NameKillRewards,
				rules.NameObstacleLoot,
				rules.NameDonutSpawner,
				rules.NameQuickSwitch,
				rules.NameLootPing,
				rules.NameJoinTracking,
			},
			Settings: rules.DefaultSettings(),
		},
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.maxConnsPerIP", d.Server.MaxConnsPerIP)
	v.SetDefault("server.maxMatches", d.Server.MaxMatches)
	v.SetDefault("server.watchdogTimeout", d.Server.WatchdogTimeout)
	v.SetDefault("server.sendBuffer", d.Server.SendBuffer)
	v.SetDefault("server.shutdownTimeout", d.Server.ShutdownTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)

	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.salt", d.Store.Join.Salt)
	v.SetDefault("store.queue", d.Store.Join.Queue)
	v.SetDefault("store.batchSize", d.Store.Join.BatchSize)
	v.SetDefault("store.flushInterval", d.Store.Join.FlushInterval)

	m := d.Match
	v.SetDefault("match.width", m.Width)
	v.SetDefault("match.height", m.Height)
	v.SetDefault("match.cellSize", m.CellSize)
	v.SetDefault("match.tickRate", m.TickRate)
	v.SetDefault("match.netSyncRate", m.NetSyncRate)
	v.SetDefault("match.maxPlayers", m.MaxPlayers)
	v.SetDefault("match.teamMode", m.TeamMode)
	v.SetDefault("match.seed", m.Seed)
	v.SetDefault("match.obstacles", m.Obstacles)
	v.SetDefault("match.loot", m.Loot)
	v.SetDefault("match.teammateSpawnRadius", m.TeammateSpawnRadius)
	v.SetDefault("match.reloadTime", m.ReloadTime)
	v.SetDefault("match.commandQueue", m.CommandQueue)
	v.SetDefault("match.livenessInterval", m.LivenessInterval)
	v.SetDefault("match.gas.initialRadius", m.Gas.InitialRadius)
	v.SetDefault("match.gas.firstMovingZone", m.Gas.FirstMovingZone)
	v.SetDefault("match.gas.initWaitTime", m.Gas.InitWaitTime)
	v.SetDefault("match.gas.initMovingTime", m.Gas.InitMovingTime)
	v.SetDefault("match.gas.minRadius", m.Gas.MinRadius)

	r := d.Rules.Settings
	v.SetDefault("rules.scripts", d.Rules.Scripts)
	v.SetDefault("rules.stageFile", r.StageFile)
	v.SetDefault("rules.switchDelay", r.SwitchDelay)
	v.SetDefault("rules.revealEvery", r.RevealEvery)
	v.SetDefault("rules.grace.period", r.Grace.Period)
	v.SetDefault("rules.grace.canJoin", r.Grace.CanJoin)
	v.SetDefault("rules.grace.countdownStart", r.Grace.CountdownStart)
	v.SetDefault("rules.lootPing.cooldown", r.LootPing.Cooldown)
	v.SetDefault("rules.lootPing.maxDistance", r.LootPing.MaxDistance)
	v.SetDefault("rules.deathmatch.duration", r.Deathmatch.Duration)
	v.SetDefault("rules.deathmatch.respawnDelay", r.Deathmatch.RespawnDelay)
}

// Load reads the configuration. path may be empty, in which case only the
// defaults and the environment apply.
func Load(path string) (Config, error) {
	v := viper.New()
	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.MaxConnsPerIP <= 0 {
		errs = append(errs, fmt.Errorf("server.maxConnsPerIP must be positive, got %d", c.Server.MaxConnsPerIP))
	}
	if c.Server.MaxMatches <= 0 {
		errs = append(errs, fmt.Errorf("server.maxMatches must be positive, got %d", c.Server.MaxMatches))
	}
	if c.Server.WatchdogTimeout <= c.Match.LivenessInterval {
		errs = append(errs, fmt.Errorf("server.watchdogTimeout %v must exceed match.livenessInterval %v",
			c.Server.WatchdogTimeout, c.Match.LivenessInterval))
	}
	if c.Match.Width <= 0 || c.Match.Height <= 0 {
		errs = append(errs, fmt.Errorf("match size %vx%v must be positive", c.Match.Width, c.Match.Height))
	}
	if c.Match.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("match.cellSize must be positive, got %v", c.Match.CellSize))
	}
	if c.Match.TickRate <= 0 || c.Match.NetSyncRate <= 0 {
		errs = append(errs, fmt.Errorf("match.tickRate %d and match.netSyncRate %d must be positive",
			c.Match.TickRate, c.Match.NetSyncRate))
	}
	if c.Match.MaxPlayers <= 0 {
		errs = append(errs, fmt.Errorf("match.maxPlayers must be positive, got %d", c.Match.MaxPlayers))
	}
	if c.Store.Enabled && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is empty"))
	}
	if len(c.Store.Join.Salt) > 64 {
		errs = append(errs, errors.New("store.salt is longer than 64 bytes"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
