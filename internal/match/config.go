package match

import (
	"time"

	"royale-server/internal/gas"
)

// Config holds the settings of one match
type Config struct {
	Width               float64       `mapstructure:"width"`
	Height              float64       `mapstructure:"height"`
	CellSize            float64       `mapstructure:"cellSize"`
	TickRate            int           `mapstructure:"tickRate"`    // simulation ticks per second
	NetSyncRate         int           `mapstructure:"netSyncRate"` // snapshot flushes per second
	MaxPlayers          int           `mapstructure:"maxPlayers"`
	TeamMode            bool          `mapstructure:"teamMode"`
	Seed                uint64        `mapstructure:"seed"` // 0 picks one from the clock
	Obstacles           int           `mapstructure:"obstacles"`
	Loot                int           `mapstructure:"loot"`
	TeammateSpawnRadius float64       `mapstructure:"teammateSpawnRadius"`
	ReloadTime          float64       `mapstructure:"reloadTime"`
	CommandQueue        int           `mapstructure:"commandQueue"`
	LivenessInterval    time.Duration `mapstructure:"livenessInterval"`
	Gas                 gas.Params    `mapstructure:"gas"`
}

// DefaultConfig returns the settings of a standard solo match
func DefaultConfig() Config {
	return Config{
		Width:               512,
		Height:              512,
		CellSize:            16,
		TickRate:            30,
		NetSyncRate:         20,
		MaxPlayers:          40,
		Obstacles:           120,
		Loot:                60,
		TeammateSpawnRadius: 5,
		ReloadTime:          1.5,
		CommandQueue:        256,
		LivenessInterval:    time.Second,
		Gas:                 gas.DefaultParams(),
	}
}

// TickInterval is the nominal time between simulation ticks
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(max(c.TickRate, 1))
}

// NetSyncInterval is the nominal time between flushes
func (c Config) NetSyncInterval() time.Duration {
	return time.Second / time.Duration(max(c.NetSyncRate, 1))
}
