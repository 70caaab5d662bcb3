// Package rules holds the rule scripts a match can be configured with. Each
// script only talks to the match through events, hooks and the scheduler.
package rules

import (
	"errors"
	"fmt"

	"royale-server/internal/gas"
	"royale-server/internal/match"
	"royale-server/internal/world"
)

// Script names accepted by Build
const (
	NameGracePeriod      = "grace_period"
	NameMovingGas        = "moving_gas"
	NameStageGas         = "stage_gas"
	NameGasDamageScaling = "gas_damage_scaling"
	NameKillRewards      = "kill_rewards"
	NameLootDisabler     = "loot_disabler"
	NameObstacleLoot     = "obstacle_loot"
	NameDonutSpawner     = "donut_spawner"
	NameQuickSwitch      = "quick_switch"
	NameLootPing         = "loot_ping"
	NameLocationRevealer = "location_revealer"
	NameDeathmatch       = "deathmatch"
	NameJoinTracking     = "join_tracking"
)

var ErrUnknownScript = errors.New("rules: unknown script")

// GraceSettings configures the grace period
type GraceSettings struct {
	Period         float64 `mapstructure:"period"`
	CanJoin        float64 `mapstructure:"canJoin"`
	CountdownStart float64 `mapstructure:"countdownStart"`
}

type DonutSettings struct {
	Inner    float64 `mapstructure:"inner"`    // fraction of half the map size
	Outer    float64 `mapstructure:"outer"`
	Variance float64 `mapstructure:"variance"` // degrees
}

type LootPingSettings struct {
	Cooldown    float64 `mapstructure:"cooldown"`
	MaxDistance float64 `mapstructure:"maxDistance"`
}

// DeathmatchSettings configures respawns, the time limit and the gas resizer
type DeathmatchSettings struct {
	RespawnDelay     float64 `mapstructure:"respawnDelay"`
	RespawnCountdown float64 `mapstructure:"respawnCountdown"`
	Duration         float64 `mapstructure:"duration"`
	EndCountdown     float64 `mapstructure:"endCountdown"`
	EndCountdownStep float64 `mapstructure:"endCountdownStep"`
	RegrowDelay      float64 `mapstructure:"regrowDelay"`
	GasRadius        float64 `mapstructure:"gasRadius"`
	GasRadiusDelta   float64 `mapstructure:"gasRadiusDelta"`
	GasDurationDelta float64 `mapstructure:"gasDurationDelta"`
	GasDamage        float64 `mapstructure:"gasDamage"`
}

// Settings carries the tunables of every script
type Settings struct {
	Grace        GraceSettings               `mapstructure:"grace"`
	SwitchDelay  float64                     `mapstructure:"switchDelay"`
	MovingGas    gas.Params                  `mapstructure:"movingGas"`
	StageFile    string                      `mapstructure:"stageFile"`
	Donut        DonutSettings               `mapstructure:"donut"`
	LootPing     LootPingSettings            `mapstructure:"lootPing"`
	RevealEvery  float64                     `mapstructure:"revealEvery"`
	ObstacleLoot map[string][]world.LootDrop `mapstructure:"obstacleLoot"`
	Deathmatch   DeathmatchSettings          `mapstructure:"deathmatch"`
}

// DefaultSettings returns the values the game modes ship with
func DefaultSettings() Settings {
	mg := gas.DefaultParams()
	mg.FirstMovingZone = 1
	mg.MovingRadiusMul = 0.7
	mg.MovingZoneOffset = 0.5
	return Settings{
		Grace:       GraceSettings{Period: 10, CanJoin: 30, CountdownStart: 5},
		SwitchDelay: 0.205,
		MovingGas:   mg,
		Donut:       DonutSettings{Inner: 0.4, Outer: 0.8},
		LootPing:    LootPingSettings{Cooldown: 3, MaxDistance: 8},
		RevealEvery: 60,
		ObstacleLoot: map[string][]world.LootDrop{
			"tree":  {{Type: "bandage", Count: 1}},
			"crate": {{Type: "ammo", Count: 30}, {Type: "soda", Count: 1}},
		},
		Deathmatch: DeathmatchSettings{
			RespawnDelay:     5,
			RespawnCountdown: 3,
			Duration:         180,
			EndCountdown:     30,
			EndCountdownStep: 10,
			RegrowDelay:      20,
			GasRadius:        50,
			GasRadiusDelta:   10,
			GasDurationDelta: 5,
			GasDamage:        30,
		},
	}
}

// JoinRecorder persists who joined from where
type JoinRecorder interface {
	Track(name, ip string) bool
}

// Deps are the external inputs some scripts need
type Deps struct {
	Settings Settings
	Stages   []gas.Stage  // stage_gas
	Joins    JoinRecorder // join_tracking
}

// Build creates fresh script instances for one match, in the given order
func Build(names []string, deps Deps) ([]match.Script, error) {
	out := make([]match.Script, 0, len(names))
	s := deps.Settings
	for _, name := range names {
		var sc match.Script
		switch name {
		case NameGracePeriod:
			if s.Grace.CanJoin < s.Grace.Period || s.Grace.CountdownStart > s.Grace.Period {
				return nil, fmt.Errorf("rules: grace period %v must not exceed canJoin %v or be shorter than its countdown %v",
					s.Grace.Period, s.Grace.CanJoin, s.Grace.CountdownStart)
			}
			sc = NewGracePeriod(s.Grace)
		case NameMovingGas:
			sc = &MovingGas{Params: s.MovingGas}
		case NameStageGas:
			if len(deps.Stages) == 0 {
				return nil, fmt.Errorf("rules: %s needs a stage table", name)
			}
			sc = &StageGas{Stages: deps.Stages, FirstMovingZone: s.MovingGas.FirstMovingZone}
		case NameGasDamageScaling:
			sc = GasDamageScaling{}
		case NameKillRewards:
			sc = KillRewards{}
		case NameLootDisabler:
			sc = LootDisabler{}
		case NameObstacleLoot:
			sc = ObstacleLoot{Table: s.ObstacleLoot}
		case NameDonutSpawner:
			sc = DonutSpawner{DonutSettings: s.Donut}
		case NameQuickSwitch:
			sc = QuickSwitch{Delay: s.SwitchDelay}
		case NameLootPing:
			sc = NewLootPing(s.LootPing)
		case NameLocationRevealer:
			sc = LocationRevealer{Every: s.RevealEvery}
		case NameDeathmatch:
			d := s.Deathmatch
			if d.RespawnCountdown > d.RespawnDelay || d.EndCountdown > d.Duration {
				return nil, fmt.Errorf("rules: deathmatch countdowns must fit inside their delays")
			}
			sc = &Deathmatch{DeathmatchSettings: d}
		case NameJoinTracking:
			if deps.Joins == nil {
				return nil, fmt.Errorf("rules: %s needs a join store", name)
			}
			sc = JoinTracking{Joins: deps.Joins}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownScript, name)
		}
		out = append(out, sc)
	}
	return out, nil
}
