package event

import (
	"royale-server/internal/gas"
	"royale-server/internal/geom"
	"royale-server/internal/world"
)

// Payload is the data carried by one event. Implementations are pointer types
// so listeners can adjust parameters the dispatcher reads back afterwards.
type Payload interface {
	Kind() Kind
}

// MatchCreated is raised once when the instance is constructed.
type MatchCreated struct {
	Width, Height float64
	TeamMode      bool
}

// MapCreated is raised after the initial obstacles and loot were placed.
type MapCreated struct{}

// MatchStarted is raised on the Created -> Started transition.
type MatchStarted struct {
	Players int
}

// Tick is raised first in every simulation tick.
type Tick struct {
	Dt    float64
	Count uint64
}

// PlayerJoined is raised after a player was placed in the world.
type PlayerJoined struct {
	Player   *world.Player
	Group    *world.Group
	NewGroup bool
}

// PlayerDisconnected is raised when a client goes away. The player stays in
// the arena as a disconnected body.
type PlayerDisconnected struct {
	Player *world.Player
}

// PlayerWillInput is raised before a client's input is applied. Cancel drops it.
type PlayerWillInput struct {
	Player *world.Player
	Input  *world.Input
}

// PlayerWillTakeDamage can cancel or rescale Params.Amount.
type PlayerWillTakeDamage struct {
	Player *world.Player
	Params *world.DamageParams
}

type PlayerDidTakeDamage struct {
	Player *world.Player
	Params world.DamageParams
	Dealt  float64
}

// PlayerWillDie is raised when health reached zero. Cancel keeps the player alive
// and skips the default death handling.
type PlayerWillDie struct {
	Player *world.Player
	Params world.DamageParams
}

type PlayerDidDie struct {
	Player *world.Player
	Killer *world.Player // nil for environmental deaths
	Params world.DamageParams
}

type ObstacleWillTakeDamage struct {
	Obstacle *world.Obstacle
	Params   *world.DamageParams
}

// ObstacleDeathBeforeEffects is raised when an obstacle is destroyed. Cancel
// skips the rubble conversion and the loot drop.
type ObstacleDeathBeforeEffects struct {
	Obstacle *world.Obstacle
	Params   world.DamageParams
}

type ObstacleDeathAfterEffects struct {
	Obstacle *world.Obstacle
	Params   world.DamageParams
}

// ZoneWillAdvance is raised when the zone's stage timer ran out. Cancel skips the
// default advance so a listener can apply its own stage.
type ZoneWillAdvance struct {
	Zone *gas.Zone
}

// PingOccurred is raised for map pings. Cancel suppresses the broadcast.
type PingOccurred struct {
	Player *world.Player
	Type   string
	Pos    geom.Vec2
}

// PlayerWillSwitchWeapon is raised before the active slot changes. Cancel keeps
// the current slot.
type PlayerWillSwitchWeapon struct {
	Player *world.Player
	From   int
	To     int
}

// MatchEnded is raised once when the match is over. Winner is nil on a draw.
type MatchEnded struct {
	Winner *world.Group
}

func (*MatchCreated) Kind() Kind { return KindMatchCreated }
func (*MapCreated) Kind() Kind { return KindMapCreated }
func (*MatchStarted) Kind() Kind { return KindMatchStarted }
func (*Tick) Kind() Kind { return KindTick }
func (*PlayerJoined) Kind() Kind { return KindPlayerJoined }
func (*PlayerDisconnected) Kind() Kind { return KindPlayerDisconnected }
func (*PlayerWillInput) Kind() Kind { return KindPlayerWillInput }
func (*PlayerWillTakeDamage) Kind() Kind { return KindPlayerWillTakeDamage }
func (*PlayerDidTakeDamage) Kind() Kind { return KindPlayerDidTakeDamage }
func (*PlayerWillDie) Kind() Kind { return KindPlayerWillDie }
func (*PlayerDidDie) Kind() Kind { return KindPlayerDidDie }
func (*ObstacleWillTakeDamage) Kind() Kind { return KindObstacleWillTakeDamage }
func (*ObstacleDeathBeforeEffects) Kind() Kind { return KindObstacleDeathBeforeEffects }
func (*ObstacleDeathAfterEffects) Kind() Kind { return KindObstacleDeathAfterEffects }
func (*ZoneWillAdvance) Kind() Kind { return KindZoneWillAdvance }
func (*PingOccurred) Kind() Kind { return KindPingOccurred }
func (*PlayerWillSwitchWeapon) Kind() Kind { return KindPlayerWillSwitchWeapon }
func (*MatchEnded) Kind() Kind { return KindMatchEnded }
