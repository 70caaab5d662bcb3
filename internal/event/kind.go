// Package event is the publish/subscribe bus and hook chain rule scripts use to
// observe and override match behaviour.
package event

// Kind identifies an event. The set is closed; every kind has exactly one payload type.
type Kind uint8

const (
	KindMatchCreated Kind = iota + 1
	KindMapCreated
	KindMatchStarted
	KindTick
	KindPlayerJoined
	KindPlayerDisconnected
	KindPlayerWillInput
	KindPlayerWillTakeDamage
	KindPlayerDidTakeDamage
	KindPlayerWillDie
	KindPlayerDidDie
	KindObstacleWillTakeDamage
	KindObstacleDeathBeforeEffects
	KindObstacleDeathAfterEffects
	KindZoneWillAdvance
	KindPingOccurred
	KindPlayerWillSwitchWeapon
	KindMatchEnded

	kindCount
)

var kindNames = [kindCount]string{
	KindMatchCreated:               "match_created",
	KindMapCreated:                 "map_created",
	KindMatchStarted:               "match_started",
	KindTick:                       "tick",
	KindPlayerJoined:               "player_joined",
	KindPlayerDisconnected:         "player_disconnected",
	KindPlayerWillInput:            "player_will_input",
	KindPlayerWillTakeDamage:       "player_will_take_damage",
	KindPlayerDidTakeDamage:        "player_did_take_damage",
	KindPlayerWillDie:              "player_will_die",
	KindPlayerDidDie:               "player_did_die",
	KindObstacleWillTakeDamage:     "obstacle_will_take_damage",
	KindObstacleDeathBeforeEffects: "obstacle_death_before_effects",
	KindObstacleDeathAfterEffects:  "obstacle_death_after_effects",
	KindZoneWillAdvance:            "zone_will_advance",
	KindPingOccurred:               "ping_occurred",
	KindPlayerWillSwitchWeapon:     "player_will_switch_weapon",
	KindMatchEnded:                 "match_ended",
}

func (k Kind) String() string {
	if k == 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Valid reports whether k is one of the declared kinds
func (k Kind) Valid() bool { return k > 0 && k < kindCount }
