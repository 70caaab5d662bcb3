package event

import (
	"slices"

	"royale-server/internal/world"
)

// Hook is a named value computation rule scripts can chain-transform. T is
// the value type and D the read-only context passed to every transformer.
type Hook[T, D any] struct {
	name string
}

// NewHook declares a hook point
func NewHook[T, D any](name string) Hook[T, D] { return Hook[T, D]{name: name} }

func (h Hook[T, D]) String() string { return h.name }

// StartCheck is the context of IsMatchStarted
type StartCheck struct {
	Alive       int
	AliveGroups int
	Elapsed     float64
}

// JoinRequest is the context of CanPlayerJoin
type JoinRequest struct {
	Name     string
	IP       string
	GroupKey string
	Alive    int
	Elapsed  float64
}

// OverCheck is the context of IsMatchOver
type OverCheck struct {
	AliveGroups int
	Elapsed     float64
}

// GasTick is the context of GasDamage
type GasTick struct {
	Player  *world.Player
	Seconds float64 // whole seconds spent inside the gas, including this tick
}

// Hook points resolved by the match
var (
	IsMatchStarted = NewHook[bool, *StartCheck]("is_match_started")
	CanPlayerJoin  = NewHook[bool, *JoinRequest]("can_player_join")
	IsMatchOver    = NewHook[bool, *OverCheck]("is_match_over")
	GasDamage      = NewHook[float64, *GasTick]("gas_damage")
)

// Transform registers fn on hook h for owner
func Transform[T, D any](b *Bus, owner string, h Hook[T, D], fn func(v T, d D) T) Handle {
	bd := &binding{owner: owner, hook: h.name, fn: fn, active: true}
	b.hooks[h.name] = append(slices.Clip(b.hooks[h.name]), bd)
	return Handle{b: b, bd: bd}
}

// Resolve folds every transformer of h over def in registration order. A
// transformer that panics leaves the value as it was.
func Resolve[T, D any](b *Bus, h Hook[T, D], def T, d D) T {
	v := def
	for _, bd := range b.hooks[h.name] {
		if !bd.active {
			continue
		}
		fn := bd.fn.(func(T, D) T)
		in := v
		b.guard(bd, h.name, func() { v = fn(in, d) })
	}
	return v
}

// HookCount returns the number of transformers on h
func HookCount[T, D any](b *Bus, h Hook[T, D]) int {
	return len(b.hooks[h.name])
}
