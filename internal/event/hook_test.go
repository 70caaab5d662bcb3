package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFoldsInOrder(t *testing.T) {
	b := NewBus()
	d := 10.0
	Transform(b, "t1", GasDamage, func(v float64, _ *GasTick) float64 { return v + 1 })
	Transform(b, "t2", GasDamage, func(v float64, _ *GasTick) float64 { return v * 2 })

	t1 := func(v float64) float64 { return v + 1 }
	t2 := func(v float64) float64 { return v * 2 }
	assert.Equal(t, t2(t1(d)), Resolve(b, GasDamage, d, &GasTick{}))
}

func TestResolveWithoutTransformersReturnsDefault(t *testing.T) {
	b := NewBus()
	assert.True(t, Resolve(b, IsMatchStarted, true, &StartCheck{}))
	assert.False(t, Resolve(b, IsMatchStarted, false, &StartCheck{}))
}

func TestTransformerSeesContext(t *testing.T) {
	b := NewBus()
	Transform(b, "grace", CanPlayerJoin, func(v bool, r *JoinRequest) bool {
		return v && r.Elapsed < 60
	})
	assert.True(t, Resolve(b, CanPlayerJoin, true, &JoinRequest{Elapsed: 30}))
	assert.False(t, Resolve(b, CanPlayerJoin, true, &JoinRequest{Elapsed: 90}))
}

func TestFaultingTransformerKeepsValue(t *testing.T) {
	var faulted string
	b := NewBus(WithFaultHandler(func(owner, point string, _ any) { faulted = owner + "@" + point }))
	Transform(b, "a", GasDamage, func(v float64, _ *GasTick) float64 { return v + 5 })
	Transform(b, "bad", GasDamage, func(v float64, g *GasTick) float64 { return v * g.Player.Health })
	Transform(b, "c", GasDamage, func(v float64, _ *GasTick) float64 { return v * 2 })

	assert.Equal(t, 30.0, Resolve(b, GasDamage, 10, &GasTick{}))
	assert.Equal(t, "bad@gas_damage", faulted)
}

func TestHookUnregisteredMidResolve(t *testing.T) {
	b := NewBus()
	var second Handle
	Transform(b, "first", IsMatchStarted, func(v bool, _ *StartCheck) bool {
		second.Unregister()
		return v
	})
	second = Transform(b, "second", IsMatchStarted, func(bool, *StartCheck) bool { return false })

	assert.True(t, Resolve(b, IsMatchStarted, true, &StartCheck{}))
	assert.Equal(t, 1, HookCount(b, IsMatchStarted))
}
