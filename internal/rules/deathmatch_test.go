package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royale-server/internal/gas"
	"royale-server/internal/geom"
	"royale-server/internal/match"
	"royale-server/internal/world"
)

func newDeathmatch(mod func(*DeathmatchSettings)) *Deathmatch {
	s := DefaultSettings().Deathmatch
	if mod != nil {
		mod(&s)
	}
	return &Deathmatch{DeathmatchSettings: s}
}

func TestDeathmatchRespawn(t *testing.T) {
	cfg := testConfig()
	cfg.Loot = 5
	m := start(t, cfg, nil, newDeathmatch(nil))
	assert.Empty(t, m.Arena().Loot())

	a := join(t, m, "a", geom.V(45, 50))
	b := join(t, m, "b", geom.V(55, 50))
	assert.Contains(t, []string{"spas12", "m870"}, a.Weapons[world.SlotPrimary].Type)
	assert.Equal(t, world.PlayerMaxBoost, a.Boost)

	m.Tick(0.1)
	require.True(t, m.Started())

	m.DamagePlayer(b, world.DamageParams{Amount: 500, SourceID: a.ID(), WeaponType: "spas12"})
	require.True(t, b.Dead)
	assert.Equal(t, 1, a.Kills)
	assert.Equal(t, 5, a.Inventory["bandage"])
	assert.True(t, b.Weapons[world.SlotPrimary].Empty())
	assert.Equal(t, world.SlotMelee, b.CurWeapon)
	assert.Positive(t, m.Scheduler().PendingFor(NameDeathmatch))

	for i := 0; i < 30 && !b.Alive(); i++ {
		m.Tick(0.5)
		assert.False(t, m.Over(), "a dead player does not end a deathmatch")
	}
	require.True(t, b.Alive())
	assert.Equal(t, world.PlayerMaxHealth, b.Health)
	w := b.Weapons[world.SlotPrimary]
	assert.False(t, w.Empty())
	assert.Equal(t, w.ClipSize, w.Ammo)
	assert.InDelta(t, 5.1, m.Now(), 1e-6)
}

func TestDeathmatchTimeLimit(t *testing.T) {
	m := start(t, testConfig(), nil, newDeathmatch(func(s *DeathmatchSettings) {
		s.Duration, s.EndCountdown, s.EndCountdownStep = 10, 3, 1
	}))
	a := join(t, m, "a", geom.V(45, 50))
	b := join(t, m, "b", geom.V(55, 50))
	m.Tick(0.1)
	m.DamagePlayer(b, world.DamageParams{Amount: 500, SourceID: a.ID()})

	for i := 0; i < 40 && !m.Over(); i++ {
		m.Tick(0.5)
	}
	require.True(t, m.Over())
	require.NotNil(t, m.Winner())
	assert.Equal(t, a.GroupID, m.Winner().ID)
	assert.InDelta(t, 10.1, m.Now(), 1e-6)
}

func TestDeathmatchObstacleRegrow(t *testing.T) {
	m := start(t, testConfig(), nil, newDeathmatch(func(s *DeathmatchSettings) { s.RegrowDelay = 1 }))
	tree := world.NewObstacle("tree", geom.V(20, 20), 2, 10)
	tree.Loot = []world.LootDrop{{Type: "ammo", Count: 30}}
	m.Arena().Add(tree)
	m.Grid().Insert(tree)

	m.DamageObstacle(tree, world.DamageParams{Amount: 50})
	require.True(t, tree.Dead)
	assert.True(t, m.Grid().IsDynamic(tree))
	assert.Empty(t, m.Arena().Loot())

	m.Tick(0.5)
	assert.True(t, tree.Dead)
	m.Tick(0.5)
	assert.False(t, tree.Dead)
	assert.Equal(t, tree.MaxHealth, tree.Health)
}

func TestDeathmatchGasResizer(t *testing.T) {
	m := start(t, testConfig(), nil, newDeathmatch(nil))
	z := m.Zone()
	assert.Equal(t, gas.Waiting, z.Mode)
	assert.Equal(t, 50.0, z.CurrentRad)
	assert.Equal(t, 30.0, z.Damage)

	a := join(t, m, "a", geom.V(50, 50))
	assert.Equal(t, gas.Moving, z.Mode)
	assert.Equal(t, 60.0, z.RadNew)
	assert.Equal(t, 5.0, z.Duration)

	tickFor(m, 0.5, 10)
	assert.InDelta(t, 60, z.CurrentRad, 1e-9)
	m.Tick(0.5)
	assert.Equal(t, gas.Waiting, z.Mode)
	assert.Equal(t, 60.0, z.RadOld)

	m.Disconnect(a.ID())
	assert.Equal(t, gas.Moving, z.Mode)
	assert.Equal(t, 50.0, z.RadNew)
	assert.Equal(t, 5.0, z.Duration)
	assert.Zero(t, z.Elapsed)
}

func TestDeathmatchGasGrowsOncePerGroup(t *testing.T) {
	cfg := testConfig()
	cfg.TeamMode = true
	m := start(t, cfg, nil, newDeathmatch(nil))
	z := m.Zone()

	_, err := m.Join(match.JoinRequest{Name: "r1", GroupKey: "red"})
	require.NoError(t, err)
	_, err = m.Join(match.JoinRequest{Name: "r2", GroupKey: "red"})
	require.NoError(t, err)
	assert.Equal(t, 60.0, z.RadNew)

	_, err = m.Join(match.JoinRequest{Name: "b1", GroupKey: "blue"})
	require.NoError(t, err)
	assert.Equal(t, 70.0, z.RadNew)
	assert.Equal(t, 10.0, z.Duration)
}
