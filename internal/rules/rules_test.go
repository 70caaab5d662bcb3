package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royale-server/internal/event"
	"royale-server/internal/gas"
	"royale-server/internal/geom"
	"royale-server/internal/match"
	"royale-server/internal/world"
)

func testConfig() match.Config {
	cfg := match.DefaultConfig()
	cfg.Width, cfg.Height, cfg.CellSize = 100, 100, 10
	cfg.Obstacles, cfg.Loot = 0, 0
	cfg.Seed = 7
	return cfg
}

type feedSink map[uint32][]*match.Snapshot

func (f feedSink) Send(id uint32, s *match.Snapshot) { f[id] = append(f[id], s) }

func (f feedSink) feed(id uint32) []string {
	var out []string
	for _, s := range f[id] {
		out = append(out, s.KillFeed...)
	}
	return out
}

func start(t *testing.T, cfg match.Config, opts []match.Option, scripts ...match.Script) *match.Instance {
	t.Helper()
	m := match.New(cfg, opts...)
	for _, s := range scripts {
		require.NoError(t, m.Activate(s))
	}
	m.Init()
	return m
}

func join(t *testing.T, m *match.Instance, name string, pos geom.Vec2) *world.Player {
	t.Helper()
	p, err := m.Join(match.JoinRequest{Name: name})
	require.NoError(t, err)
	m.Teleport(p, pos)
	return p
}

func tickFor(m *match.Instance, dt float64, n int) {
	for range n {
		m.Tick(dt)
	}
}

type recorder struct {
	names, ips []string
}

func (r *recorder) Track(name, ip string) bool {
	r.names = append(r.names, name)
	r.ips = append(r.ips, ip)
	return true
}

func TestBuild(t *testing.T) {
	all := []string{
		NameGracePeriod, NameMovingGas, NameStageGas, NameGasDamageScaling, NameKillRewards,
		NameLootDisabler, NameObstacleLoot, NameDonutSpawner, NameQuickSwitch, NameLootPing,
		NameLocationRevealer, NameDeathmatch, NameJoinTracking,
	}
	deps := Deps{
		Settings: DefaultSettings(),
		Stages:   []gas.Stage{{Mode: gas.Waiting, Duration: 10, Radius: 0.2}},
		Joins:    &recorder{},
	}
	scripts, err := Build(all, deps)
	require.NoError(t, err)
	require.Len(t, scripts, len(all))
	for i, s := range scripts {
		assert.Equal(t, all[i], s.Name())
	}

	_, err = Build([]string{"nope"}, deps)
	assert.ErrorIs(t, err, ErrUnknownScript)

	_, err = Build([]string{NameStageGas}, Deps{Settings: DefaultSettings()})
	assert.Error(t, err)
	_, err = Build([]string{NameJoinTracking}, Deps{Settings: DefaultSettings()})
	assert.Error(t, err)

	bad := DefaultSettings()
	bad.Grace.CanJoin = 1
	_, err = Build([]string{NameGracePeriod}, Deps{Settings: bad})
	assert.Error(t, err)
}

func TestBuildGivesFreshState(t *testing.T) {
	a, err := Build([]string{NameGracePeriod}, Deps{Settings: DefaultSettings()})
	require.NoError(t, err)
	b, err := Build([]string{NameGracePeriod}, Deps{Settings: DefaultSettings()})
	require.NoError(t, err)
	assert.NotSame(t, a[0], b[0])
}

func TestGracePeriod(t *testing.T) {
	g := NewGracePeriod(GraceSettings{Period: 2, CanJoin: 4, CountdownStart: 1})
	m := start(t, testConfig(), nil, g)
	a := join(t, m, "a", geom.V(40, 50))
	b := join(t, m, "b", geom.V(60, 50))

	m.ApplyInput(a.ID(), world.Input{Move: geom.V(1, 0)})
	assert.Equal(t, geom.Vec2{}, a.Input.Move, "movement is held during the grace period")

	tickFor(m, 0.5, 2)
	assert.Positive(t, m.Scheduler().PendingFor(NameGracePeriod), "countdown is running")
	tickFor(m, 0.5, 2)
	assert.False(t, m.Started())
	assert.Zero(t, m.DamagePlayer(b, world.DamageParams{Amount: 10, SourceID: a.ID()}))
	assert.Equal(t, 100.0, b.Health)

	m.Tick(0.5)
	assert.True(t, m.Started())
	assert.True(t, g.Over())
	assert.Equal(t, geom.V(1, 0), a.Input.Move, "held movement is restored")
	assert.Equal(t, 10.0, m.DamagePlayer(b, world.DamageParams{Amount: 10, SourceID: a.ID()}))

	_, err := m.Join(match.JoinRequest{Name: "late"})
	assert.NoError(t, err, "joins stay open after the start until canJoin")

	tickFor(m, 0.5, 4)
	_, err = m.Join(match.JoinRequest{Name: "too late"})
	assert.ErrorIs(t, err, match.ErrJoinRejected)
}

func TestGracePeriodClockNeedsTwoPlayers(t *testing.T) {
	g := NewGracePeriod(GraceSettings{Period: 1, CanJoin: 2, CountdownStart: 1})
	m := start(t, testConfig(), nil, g)
	join(t, m, "a", geom.V(40, 50))
	tickFor(m, 0.5, 10)
	assert.False(t, g.Over())
	assert.False(t, m.Started())
}

func TestGasDamageScaling(t *testing.T) {
	m := start(t, testConfig(), nil, GasDamageScaling{})
	resolve := func(sec float64) float64 {
		return event.Resolve(m.Bus(), event.GasDamage, 10, &event.GasTick{Seconds: sec})
	}
	assert.InDelta(t, 11, resolve(1), 1e-9)
	assert.InDelta(t, 15, resolve(5), 1e-9)
	assert.InDelta(t, 30, resolve(20), 1e-9)
	assert.InDelta(t, 30, resolve(45), 1e-9)
}

func TestMovingGas(t *testing.T) {
	p := gas.DefaultParams()
	p.Damages = []float64{7}
	p.InitWaitTime, p.WaitTimeDecrement, p.MinWaitTime = 50, 10, 5
	m := start(t, testConfig(), nil, &MovingGas{Params: p})

	m.AdvanceZone()
	z := m.Zone()
	assert.Equal(t, gas.Waiting, z.Mode)
	assert.Equal(t, 7.0, z.Damage)
	assert.Equal(t, 40.0, z.Duration)
}

func TestStageGas(t *testing.T) {
	stages, err := ParseStages(strings.NewReader(`
stages:
  - {mode: waiting, duration: 10, radius: 0.25, damage: 2}
  - {mode: moving, duration: 5, radius: 0.25, damage: 3}
`))
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, gas.Moving, stages[1].Mode)

	m := start(t, testConfig(), nil, &StageGas{Stages: stages, FirstMovingZone: 3})
	z := m.Zone()
	m.AdvanceZone()
	assert.Equal(t, gas.Waiting, z.Mode)
	assert.Equal(t, 25.0, z.RadNew, "a quarter of the 100 wide map")
	assert.Equal(t, 10.0, z.Duration)

	m.AdvanceZone()
	assert.Equal(t, gas.Moving, z.Mode)
	assert.Equal(t, 3.0, z.Damage)

	m.AdvanceZone()
	assert.False(t, z.Running())

	_, err = ParseStages(strings.NewReader("stages:\n  - {mode: spinning}\n"))
	assert.Error(t, err)
}

func TestStageGasOpeningStage(t *testing.T) {
	stages, err := ParseStages(strings.NewReader(`
stages:
  - {mode: inactive, radius: 0.5}
  - {mode: waiting, duration: 10, radius: 0.25, damage: 2}
`))
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, gas.Inactive, stages[0].Mode)

	m := start(t, testConfig(), nil, &StageGas{Stages: stages, FirstMovingZone: 3})
	z := m.Zone()
	assert.Equal(t, 50.0, z.CurrentRad, "opening circle from the inactive stage")

	m.AdvanceZone()
	assert.Equal(t, gas.Waiting, z.Mode)
	assert.Equal(t, 50.0, z.RadOld)
	assert.Equal(t, 25.0, z.RadNew)

	m.AdvanceZone()
	assert.False(t, z.Running())

	_, err = ParseStages(strings.NewReader(`
stages:
  - {mode: waiting, duration: 10, radius: 0.25}
  - {mode: inactive, radius: 0.5}
`))
	assert.Error(t, err)
}

func TestKillRewards(t *testing.T) {
	m := start(t, testConfig(), nil, KillRewards{})
	a := join(t, m, "a", geom.V(40, 50))
	b := join(t, m, "b", geom.V(60, 50))
	a.Health = 50
	a.Weapons[world.SlotPrimary].Ammo = 3

	m.DamagePlayer(b, world.DamageParams{Amount: 200, SourceID: a.ID(), WeaponType: "rifle"})
	require.True(t, b.Dead)
	assert.Equal(t, 75.0, a.Health)
	assert.Equal(t, 25.0, a.Boost)
	assert.Equal(t, 15, a.Weapons[world.SlotPrimary].Ammo)
}

func TestQuickSwitch(t *testing.T) {
	m := start(t, testConfig(), nil, QuickSwitch{Delay: 0.205})
	a := join(t, m, "a", geom.V(40, 50))

	m.SwitchWeapon(a.ID(), world.SlotMelee)
	assert.Equal(t, world.SlotMelee, a.CurWeapon)
	assert.InDelta(t, 0.205, a.Cooldown(), 1e-9)
}

func TestLootDisabler(t *testing.T) {
	cfg := testConfig()
	cfg.Loot = 10
	m := start(t, cfg, nil, LootDisabler{})
	assert.Empty(t, m.Arena().Loot())

	crate := world.NewBoxObstacle("crate", geom.V(20, 20), geom.V(1.5, 1.5), 10)
	crate.Loot = []world.LootDrop{{Type: "ammo", Count: 30}}
	m.Arena().Add(crate)
	m.Grid().Insert(crate)

	m.DamageObstacle(crate, world.DamageParams{Amount: 50})
	assert.True(t, crate.Dead)
	assert.Empty(t, m.Arena().Loot())
}

func TestObstacleLoot(t *testing.T) {
	table := map[string][]world.LootDrop{"tree": {{Type: "bandage", Count: 2}}}
	m := start(t, testConfig(), nil, ObstacleLoot{Table: table})
	tree := world.NewObstacle("tree", geom.V(20, 20), 2, 10)
	m.Arena().Add(tree)
	m.Grid().Insert(tree)

	m.DamageObstacle(tree, world.DamageParams{Amount: 50})
	require.Len(t, m.Arena().Loot(), 1)
	l := m.Arena().Loot()[0]
	assert.Equal(t, "bandage", l.Type)
	assert.Equal(t, 2, l.Count)
	assert.InDelta(t, 0.2, l.Pos.Dist(tree.Pos), 1e-9)
}

func TestDonut(t *testing.T) {
	m := match.New(testConfig())
	c := geom.V(50, 50)
	pts := []geom.Vec2{geom.V(60, 50), geom.V(50, 60), geom.V(40, 50)}
	got := donut(m.Rand(), c, 10, 10, pts, 0)
	assert.InDelta(t, 50, got.X, 1e-9)
	assert.InDelta(t, 40, got.Y, 1e-9)

	opposite := donut(m.Rand(), c, 10, 10, pts[:1], 0)
	assert.InDelta(t, 40, opposite.X, 1e-9)
	assert.InDelta(t, 50, opposite.Y, 1e-9)

	for range 20 {
		d := donut(m.Rand(), c, 5, 15, nil, 0).Dist(c)
		assert.GreaterOrEqual(t, d, 5-1e-9)
		assert.LessOrEqual(t, d, 15+1e-9)
	}
}

func TestDonutSpawner(t *testing.T) {
	m := start(t, testConfig(), nil, DonutSpawner{DonutSettings{Inner: 0.4, Outer: 0.8}})
	c := geom.V(50, 50)
	a, err := m.Join(match.JoinRequest{Name: "a"})
	require.NoError(t, err)
	b, err := m.Join(match.JoinRequest{Name: "b"})
	require.NoError(t, err)

	for _, p := range []*world.Player{a, b} {
		d := p.Pos.Dist(c)
		assert.GreaterOrEqual(t, d, 20-1e-9)
		assert.LessOrEqual(t, d, 40+1e-9)
		assert.Equal(t, p.Pos, m.Arena().Group(p.GroupID).SpawnPos)
	}
	assert.Negative(t, a.Pos.Sub(c).Dot(b.Pos.Sub(c)), "second spawn faces away from the first")
}

func TestLootPing(t *testing.T) {
	sink := feedSink{}
	m := start(t, testConfig(), []match.Option{match.WithSink(sink)}, NewLootPing(LootPingSettings{Cooldown: 3, MaxDistance: 5}))
	a := join(t, m, "a", geom.V(20, 20))
	m.DropLoot("scope", 1, geom.V(30, 20), world.LayerGround)
	m.DropLoot("soda", 1, geom.V(33, 20), world.LayerGround)

	m.Ping(a.ID(), "ping_help", geom.V(31, 20))
	m.Ping(a.ID(), "ping_help", geom.V(31, 20))
	m.Ping(a.ID(), "ping_danger", geom.V(31, 20))
	m.NetSync()
	assert.Equal(t, []string{"a pinged a scope"}, sink.feed(a.ID()))

	tickFor(m, 1, 3)
	m.Ping(a.ID(), "ping_help", geom.V(32.8, 20))
	m.NetSync()
	assert.Equal(t, []string{"a pinged a scope", "a pinged a soda"}, sink.feed(a.ID()))
}

func TestLocationRevealer(t *testing.T) {
	sink := feedSink{}
	m := start(t, testConfig(), []match.Option{match.WithSink(sink)}, LocationRevealer{Every: 1})
	a := join(t, m, "a", geom.V(40, 50))
	join(t, m, "b", geom.V(60, 50))

	m.Tick(0.1)
	require.True(t, m.Started())
	m.Tick(1)
	m.NetSync()
	pings := sink[a.ID()][0].Pings
	require.Len(t, pings, 2)
	assert.Equal(t, "ping_woodsking", pings[0].Type)

	a.DamageDealt = 5
	m.Tick(1)
	assert.Zero(t, m.Scheduler().PendingFor(NameLocationRevealer))
}

func TestJoinTracking(t *testing.T) {
	rec := &recorder{}
	m := start(t, testConfig(), nil, JoinTracking{Joins: rec})
	_, err := m.Join(match.JoinRequest{Name: "a", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rec.names)
	assert.Equal(t, []string{"10.0.0.1"}, rec.ips)
}
