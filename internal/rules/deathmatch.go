package rules

import (
	"fmt"
	"math"
	"slices"

	"royale-server/internal/event"
	"royale-server/internal/gas"
	"royale-server/internal/match"
	"royale-server/internal/schedule"
	"royale-server/internal/world"
)

var deathmatchGuns = map[string]world.Weapon{
	"spas12":      {Type: "spas12", ClipSize: 9, Damage: 25, Cooldown: 0.75, Speed: 90, Range: 40},
	"m870":        {Type: "m870", ClipSize: 5, Damage: 30, Cooldown: 0.9, Speed: 90, Range: 40},
	"ak47":        {Type: "ak47", ClipSize: 30, Damage: 13.5, Cooldown: 0.1, Speed: 100, Range: 100},
	"hk416":       {Type: "hk416", ClipSize: 30, Damage: 11.5, Cooldown: 0.075, Speed: 110, Range: 100},
	"blr":         {Type: "blr", ClipSize: 5, Damage: 56, Cooldown: 0.8, Speed: 140, Range: 200},
	"scout_elite": {Type: "scout_elite", ClipSize: 5, Damage: 68, Cooldown: 1.2, Speed: 140, Range: 200},
}

// each loadout is a fixed close-range gun plus one pick from a tier
var deathmatchLoadouts = []struct {
	primary string
	tier    []string
}{
	{"spas12", []string{"ak47", "hk416"}},
	{"m870", []string{"blr", "scout_elite"}},
}

var fists = world.Weapon{Type: "fists", Damage: 20, Cooldown: 0.25, Range: 1.5}

// Deathmatch turns a match into a timed respawn mode: no ground loot, obstacles
// regrow, the zone follows the player count and the group with the most kills
// when time runs out wins.
type Deathmatch struct {
	DeathmatchSettings
}

func (*Deathmatch) Name() string { return NameDeathmatch }

func (d *Deathmatch) RegisterHandlers(m *match.Instance) {
	b := m.Bus()

	event.On(b, NameDeathmatch, func(*event.Event, *event.MapCreated) { clearLoot(m) })

	event.On(b, NameDeathmatch, func(e *event.Event, od *event.ObstacleDeathBeforeEffects) {
		e.Cancel()
		o := od.Obstacle
		o.Kill()
		m.Grid().MakeDynamic(o)
		m.After(NameDeathmatch, d.RegrowDelay, func(*schedule.Context) { m.RegrowObstacle(o) })
	})

	// respawns keep the match alive until the time limit
	event.Transform(b, NameDeathmatch, event.IsMatchOver, func(bool, *event.OverCheck) bool { return false })

	event.On(b, NameDeathmatch, func(*event.Event, *event.MatchStarted) {
		m.After(NameDeathmatch, d.Duration, func(*schedule.Context) { m.EndMatch(topKillGroup(m)) })
		m.After(NameDeathmatch, d.Duration-d.EndCountdown, func(*schedule.Context) {
			m.Countdown(NameDeathmatch, d.EndCountdown, d.EndCountdownStep,
				func(_ *schedule.Context, left int) { m.Announce(fmt.Sprintf("round ends in %d seconds", left)) },
				func(*schedule.Context) { m.Announce("ROUND OVER") })
		})
	})

	event.On(b, NameDeathmatch, func(_ *event.Event, j *event.PlayerJoined) {
		d.equip(m, j.Player)
	})

	event.On(b, NameDeathmatch, func(e *event.Event, pd *event.PlayerWillDie) {
		e.Cancel()
		d.die(m, pd.Player, pd.Params)
	})

	d.attachGasResizer(m)
}

func (d *Deathmatch) equip(m *match.Instance, p *world.Player) {
	lo := deathmatchLoadouts[m.Rand().IntN(len(deathmatchLoadouts))]
	var w [world.WeaponSlots]world.Weapon
	w[world.SlotPrimary] = deathmatchGuns[lo.primary]
	w[world.SlotSecondary] = deathmatchGuns[lo.tier[m.Rand().IntN(len(lo.tier))]]
	w[world.SlotMelee] = fists
	for i := range w {
		w[i].Ammo = w[i].ClipSize
	}
	p.Equip(w)
	p.Heal(world.PlayerMaxHealth)
	p.AddBoost(world.PlayerMaxBoost)
}

// die replaces the default death: the killer is credited and rewarded and the
// victim respawns after RespawnDelay
func (d *Deathmatch) die(m *match.Instance, p *world.Player, params world.DamageParams) {
	killer := m.Arena().Player(params.SourceID)
	p.Die(params.SourceID)
	p.AddBoost(-p.Boost)
	var bare [world.WeaponSlots]world.Weapon
	bare[world.SlotMelee] = fists
	p.Equip(bare)

	if killer != nil && killer != p && killer.GroupID != p.GroupID {
		killer.Kills++
		killer.MarkDirty(world.DirtyFull)
		rewardKill(m, killer)
		killer.AddItem("bandage", 5)
		killer.AddItem("healthkit", 1)
		killer.AddItem("soda", 1)
		m.Announce(fmt.Sprintf("%s killed %s", killer.Name, p.Name))
	} else {
		m.Announce(p.Name + " died")
	}

	if p.Disconnected {
		return
	}
	id := p.ID()
	m.After(NameDeathmatch, d.RespawnDelay-d.RespawnCountdown, func(*schedule.Context) {
		m.Countdown(NameDeathmatch, d.RespawnCountdown, 1,
			func(_ *schedule.Context, left int) { m.AnnounceTo(id, fmt.Sprintf("%d seconds left", left)) },
			func(*schedule.Context) { m.AnnounceTo(id, "respawned!") })
	})
	m.After(NameDeathmatch, d.RespawnDelay, func(*schedule.Context) {
		if p.Disconnected || m.Over() {
			return
		}
		m.Revive(p, m.RandomFreePos(p.Radius))
		d.equip(m, p)
	})
}

// topKillGroup returns the group whose connected players scored the most
// kills. Ties go to the group that joined first.
func topKillGroup(m *match.Instance) *world.Group {
	var best *world.Group
	bestKills := -1
	for _, g := range m.Groups() {
		kills := 0
		for _, id := range g.Members {
			if p := m.Arena().Player(id); p != nil && !p.Disconnected {
				kills += p.Kills
			}
		}
		if kills > bestKills {
			best, bestKills = g, kills
		}
	}
	return best
}

// attachGasResizer keeps the zone static and grows it by GasRadiusDelta for
// every group that joins, shrinking it again when one leaves
func (d *Deathmatch) attachGasResizer(m *match.Instance) {
	b := m.Bus()
	z := m.Zone()

	event.On(b, NameDeathmatch, func(*event.Event, *event.MatchCreated) {
		z.SetRunning(true)
		z.Mode = gas.Waiting
		z.Stage = 1
		z.Duration = 0
		z.Damage = d.GasDamage
		z.SetRadius(d.GasRadius)
	})

	event.On(b, NameDeathmatch, func(e *event.Event, _ *event.ZoneWillAdvance) { e.Cancel() })

	event.On(b, NameDeathmatch, func(*event.Event, *event.Tick) {
		if z.Mode == gas.Moving && z.T >= 1 {
			z.Mode = gas.Waiting
			z.Duration = 0
			z.RadOld, z.RadNew = z.CurrentRad, z.CurrentRad
			z.Dirty = true
		}
	})

	event.On(b, NameDeathmatch, func(_ *event.Event, j *event.PlayerJoined) {
		if connected(m, j.Group) > 1 {
			return
		}
		switch {
		case z.Mode == gas.Waiting:
			z.Elapsed = 0
			z.Duration += d.GasDurationDelta
		case z.RadNew < z.RadOld:
			// reverse a shrink in progress
			z.RadOld = z.RadNew
			z.Elapsed = d.GasDurationDelta
		default:
			z.Duration += d.GasDurationDelta
		}
		d.resize(z, d.GasRadiusDelta)
	})

	event.On(b, NameDeathmatch, func(_ *event.Event, dc *event.PlayerDisconnected) {
		g := m.Arena().Group(dc.Player.GroupID)
		if g != nil && connected(m, g) > 0 {
			return
		}
		switch {
		case z.Mode == gas.Waiting:
			z.Elapsed = 0
			z.Duration += d.GasDurationDelta
		case z.RadNew < z.RadOld:
			z.Duration -= d.GasDurationDelta
		default:
			z.RadOld = z.RadNew
			z.Elapsed = d.GasDurationDelta
		}
		d.resize(z, -d.GasRadiusDelta)
	})
}

func (d *Deathmatch) resize(z *gas.Zone, delta float64) {
	z.RadNew = math.Max(z.RadNew+delta, 0)
	z.Mode = gas.Moving
	z.T = 0
	z.Dirty = true
	z.TimeDirty = true
}

func connected(m *match.Instance, g *world.Group) int {
	return len(slices.DeleteFunc(slices.Clone(g.Members), func(id uint32) bool {
		p := m.Arena().Player(id)
		return p == nil || p.Disconnected
	}))
}
