package match

import (
	"fmt"
	"math"
	"slices"

	"royale-server/internal/event"
	"royale-server/internal/geom"
	"royale-server/internal/world"
)

// Tick advances the match by dt seconds of measured time. Rule scripts see
// the Tick event before any built-in system runs.
func (m *Instance) Tick(dt float64) {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		panic(fmt.Sprintf("match: invalid dt %v", dt))
	}
	if !m.inited {
		panic("match: Tick before Init")
	}
	if m.state == StateOver {
		return
	}
	m.ticks++
	m.now += dt

	m.bus.Dispatch(&event.Tick{Dt: dt, Count: m.ticks})
	m.sched.Advance(dt)
	m.checkStart()
	m.updatePlayers(dt)
	m.updateProjectiles(dt)
	m.pickupLoot()
	if m.zone.Tick(dt) {
		m.AdvanceZone()
	}
	m.updateGasDamage(dt)
	m.checkOver()
}

func (m *Instance) checkStart() {
	if m.state != StateCreated {
		return
	}
	alive := m.arena.AliveCount()
	groups := len(m.arena.AliveGroups())
	// team matches count squads, the same unit the over check uses
	def := alive > 1
	if m.cfg.TeamMode {
		def = groups > 1
	}
	started := event.Resolve(m.bus, event.IsMatchStarted, def, &event.StartCheck{
		Alive:       alive,
		AliveGroups: groups,
		Elapsed:     m.now,
	})
	if !started {
		return
	}
	m.state = StateStarted
	m.startedAt = m.now
	m.log.Info().Int("players", alive).Msg("match started")
	m.bus.Dispatch(&event.MatchStarted{Players: alive})
	m.AdvanceZone()
}

// AdvanceZone raises ZoneWillAdvance and runs the default advance unless a
// listener cancelled it
func (m *Instance) AdvanceZone() {
	if m.bus.Dispatch(&event.ZoneWillAdvance{Zone: m.zone}).Cancelled() {
		return
	}
	m.zone.Advance(m.rng)
	m.log.Debug().
		Int("stage", m.zone.Stage).
		Stringer("mode", m.zone.Mode).
		Float64("radius", m.zone.RadNew).
		Float64("duration", m.zone.Duration).
		Msg("zone advanced")
}

func (m *Instance) updatePlayers(dt float64) {
	for _, p := range m.arena.Players() {
		if !p.Alive() {
			continue
		}
		before := p.Pos
		p.Update(dt, m.cfg.Width, m.cfg.Height)
		if p.Pos != before {
			m.collide(p)
			m.grid.Update(p)
		}
		switch {
		case p.CanFire():
			m.fire(p)
		case p.CanSwing():
			m.swing(p)
		}
	}
}

// collide pushes a player out of the obstacles it walked into
func (m *Instance) collide(p *world.Player) {
	for _, o := range m.grid.IntersectShape(p.Shape()) {
		ob, ok := o.(*world.Obstacle)
		if !ok || !ob.Collidable() || !world.SameLayer(p, ob) {
			continue
		}
		p.MoveTo(m.clampToWorld(geom.Separate(p.Shape(), ob.Shape()), p.Radius))
	}
}

func (m *Instance) pickupLoot() {
	for _, p := range m.arena.Players() {
		if !p.Alive() {
			continue
		}
		for _, o := range m.grid.IntersectShape(p.Shape()) {
			if l, ok := o.(*world.Loot); ok && world.SameLayer(p, l) {
				m.collect(p, l)
			}
		}
	}
}

func (m *Instance) updateGasDamage(dt float64) {
	base := m.zone.Damage
	for _, p := range slices.Clone(m.arena.Players()) {
		if !p.Alive() {
			continue
		}
		m.gasDamage.Update(p.ID(), m.zone.InGas(p.Pos), dt, base,
			func(_ uint32, base, seconds float64) float64 {
				return event.Resolve(m.bus, event.GasDamage, base, &event.GasTick{Player: p, Seconds: seconds})
			},
			func(amount float64) {
				m.DamagePlayer(p, world.DamageParams{Amount: amount, Type: world.DamageGas, Dir: geom.V(1, 0)})
			})
	}
}

func (m *Instance) checkOver() {
	if m.state != StateStarted {
		return
	}
	groups := m.arena.AliveGroups()
	over := event.Resolve(m.bus, event.IsMatchOver, len(groups) <= 1, &event.OverCheck{
		AliveGroups: len(groups),
		Elapsed:     m.Elapsed(),
	})
	if !over {
		return
	}
	var winner *world.Group
	if len(groups) == 1 {
		winner = groups[0]
	}
	m.EndMatch(winner)
}
