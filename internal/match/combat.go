package match

import (
	"slices"

	"royale-server/internal/event"
	"royale-server/internal/geom"
	"royale-server/internal/schedule"
	"royale-server/internal/world"
)

// DamagePlayer runs the player damage pipeline and returns the health removed
func (m *Instance) DamagePlayer(p *world.Player, params world.DamageParams) float64 {
	if !p.Alive() || params.Amount <= 0 {
		return 0
	}
	if m.bus.Dispatch(&event.PlayerWillTakeDamage{Player: p, Params: &params}).Cancelled() {
		return 0
	}
	dealt := p.ApplyDamage(params.Amount)
	if src := m.arena.Player(params.SourceID); src != nil && src != p {
		src.DamageDealt += dealt
	}
	m.bus.Dispatch(&event.PlayerDidTakeDamage{Player: p, Params: params, Dealt: dealt})
	if p.Health <= 0 && !p.Dead {
		m.KillPlayer(p, params)
	}
	return dealt
}

// KillPlayer raises PlayerWillDie and, unless cancelled, performs the default
// death followed by PlayerDidDie
func (m *Instance) KillPlayer(p *world.Player, params world.DamageParams) {
	if m.bus.Dispatch(&event.PlayerWillDie{Player: p, Params: params}).Cancelled() {
		return
	}
	killer := m.arena.Player(params.SourceID)
	if killer == p {
		killer = nil
	}
	p.Die(params.SourceID)
	m.gasDamage.Forget(p.ID())
	if killer != nil {
		killer.Kills++
		killer.MarkDirty(world.DirtyFull)
	}
	m.Announce(killLine(p, killer, params))
	m.bus.Dispatch(&event.PlayerDidDie{Player: p, Killer: killer, Params: params})
}

func killLine(p, killer *world.Player, params world.DamageParams) string {
	switch {
	case killer != nil:
		return killer.Name + " killed " + p.Name + " with " + params.WeaponType
	case params.Type == world.DamageGas:
		return p.Name + " died in the gas"
	default:
		return p.Name + " died"
	}
}

// DamageObstacle runs the obstacle damage pipeline
func (m *Instance) DamageObstacle(o *world.Obstacle, params world.DamageParams) float64 {
	if o.Dead || !o.Destructible || params.Amount <= 0 {
		return 0
	}
	if m.bus.Dispatch(&event.ObstacleWillTakeDamage{Obstacle: o, Params: &params}).Cancelled() {
		return 0
	}
	// a shrinking collider stays inside the cells it is registered in
	dealt := o.ApplyDamage(params.Amount)
	if o.Health <= 0 {
		m.KillObstacle(o, params)
	}
	return dealt
}

// KillObstacle destroys an obstacle. Unless ObstacleDeathBeforeEffects is
// cancelled it becomes rubble and drops its loot.
func (m *Instance) KillObstacle(o *world.Obstacle, params world.DamageParams) {
	if m.bus.Dispatch(&event.ObstacleDeathBeforeEffects{Obstacle: o, Params: params}).Cancelled() {
		return
	}
	o.Kill()
	for _, d := range o.Loot {
		m.DropLoot(d.Type, d.Count, o.Pos.Add(geom.RandomUnit(m.rng).Mul(0.2)), o.Layer())
	}
	m.bus.Dispatch(&event.ObstacleDeathAfterEffects{Obstacle: o, Params: params})
}

// RegrowObstacle restores rubble to a full obstacle
func (m *Instance) RegrowObstacle(o *world.Obstacle) {
	o.Regrow()
	m.grid.Update(o)
}

// fire spawns a projectile from the player's active gun
func (m *Instance) fire(p *world.Player) {
	w := p.ActiveWeapon()
	proj := world.NewProjectile(p, w, p.Input.Aim)
	m.arena.Add(proj)
	m.grid.InsertDynamic(proj)

	w.Ammo--
	p.SetCooldown(w.Cooldown)
	p.MarkDirty(world.DirtyWeapons)
	if w.Ammo == 0 {
		id, slot := p.ID(), p.CurWeapon
		m.sched.After(engineOwner, m.cfg.ReloadTime, func(*schedule.Context) {
			if pl := m.arena.Player(id); pl != nil && pl.Alive() {
				pl.Reload(slot, -1)
			}
		})
	}
}

// swing resolves a melee attack against the closest target in reach
func (m *Instance) swing(p *world.Player) {
	w := p.ActiveWeapon()
	p.SetCooldown(w.Cooldown)

	dir := p.Input.Aim.Normalize()
	if dir == (geom.Vec2{}) {
		dir = geom.V(1, 0)
	}
	reach := geom.Circle(p.Pos.Add(dir.Mul(p.Radius)), w.Range)
	params := world.DamageParams{
		Amount:     w.Damage,
		Type:       world.DamagePlayer,
		SourceID:   p.ID(),
		WeaponType: w.Type,
		Dir:        dir,
	}
	if target := m.closestTarget(p.Pos, p.ID(), p.Layer(), reach, func(world.Object) bool { return true }); target != nil {
		m.hit(target, params)
	}
}

// hit routes damage to whatever was struck
func (m *Instance) hit(target world.Object, params world.DamageParams) {
	switch t := target.(type) {
	case *world.Player:
		m.DamagePlayer(t, params)
	case *world.Obstacle:
		m.DamageObstacle(t, params)
	}
}

// closestTarget returns the nearest living player or standing obstacle
// overlapping area, excluding self
func (m *Instance) closestTarget(from geom.Vec2, self uint32, layer uint8, area geom.Shape, accept func(world.Object) bool) world.Object {
	var best world.Object
	bestDist := 0.0
	for _, o := range m.grid.IntersectShape(area) {
		wo := o.(world.Object)
		if wo.ID() == self || wo.Layer() != layer {
			continue
		}
		switch t := wo.(type) {
		case *world.Player:
			if !t.Alive() {
				continue
			}
		case *world.Obstacle:
			if !t.Collidable() {
				continue
			}
		default:
			continue
		}
		if !accept(wo) {
			continue
		}
		d := from.DistSq(wo.Shape().Centroid())
		if best == nil || d < bestDist {
			best, bestDist = wo, d
		}
	}
	return best
}

// updateProjectiles moves bullets and applies the first hit along each path
func (m *Instance) updateProjectiles(dt float64) {
	for _, proj := range slices.Clone(m.arena.Projectiles()) {
		proj.Update(dt, m.cfg.Width, m.cfg.Height)
		if proj.Alive {
			m.grid.Update(proj)
			a, b := proj.Prev, proj.Pos
			target := m.closestTarget(a, proj.OwnerID, proj.Layer(), proj.Shape(), func(o world.Object) bool {
				return geom.SegmentHits(a, b, o.Shape().Expand(world.ProjectileRadius))
			})
			if target != nil {
				proj.Alive = false
				m.hit(target, world.DamageParams{
					Amount:     proj.Damage,
					Type:       world.DamagePlayer,
					SourceID:   proj.OwnerID,
					WeaponType: proj.WeaponType,
					Dir:        proj.Vel.Normalize(),
				})
			}
		}
		if !proj.Alive {
			m.grid.Remove(proj)
			m.arena.Remove(proj.ID())
		}
	}
}
