package world

import "royale-server/internal/geom"

const ProjectileRadius = 0.2

// Projectile is a bullet in flight
type Projectile struct {
	Base
	OwnerID    uint32
	WeaponType string
	Vel        geom.Vec2
	Damage     float64
	Range      float64 // distance left before it expires
	Prev       geom.Vec2
	Alive      bool
}

// NewProjectile fires w from shooter toward dir
func NewProjectile(shooter *Player, w *Weapon, dir geom.Vec2) *Projectile {
	dir = dir.Normalize()
	if dir == (geom.Vec2{}) {
		dir = geom.V(1, 0)
	}
	start := shooter.Pos.Add(dir.Mul(shooter.Radius + ProjectileRadius))
	return &Projectile{
		Base:       Base{kind: KindProjectile, Pos: start, layer: shooter.Layer()},
		OwnerID:    shooter.ID(),
		WeaponType: w.Type,
		Vel:        dir.Mul(w.Speed),
		Damage:     w.Damage,
		Range:      w.Range,
		Prev:       start,
		Alive:      true,
	}
}

// Shape covers the path travelled during the last update
func (p *Projectile) Shape() geom.Shape {
	return geom.Box(p.Prev, p.Pos).Expand(ProjectileRadius)
}

// Update moves the projectile; it dies when its range is spent or it leaves the world
func (p *Projectile) Update(dt, width, height float64) {
	if !p.Alive {
		return
	}
	p.Prev = p.Pos
	step := p.Vel.Mul(dt)
	p.MoveTo(p.Pos.Add(step))
	p.Range -= step.Len()
	if p.Range <= 0 || p.Pos.X < 0 || p.Pos.Y < 0 || p.Pos.X > width || p.Pos.Y > height {
		p.Alive = false
	}
}
