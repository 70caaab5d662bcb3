package world

import "royale-server/internal/geom"

// LootDrop is an item an obstacle leaves behind when destroyed
type LootDrop struct {
	Type  string `yaml:"type" mapstructure:"type"`
	Count int    `yaml:"count" mapstructure:"count"`
}

// Obstacle is a static map object: trees, crates, walls
type Obstacle struct {
	Base
	Type         string
	Round        bool      // circle collider when true, box otherwise
	Radius       float64   // unscaled, for round colliders
	HalfExtents  geom.Vec2 // unscaled, for box colliders
	Scale        float64
	MinScale     float64
	MaxScale     float64
	Health       float64
	MaxHealth    float64
	Destructible bool
	Dead         bool
	Loot         []LootDrop
}

// NewObstacle creates a round obstacle
func NewObstacle(typ string, pos geom.Vec2, radius, health float64) *Obstacle {
	return &Obstacle{
		Base:         Base{kind: KindObstacle, Pos: pos},
		Type:         typ,
		Round:        true,
		Radius:       radius,
		Scale:        1,
		MinScale:     0.5,
		MaxScale:     1,
		Health:       health,
		MaxHealth:    health,
		Destructible: health > 0,
	}
}

// NewBoxObstacle creates an obstacle with an axis-aligned box collider
func NewBoxObstacle(typ string, pos, halfExtents geom.Vec2, health float64) *Obstacle {
	o := NewObstacle(typ, pos, 0, health)
	o.Round = false
	o.HalfExtents = halfExtents
	return o
}

func (o *Obstacle) Shape() geom.Shape {
	if o.Round {
		return geom.Circle(o.Pos, o.Radius*o.Scale)
	}
	return geom.BoxAt(o.Pos, o.HalfExtents.Mul(o.Scale))
}

// Collidable reports whether the obstacle still blocks movement and shots
func (o *Obstacle) Collidable() bool { return !o.Dead }

// ApplyDamage removes health and shrinks the collider toward MinScale
func (o *Obstacle) ApplyDamage(amount float64) float64 {
	if o.Dead || !o.Destructible || amount <= 0 {
		return 0
	}
	dealt := min(amount, o.Health)
	o.Health -= dealt
	if o.MaxHealth > 0 {
		frac := o.Health / o.MaxHealth
		o.Scale = o.MinScale + (o.MaxScale-o.MinScale)*frac
	}
	o.MarkDirty(DirtyHealth | DirtyFull)
	return dealt
}

// Kill turns the obstacle into rubble
func (o *Obstacle) Kill() {
	o.Dead = true
	o.Health = 0
	o.Scale = o.MinScale
	o.MarkDirty(DirtyFull)
}

// Regrow restores a destroyed obstacle
func (o *Obstacle) Regrow() {
	o.Dead = false
	o.Health = o.MaxHealth
	o.Scale = o.MaxScale
	o.MarkDirty(DirtyFull | DirtyHealth)
}
