// Package world holds the simulation objects of a match and the arena that owns them.
package world

import "royale-server/internal/geom"

// Kind tags the concrete object type
type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindObstacle
	KindLoot
	KindProjectile
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindObstacle:
		return "obstacle"
	case KindLoot:
		return "loot"
	case KindProjectile:
		return "projectile"
	}
	return "unknown"
}

// Dirty marks which fields changed since the last netsync flush
type Dirty uint16

const (
	DirtyPos Dirty = 1 << iota
	DirtyFull
	DirtyHealth
	DirtyBoost
	DirtyWeapons
	DirtyInventory
)

// Layers
const (
	LayerGround uint8 = 0
	LayerBunker uint8 = 1
)

// Object is implemented by every simulation object. The set is closed to this package.
type Object interface {
	ID() uint32
	Kind() Kind
	Shape() geom.Shape
	Position() geom.Vec2
	Layer() uint8
	Dirty() Dirty
	MarkDirty(d Dirty)
	ClearDirty()
	base() *Base
}

// Base carries the fields shared by all objects
type Base struct {
	id    uint32
	kind  Kind
	layer uint8
	dirty Dirty
	Pos   geom.Vec2
}

func (b *Base) ID() uint32 { return b.id }
func (b *Base) Kind() Kind { return b.kind }
func (b *Base) Position() geom.Vec2 { return b.Pos }
func (b *Base) Layer() uint8 { return b.layer }
func (b *Base) Dirty() Dirty { return b.dirty }
func (b *Base) MarkDirty(d Dirty) { b.dirty |= d }
func (b *Base) ClearDirty() { b.dirty = 0 }
func (b *Base) base() *Base { return b }

// SetLayer moves the object to another layer
func (b *Base) SetLayer(l uint8) {
	if b.layer != l {
		b.layer = l
		b.dirty |= DirtyFull
	}
}

// MoveTo sets the position and marks it dirty
func (b *Base) MoveTo(p geom.Vec2) {
	if b.Pos != p {
		b.Pos = p
		b.dirty |= DirtyPos
	}
}

// SameLayer reports whether two objects can interact
func SameLayer(a, b Object) bool {
	return a.Layer() == b.Layer()
}

// DamageType classifies a damage source
type DamageType uint8

const (
	DamagePlayer DamageType = iota
	DamageGas
	DamageBleeding
	DamageObstacle
)

func (t DamageType) String() string {
	switch t {
	case DamagePlayer:
		return "player"
	case DamageGas:
		return "gas"
	case DamageBleeding:
		return "bleeding"
	case DamageObstacle:
		return "obstacle"
	}
	return "unknown"
}

// DamageParams describes one application of damage
type DamageParams struct {
	Amount     float64
	Type       DamageType
	SourceID   uint32 // 0 when there is no attacking object
	WeaponType string
	Dir        geom.Vec2
}
