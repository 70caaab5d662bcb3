package world

import "royale-server/internal/geom"

const LootRadius = 0.75

// Loot is an item lying on the ground
type Loot struct {
	Base
	Type  string
	Count int
}

// NewLoot creates a loot pile at pos
func NewLoot(typ string, count int, pos geom.Vec2, layer uint8) *Loot {
	return &Loot{Base: Base{kind: KindLoot, Pos: pos, layer: layer}, Type: typ, Count: count}
}

func (l *Loot) Shape() geom.Shape { return geom.Circle(l.Pos, LootRadius) }
