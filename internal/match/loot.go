package match

import (
	"royale-server/internal/geom"
	"royale-server/internal/world"
)

// Loot types with an immediate effect on pickup
const (
	LootAmmo      = "ammo"
	LootHealthkit = "healthkit"
	LootSoda      = "soda"
	LootBandage   = "bandage"
)

var groundLoot = []world.LootDrop{
	{Type: LootAmmo, Count: 30},
	{Type: LootBandage, Count: 5},
	{Type: LootSoda, Count: 1},
	{Type: LootHealthkit, Count: 1},
}

// DropLoot places an item on the ground
func (m *Instance) DropLoot(typ string, count int, pos geom.Vec2, layer uint8) *world.Loot {
	l := world.NewLoot(typ, count, m.clampToWorld(pos, world.LootRadius), layer)
	m.arena.Add(l)
	m.grid.Insert(l)
	return l
}

// RemoveLoot takes an item out of the world
func (m *Instance) RemoveLoot(l *world.Loot) {
	if m.arena.Get(l.ID()) == nil {
		return
	}
	m.grid.Remove(l)
	m.arena.Remove(l.ID())
}

// collect applies a loot item to the player and removes it
func (m *Instance) collect(p *world.Player, l *world.Loot) {
	switch l.Type {
	case LootAmmo:
		for slot := range p.Weapons {
			if p.Weapons[slot].Speed > 0 {
				p.Reload(slot, l.Count)
			}
		}
	case LootHealthkit:
		p.Heal(world.PlayerMaxHealth)
	case LootSoda:
		p.AddBoost(25 * float64(l.Count))
	default:
		p.AddItem(l.Type, l.Count)
	}
	m.RemoveLoot(l)
}

// populate places the obstacles and ground loot of a fresh map
func (m *Instance) populate() {
	for i := range m.cfg.Obstacles {
		var o *world.Obstacle
		if i%3 == 2 {
			o = world.NewBoxObstacle("crate", geom.Vec2{}, geom.V(1.5, 1.5), 75)
			o.Loot = []world.LootDrop{{Type: LootAmmo, Count: 30}, {Type: LootBandage, Count: 2}}
		} else {
			o = world.NewObstacle("tree", geom.Vec2{}, 2.5, 150)
		}
		o.Pos = m.RandomFreePos(3)
		m.arena.Add(o)
		m.grid.Insert(o)
	}
	for range m.cfg.Loot {
		d := groundLoot[m.rng.IntN(len(groundLoot))]
		m.DropLoot(d.Type, d.Count, m.RandomFreePos(world.LootRadius), world.LayerGround)
	}
}
