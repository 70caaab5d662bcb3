package rules

import (
	"fmt"
	"math"
	"slices"

	"royale-server/internal/event"
	"royale-server/internal/geom"
	"royale-server/internal/match"
	"royale-server/internal/world"
)

// LootDisabler clears the ground loot of a fresh map and keeps obstacles that
// carry loot from dropping it
type LootDisabler struct{}

func (LootDisabler) Name() string { return NameLootDisabler }

func (LootDisabler) RegisterHandlers(m *match.Instance) {
	b := m.Bus()
	event.On(b, NameLootDisabler, func(*event.Event, *event.MapCreated) {
		clearLoot(m)
	})
	event.On(b, NameLootDisabler, func(e *event.Event, d *event.ObstacleDeathBeforeEffects) {
		if len(d.Obstacle.Loot) == 0 {
			return
		}
		e.Cancel()
		d.Obstacle.Kill()
	})
}

func clearLoot(m *match.Instance) {
	for _, l := range slices.Clone(m.Arena().Loot()) {
		m.RemoveLoot(l)
	}
}

// ObstacleLoot drops extra items per obstacle type after an obstacle is destroyed
type ObstacleLoot struct {
	Table map[string][]world.LootDrop
}

func (ObstacleLoot) Name() string { return NameObstacleLoot }

func (o ObstacleLoot) RegisterHandlers(m *match.Instance) {
	event.On(m.Bus(), NameObstacleLoot, func(_ *event.Event, d *event.ObstacleDeathAfterEffects) {
		for _, drop := range o.Table[d.Obstacle.Type] {
			pos := d.Obstacle.Pos.Add(geom.RandomUnit(m.Rand()).Mul(0.2))
			m.DropLoot(drop.Type, drop.Count, pos, d.Obstacle.Layer())
		}
	})
}

// LootPing tells a player's group which item they pinged
type LootPing struct {
	LootPingSettings
	last map[uint32]float64
}

func NewLootPing(s LootPingSettings) *LootPing {
	return &LootPing{LootPingSettings: s, last: make(map[uint32]float64)}
}

func (*LootPing) Name() string { return NameLootPing }

const pingHelp = "ping_help"

func (lp *LootPing) RegisterHandlers(m *match.Instance) {
	event.On(m.Bus(), NameLootPing, func(_ *event.Event, pg *event.PingOccurred) {
		p := pg.Player
		if pg.Type != pingHelp || pg.Pos.Dist(p.Pos) > p.ViewRange {
			return
		}
		if last, ok := lp.last[p.ID()]; ok && m.Now()-last < lp.Cooldown {
			return
		}
		item := closestLoot(m, p, pg.Pos, lp.MaxDistance)
		if item == nil {
			return
		}
		m.AnnounceGroup(p.GroupID, fmt.Sprintf("%s pinged a %s", p.Name, item.Type))
		lp.last[p.ID()] = m.Now()
	})
}

func closestLoot(m *match.Instance, p *world.Player, pos geom.Vec2, maxDist float64) *world.Loot {
	var best *world.Loot
	bestDist := math.Inf(1)
	for _, o := range m.Grid().IntersectShape(geom.Circle(pos, maxDist)) {
		l, ok := o.(*world.Loot)
		if !ok || !world.SameLayer(p, l) {
			continue
		}
		if d := l.Pos.Dist(pos); d < maxDist && d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}
