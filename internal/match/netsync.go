package match

import (
	"slices"

	"royale-server/internal/geom"
	"royale-server/internal/world"
)

// Sink receives the snapshots produced by NetSync. Send runs on the match
// goroutine and must not block.
type Sink interface {
	Send(playerID uint32, s *Snapshot)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(playerID uint32, s *Snapshot)

func (f SinkFunc) Send(playerID uint32, s *Snapshot) { f(playerID, s) }

// Snapshot is the per-player delta produced by one flush
type Snapshot struct {
	Tick     uint64        `msgpack:"tick" json:"tick"`
	Time     float64       `msgpack:"time" json:"time"`
	State    string        `msgpack:"state" json:"state"`
	Alive    int           `msgpack:"alive" json:"alive"`
	Self     SelfState     `msgpack:"self" json:"self"`
	Objects  []ObjectState `msgpack:"objs,omitempty" json:"objs,omitempty"`
	Hidden   []uint32      `msgpack:"hidden,omitempty" json:"hidden,omitempty"`   // left the view
	Deleted  []uint32      `msgpack:"deleted,omitempty" json:"deleted,omitempty"` // removed from the match
	Zone     *ZoneState    `msgpack:"zone,omitempty" json:"zone,omitempty"`
	KillFeed []string      `msgpack:"feed,omitempty" json:"feed,omitempty"`
	Pings    []PingState   `msgpack:"pings,omitempty" json:"pings,omitempty"`
	Winner   uint32        `msgpack:"winner,omitempty" json:"winner,omitempty"`
}

// ObjectState describes one object. Full is set when every field is present.
type ObjectState struct {
	ID     uint32    `msgpack:"id" json:"id"`
	Kind   string    `msgpack:"k" json:"k"`
	Pos    geom.Vec2 `msgpack:"p" json:"p"`
	Layer  uint8     `msgpack:"l,omitempty" json:"l,omitempty"`
	Full   bool      `msgpack:"f,omitempty" json:"f,omitempty"`
	Type   string    `msgpack:"t,omitempty" json:"t,omitempty"`
	Health float64   `msgpack:"h,omitempty" json:"h,omitempty"`
	Scale  float64   `msgpack:"s,omitempty" json:"s,omitempty"`
	Dead   bool      `msgpack:"d,omitempty" json:"d,omitempty"`
	Weapon string    `msgpack:"w,omitempty" json:"w,omitempty"`
	Group  uint32    `msgpack:"g,omitempty" json:"g,omitempty"`
	Count  int       `msgpack:"c,omitempty" json:"c,omitempty"`
}

// SelfState is the private state of the receiving player
type SelfState struct {
	ID        uint32         `msgpack:"id" json:"id"`
	Health    float64        `msgpack:"health" json:"health"`
	Boost     float64        `msgpack:"boost" json:"boost"`
	Dead      bool           `msgpack:"dead,omitempty" json:"dead,omitempty"`
	Kills     int            `msgpack:"kills" json:"kills"`
	CurWeapon int            `msgpack:"cur" json:"cur"`
	Weapons   []WeaponState  `msgpack:"weapons,omitempty" json:"weapons,omitempty"`
	Inventory map[string]int `msgpack:"inv,omitempty" json:"inv,omitempty"`
}

type WeaponState struct {
	Type string `msgpack:"type" json:"type"`
	Ammo int    `msgpack:"ammo" json:"ammo"`
}

// ZoneState is sent whenever the zone changed
type ZoneState struct {
	Mode      string    `msgpack:"mode" json:"mode"`
	Stage     int       `msgpack:"stage" json:"stage"`
	Pos       geom.Vec2 `msgpack:"pos" json:"pos"`
	Rad       float64   `msgpack:"rad" json:"rad"`
	PosNew    geom.Vec2 `msgpack:"posNew" json:"posNew"`
	RadNew    float64   `msgpack:"radNew" json:"radNew"`
	Duration  float64   `msgpack:"duration" json:"duration"`
	Remaining float64   `msgpack:"remaining" json:"remaining"`
	Damage    float64   `msgpack:"damage" json:"damage"`
}

type PingState struct {
	Type string    `msgpack:"type" json:"type"`
	Pos  geom.Vec2 `msgpack:"pos" json:"pos"`
}

// feed and ping audiences: zero ids mean everyone
type feedLine struct {
	text   string
	player uint32
	group  uint32
}

type pingEntry struct {
	PingState
	group uint32
}

// Announce adds a kill feed line for every player
func (m *Instance) Announce(text string) { m.feed = append(m.feed, feedLine{text: text}) }

// AnnounceGroup adds a kill feed line for one group
func (m *Instance) AnnounceGroup(group uint32, text string) {
	m.feed = append(m.feed, feedLine{text: text, group: group})
}

// AnnounceTo adds a kill feed line for one player
func (m *Instance) AnnounceTo(player uint32, text string) {
	m.feed = append(m.feed, feedLine{text: text, player: player})
}

// AddPing shows a map ping to group, or to everyone when group is 0
func (m *Instance) AddPing(typ string, pos geom.Vec2, group uint32) {
	m.pings = append(m.pings, pingEntry{PingState: PingState{Type: typ, Pos: pos}, group: group})
}

// NetSync hands each connected player a snapshot of what changed in view since
// the previous flush, then clears dirty flags. Simulation state is not touched.
func (m *Instance) NetSync() int {
	deleted := m.arena.TakeDeleted()
	var zone *ZoneState
	if m.zone.Dirty || m.zone.TimeDirty {
		zone = m.zoneState()
	}

	sent := 0
	if m.sink != nil {
		for _, p := range m.arena.Players() {
			if p.Disconnected {
				continue
			}
			m.sink.Send(p.ID(), m.snapshotFor(p, deleted, zone))
			sent++
		}
	}

	m.arena.Each(func(o world.Object) { o.ClearDirty() })
	m.zone.ClearDirty()
	m.feed = m.feed[:0]
	m.pings = m.pings[:0]
	m.metrics.Flushed(sent)
	return sent
}

func (m *Instance) snapshotFor(p *world.Player, deleted []uint32, zone *ZoneState) *Snapshot {
	s := &Snapshot{
		Tick:  m.ticks,
		Time:  m.now,
		State: m.state.String(),
		Alive: m.arena.AliveCount(),
		Self:  selfState(p),
		Zone:  zone,
	}
	if m.winner != nil {
		s.Winner = m.winner.ID
	}

	seen := m.visible[p.ID()]
	for _, id := range deleted {
		if _, ok := seen[id]; ok {
			s.Deleted = append(s.Deleted, id)
			delete(seen, id)
		}
	}

	next := make(map[uint32]struct{}, len(seen))
	for _, o := range m.grid.IntersectShape(geom.Circle(p.Pos, p.ViewRange)) {
		wo := o.(world.Object)
		next[wo.ID()] = struct{}{}
		_, known := seen[wo.ID()]
		if known && wo.Dirty() == 0 {
			continue
		}
		s.Objects = append(s.Objects, describe(wo, !known || wo.Dirty()&world.DirtyFull != 0))
	}
	for id := range seen {
		if _, ok := next[id]; !ok {
			s.Hidden = append(s.Hidden, id)
		}
	}
	slices.Sort(s.Hidden)
	m.visible[p.ID()] = next

	for _, l := range m.feed {
		if (l.player == 0 || l.player == p.ID()) && (l.group == 0 || l.group == p.GroupID) {
			s.KillFeed = append(s.KillFeed, l.text)
		}
	}
	for _, pg := range m.pings {
		if pg.group == 0 || pg.group == p.GroupID {
			s.Pings = append(s.Pings, pg.PingState)
		}
	}
	return s
}

func selfState(p *world.Player) SelfState {
	s := SelfState{
		ID:        p.ID(),
		Health:    p.Health,
		Boost:     p.Boost,
		Dead:      p.Dead,
		Kills:     p.Kills,
		CurWeapon: p.CurWeapon,
	}
	if p.Dirty()&(world.DirtyWeapons|world.DirtyFull) != 0 {
		s.Weapons = make([]WeaponState, len(p.Weapons))
		for i, w := range p.Weapons {
			s.Weapons[i] = WeaponState{Type: w.Type, Ammo: w.Ammo}
		}
	}
	if p.Dirty()&(world.DirtyInventory|world.DirtyFull) != 0 && len(p.Inventory) > 0 {
		s.Inventory = make(map[string]int, len(p.Inventory))
		for k, v := range p.Inventory {
			s.Inventory[k] = v
		}
	}
	return s
}

func describe(o world.Object, full bool) ObjectState {
	s := ObjectState{ID: o.ID(), Kind: o.Kind().String(), Pos: o.Position(), Full: full}
	if !full {
		if p, ok := o.(*world.Player); ok && p.Dirty()&world.DirtyHealth != 0 {
			s.Health = p.Health
		}
		return s
	}
	s.Layer = o.Layer()
	switch t := o.(type) {
	case *world.Player:
		s.Type = t.Name
		s.Health = t.Health
		s.Dead = t.Dead
		s.Weapon = t.ActiveWeapon().Type
		s.Group = t.GroupID
	case *world.Obstacle:
		s.Type = t.Type
		s.Health = t.Health
		s.Scale = t.Scale
		s.Dead = t.Dead
	case *world.Loot:
		s.Type = t.Type
		s.Count = t.Count
	case *world.Projectile:
		s.Type = t.WeaponType
	}
	return s
}

func (m *Instance) zoneState() *ZoneState {
	z := m.zone
	return &ZoneState{
		Mode:      z.Mode.String(),
		Stage:     z.Stage,
		Pos:       z.CurrentPos,
		Rad:       z.CurrentRad,
		PosNew:    z.PosNew,
		RadNew:    z.RadNew,
		Duration:  z.Duration,
		Remaining: z.Remaining(),
		Damage:    z.Damage,
	}
}
