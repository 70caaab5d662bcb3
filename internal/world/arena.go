package world

import (
	"fmt"
	"slices"

	"royale-server/internal/geom"
)

// Group is a party of players that spawn together. Members are ids into the arena.
type Group struct {
	ID       uint32
	Key      string
	Members  []uint32
	SpawnPos geom.Vec2
	Spawned  bool
}

// Arena owns every object of a match, keyed by a stable integer id.
// Ids are never reused; removing an object retires its id.
type Arena struct {
	nextID    uint32
	nextGroup uint32
	objects   map[uint32]Object

	players     []*Player
	obstacles   []*Obstacle
	loot        []*Loot
	projectiles []*Projectile

	groups     map[uint32]*Group
	groupOrder []*Group
	groupKeys  map[string]*Group

	deleted []uint32
}

// NewArena creates an empty arena
func NewArena() *Arena {
	return &Arena{
		objects:   make(map[uint32]Object),
		groups:    make(map[uint32]*Group),
		groupKeys: make(map[string]*Group),
	}
}

// Add assigns o an id and takes ownership of it
func (a *Arena) Add(o Object) uint32 {
	b := o.base()
	if b.id != 0 {
		panic(fmt.Sprintf("world: object %d added twice", b.id))
	}
	a.nextID++
	b.id = a.nextID
	b.dirty |= DirtyFull
	a.objects[b.id] = o

	switch v := o.(type) {
	case *Player:
		a.players = append(a.players, v)
	case *Obstacle:
		a.obstacles = append(a.obstacles, v)
	case *Loot:
		a.loot = append(a.loot, v)
	case *Projectile:
		a.projectiles = append(a.projectiles, v)
	}
	return b.id
}

// Remove retires id. It returns false if the id is not live.
func (a *Arena) Remove(id uint32) bool {
	o, ok := a.objects[id]
	if !ok {
		return false
	}
	delete(a.objects, id)
	a.deleted = append(a.deleted, id)

	switch v := o.(type) {
	case *Player:
		a.players = removeObj(a.players, v)
	case *Obstacle:
		a.obstacles = removeObj(a.obstacles, v)
	case *Loot:
		a.loot = removeObj(a.loot, v)
	case *Projectile:
		a.projectiles = removeObj(a.projectiles, v)
	}
	return true
}

func removeObj[T comparable](list []T, v T) []T {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}

// Get returns the live object with id, or nil
func (a *Arena) Get(id uint32) Object { return a.objects[id] }

// Player returns the player with id, or nil
func (a *Arena) Player(id uint32) *Player {
	p, _ := a.objects[id].(*Player)
	return p
}

// Obstacle returns the obstacle with id, or nil
func (a *Arena) Obstacle(id uint32) *Obstacle {
	o, _ := a.objects[id].(*Obstacle)
	return o
}

// Len returns the number of live objects
func (a *Arena) Len() int { return len(a.objects) }

// Players returns live players in creation order. The slice must not be modified.
func (a *Arena) Players() []*Player { return a.players }
func (a *Arena) Obstacles() []*Obstacle { return a.obstacles }
func (a *Arena) Loot() []*Loot { return a.loot }
func (a *Arena) Projectiles() []*Projectile { return a.projectiles }

// Each calls fn for every live object in kind then creation order
func (a *Arena) Each(fn func(Object)) {
	for _, p := range a.players {
		fn(p)
	}
	for _, o := range a.obstacles {
		fn(o)
	}
	for _, l := range a.loot {
		fn(l)
	}
	for _, p := range a.projectiles {
		fn(p)
	}
}

// TakeDeleted returns the ids retired since the previous call
func (a *Arena) TakeDeleted() []uint32 {
	d := a.deleted
	a.deleted = nil
	return d
}

// AliveCount returns the number of players still in play
func (a *Arena) AliveCount() int {
	n := 0
	for _, p := range a.players {
		if p.Alive() {
			n++
		}
	}
	return n
}

// GroupFor returns the group registered under key, creating it if needed.
// An empty key always creates a fresh solo group.
func (a *Arena) GroupFor(key string) (*Group, bool) {
	if key != "" {
		if g, ok := a.groupKeys[key]; ok {
			return g, false
		}
	}
	a.nextGroup++
	g := &Group{ID: a.nextGroup, Key: key}
	a.groups[g.ID] = g
	a.groupOrder = append(a.groupOrder, g)
	if key != "" {
		a.groupKeys[key] = g
	}
	return g, true
}

// Group returns the group with id, or nil
func (a *Arena) Group(id uint32) *Group { return a.groups[id] }

// Groups returns all groups in creation order
func (a *Arena) Groups() []*Group { return a.groupOrder }

// Join adds p to g
func (a *Arena) Join(g *Group, p *Player) {
	if !slices.Contains(g.Members, p.ID()) {
		g.Members = append(g.Members, p.ID())
	}
	p.GroupID = g.ID
}

// AliveMembers resolves the group's member ids to players still in play
func (a *Arena) AliveMembers(g *Group) []*Player {
	var out []*Player
	for _, id := range g.Members {
		if p := a.Player(id); p != nil && p.Alive() {
			out = append(out, p)
		}
	}
	return out
}

// AliveGroups returns the groups with at least one player in play
func (a *Arena) AliveGroups() []*Group {
	var out []*Group
	for _, g := range a.groupOrder {
		if len(a.AliveMembers(g)) > 0 {
			out = append(out, g)
		}
	}
	return out
}
