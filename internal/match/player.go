package match

import (
	"strings"

	"royale-server/internal/event"
	"royale-server/internal/geom"
	"royale-server/internal/world"
)

const (
	maxNameLen  = 16
	defaultName = "Player"
	spawnTries  = 32
)

// JoinRequest carries what a client sent when asking to play
type JoinRequest struct {
	Name     string
	IP       string
	GroupKey string // ignored unless the match is in team mode
}

// Join admits a player if the CanPlayerJoin hook allows it, places them and
// raises PlayerJoined
func (m *Instance) Join(req JoinRequest) (*world.Player, error) {
	if m.state == StateOver {
		return nil, ErrMatchOver
	}
	alive := m.arena.AliveCount()
	allowed := alive < m.cfg.MaxPlayers && m.state == StateCreated
	allowed = event.Resolve(m.bus, event.CanPlayerJoin, allowed, &event.JoinRequest{
		Name:     req.Name,
		IP:       req.IP,
		GroupKey: req.GroupKey,
		Alive:    alive,
		Elapsed:  m.Elapsed(),
	})
	if !allowed {
		return nil, ErrJoinRejected
	}

	key := ""
	if m.cfg.TeamMode {
		key = req.GroupKey
	}
	g, created := m.arena.GroupFor(key)
	p := world.NewPlayer(cleanName(req.Name), req.IP, geom.Vec2{})
	m.arena.Add(p)
	m.arena.Join(g, p)
	p.Pos = m.spawnPos(g)
	m.grid.InsertDynamic(p)

	m.log.Info().Uint32("player", p.ID()).Str("name", p.Name).Uint32("group", g.ID).Msg("player joined")
	m.bus.Dispatch(&event.PlayerJoined{Player: p, Group: g, NewGroup: created})
	return p, nil
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultName
	}
	if r := []rune(name); len(r) > maxNameLen {
		name = string(r[:maxNameLen])
	}
	return name
}

// spawnPos picks a free spot; teammates spawn around the group's first spawn
func (m *Instance) spawnPos(g *world.Group) geom.Vec2 {
	if g.Spawned {
		for range spawnTries {
			pos := g.SpawnPos.Add(geom.RandomPointInCircle(m.rng, m.cfg.TeammateSpawnRadius))
			if pos = m.clampToWorld(pos, world.PlayerRadius); m.free(pos, world.PlayerRadius) {
				return pos
			}
		}
		return m.clampToWorld(g.SpawnPos, world.PlayerRadius)
	}
	pos := m.RandomFreePos(world.PlayerRadius)
	g.SpawnPos = pos
	g.Spawned = true
	return pos
}

// RandomFreePos returns a random position where a circle of radius r touches
// no obstacle. It gives up after a few tries and returns the last candidate.
func (m *Instance) RandomFreePos(r float64) geom.Vec2 {
	var pos geom.Vec2
	for range spawnTries {
		pos = geom.V(
			r+m.rng.Float64()*(m.cfg.Width-2*r),
			r+m.rng.Float64()*(m.cfg.Height-2*r),
		)
		if m.free(pos, r) {
			break
		}
	}
	return pos
}

func (m *Instance) free(pos geom.Vec2, r float64) bool {
	for _, o := range m.grid.IntersectShape(geom.Circle(pos, r)) {
		if ob, ok := o.(*world.Obstacle); ok && ob.Collidable() {
			return false
		}
	}
	return true
}

func (m *Instance) clampToWorld(pos geom.Vec2, r float64) geom.Vec2 {
	return geom.ClampVec(pos, geom.V(r, r), geom.V(m.cfg.Width-r, m.cfg.Height-r))
}

// Teleport moves a player and keeps the grid in sync
func (m *Instance) Teleport(p *world.Player, pos geom.Vec2) {
	p.MoveTo(m.clampToWorld(pos, p.Radius))
	m.grid.Update(p)
}

// Revive brings a dead player back at pos
func (m *Instance) Revive(p *world.Player, pos geom.Vec2) {
	p.Revive(m.clampToWorld(pos, p.Radius))
	p.SetLayer(world.LayerGround)
	m.gasDamage.Forget(p.ID())
	m.grid.Update(p)
}

// Disconnect marks a player as gone and raises PlayerDisconnected. The body
// stays in the world.
func (m *Instance) Disconnect(id uint32) {
	p := m.arena.Player(id)
	if p == nil || p.Disconnected {
		return
	}
	p.Disconnected = true
	p.Input = world.Input{}
	p.MarkDirty(world.DirtyFull)
	delete(m.visible, id)
	m.gasDamage.Forget(id)
	m.log.Info().Uint32("player", id).Msg("player disconnected")
	m.bus.Dispatch(&event.PlayerDisconnected{Player: p})
}

// ApplyInput stores a client's control state unless a listener cancels it
func (m *Instance) ApplyInput(id uint32, in world.Input) {
	p := m.arena.Player(id)
	if p == nil || !p.Alive() {
		return
	}
	if m.bus.Dispatch(&event.PlayerWillInput{Player: p, Input: &in}).Cancelled() {
		return
	}
	p.Input = in
}

// SwitchWeapon changes the active slot unless a listener takes over
func (m *Instance) SwitchWeapon(id uint32, slot int) bool {
	p := m.arena.Player(id)
	if p == nil || !p.Alive() || slot < 0 || slot >= world.WeaponSlots {
		return false
	}
	e := m.bus.Dispatch(&event.PlayerWillSwitchWeapon{Player: p, From: p.CurWeapon, To: slot})
	if e.Cancelled() {
		return false
	}
	return p.SwitchWeapon(slot, world.SwitchDelay)
}

// Ping raises PingOccurred and, unless cancelled, shows it to the player's group
func (m *Instance) Ping(id uint32, typ string, pos geom.Vec2) {
	p := m.arena.Player(id)
	if p == nil || p.Disconnected {
		return
	}
	pos = m.clampToWorld(pos, 0)
	if m.bus.Dispatch(&event.PingOccurred{Player: p, Type: typ, Pos: pos}).Cancelled() {
		return
	}
	m.AddPing(typ, pos, p.GroupID)
}
