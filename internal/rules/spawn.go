package rules

import (
	"math"
	"math/rand/v2"
	"slices"

	"royale-server/internal/event"
	"royale-server/internal/geom"
	"royale-server/internal/match"
	"royale-server/internal/schedule"
	"royale-server/internal/world"
)

// DonutSpawner places solo players and group leaders on a ring around the map
// centre, in the widest gap left by the players already there. Teammates keep
// spawning next to their leader.
type DonutSpawner struct {
	DonutSettings
}

func (DonutSpawner) Name() string { return NameDonutSpawner }

func (d DonutSpawner) RegisterHandlers(m *match.Instance) {
	event.On(m.Bus(), NameDonutSpawner, func(_ *event.Event, j *event.PlayerJoined) {
		p, g := j.Player, j.Group
		if len(g.Members) > 0 && g.Members[0] != p.ID() {
			return
		}
		cfg := m.Config()
		half := math.Min(cfg.Width, cfg.Height) / 2
		center := geom.V(cfg.Width/2, cfg.Height/2)
		pos := donut(m.Rand(), center, half*d.Inner, half*d.Outer, occupied(m, p), d.Variance)
		m.Teleport(p, pos)
		g.SpawnPos = p.Pos
	})
}

// occupied lists the positions the next spawn should keep away from: every
// other living player, or the first living member of each enemy group in
// team matches
func occupied(m *match.Instance, p *world.Player) []geom.Vec2 {
	var out []geom.Vec2
	a := m.Arena()
	if !m.Config().TeamMode {
		for _, o := range a.Players() {
			if o != p && o.Alive() {
				out = append(out, o.Pos)
			}
		}
		return out
	}
	for _, g := range a.Groups() {
		if g.ID == p.GroupID {
			continue
		}
		if alive := a.AliveMembers(g); len(alive) > 0 {
			out = append(out, alive[0].Pos)
		}
	}
	return out
}

// donut picks a point between inner and outer from center. With no points the
// direction is random; otherwise it bisects the widest angular gap between
// them, jittered by up to variance degrees.
func donut(r *rand.Rand, center geom.Vec2, inner, outer float64, points []geom.Vec2, variance float64) geom.Vec2 {
	rad := geom.Lerp(inner, outer, r.Float64())
	at := func(dir geom.Vec2) geom.Vec2 {
		jitter := (r.Float64()*2 - 1) * variance * math.Pi / 180
		return center.Add(rotate(dir, jitter).Mul(rad))
	}

	switch len(points) {
	case 0:
		return at(geom.RandomUnit(r))
	case 1:
		return at(center.Sub(points[0]).Normalize())
	}

	angles := make([]float64, len(points))
	for i, pt := range points {
		off := pt.Sub(center)
		angles[i] = math.Atan2(off.Y, off.X)
	}
	slices.Sort(angles)

	maxGap, start := math.Inf(-1), 0.0
	for i := range angles {
		j := (i + 1) % len(angles)
		gap := math.Mod(angles[j]-angles[i]+2*math.Pi, 2*math.Pi)
		if gap > maxGap {
			maxGap, start = gap, angles[i]
		}
	}
	mid := start + maxGap/2
	return at(geom.V(math.Cos(mid), math.Sin(mid)))
}

func rotate(v geom.Vec2, rad float64) geom.Vec2 {
	s, c := math.Sincos(rad)
	return geom.V(v.X*c-v.Y*s, v.X*s+v.Y*c)
}

const pingReveal = "ping_woodsking"

// LocationRevealer pings one living member of every group at a fixed interval
// after the start, until someone deals damage
type LocationRevealer struct {
	Every float64
}

func (LocationRevealer) Name() string { return NameLocationRevealer }

func (l LocationRevealer) RegisterHandlers(m *match.Instance) {
	event.On(m.Bus(), NameLocationRevealer, func(*event.Event, *event.MatchStarted) {
		m.Every(NameLocationRevealer, l.Every, func(c *schedule.Context) {
			locs := revealLocations(m)
			if len(locs) == 0 {
				c.Cancel()
				return
			}
			for _, pos := range locs {
				m.AddPing(pingReveal, pos, 0)
			}
		})
	})
}

// revealLocations is empty once any living player has dealt damage
func revealLocations(m *match.Instance) []geom.Vec2 {
	var out []geom.Vec2
	for _, g := range m.Groups() {
		alive := m.Arena().AliveMembers(g)
		if len(alive) == 0 {
			continue
		}
		for _, p := range alive {
			if p.DamageDealt > 0 {
				return nil
			}
		}
		out = append(out, alive[m.Rand().IntN(len(alive))].Pos)
	}
	return out
}
