package rules

import (
	"fmt"

	"royale-server/internal/event"
	"royale-server/internal/geom"
	"royale-server/internal/match"
	"royale-server/internal/schedule"
)

// GracePeriod holds players in place and makes them invulnerable for the first
// seconds of a match while late joiners are still admitted. The clock only
// runs while more than one player is alive.
type GracePeriod struct {
	GraceSettings

	elapsed   float64
	countdown bool
	restored  bool
	moves     map[uint32]geom.Vec2
}

func NewGracePeriod(s GraceSettings) *GracePeriod {
	return &GracePeriod{GraceSettings: s, moves: make(map[uint32]geom.Vec2)}
}

func (g *GracePeriod) Name() string { return NameGracePeriod }

// Over reports whether the grace period has ended
func (g *GracePeriod) Over() bool { return g.elapsed > g.Period }

func (g *GracePeriod) RegisterHandlers(m *match.Instance) {
	b := m.Bus()

	event.On(b, NameGracePeriod, func(e *event.Event, t *event.Tick) {
		if m.AliveCount() <= 1 {
			return
		}
		g.elapsed += t.Dt

		if !g.countdown && g.elapsed >= g.Period-g.CountdownStart {
			g.countdown = true
			m.Countdown(NameGracePeriod, g.CountdownStart, 1,
				func(_ *schedule.Context, left int) { m.Announce(fmt.Sprintf("%d seconds left", left)) },
				func(*schedule.Context) { m.Announce("round started!") })
		}
		if !g.restored && g.Over() {
			g.restored = true
			g.restoreMoves(m)
		}
		if g.elapsed > g.CanJoin {
			e.Unregister()
		}
	})

	event.Transform(b, NameGracePeriod, event.IsMatchStarted, func(bool, *event.StartCheck) bool {
		return g.Over()
	})
	event.Transform(b, NameGracePeriod, event.CanPlayerJoin, func(_ bool, r *event.JoinRequest) bool {
		return r.Alive < m.Config().MaxPlayers && !m.Over() && g.elapsed <= g.CanJoin
	})

	event.On(b, NameGracePeriod, func(e *event.Event, in *event.PlayerWillInput) {
		if g.Over() {
			e.Unregister()
			return
		}
		g.moves[in.Player.ID()] = in.Input.Move
		in.Input.Move = geom.Vec2{}
	})

	event.On(b, NameGracePeriod, func(e *event.Event, _ *event.PlayerWillTakeDamage) {
		if g.Over() {
			e.Unregister()
			return
		}
		e.Cancel()
		e.StopPropagation()
	})
}

// restoreMoves hands back the last movement each player asked for
func (g *GracePeriod) restoreMoves(m *match.Instance) {
	for id, mv := range g.moves {
		if p := m.Arena().Player(id); p != nil && p.Alive() {
			p.Input.Move = mv
		}
	}
	clear(g.moves)
}
