package rules

import (
	"royale-server/internal/event"
	"royale-server/internal/match"
	"royale-server/internal/world"
)

// KillRewards heals the killer and tops up their guns to half a clip
type KillRewards struct{}

func (KillRewards) Name() string { return NameKillRewards }

func (KillRewards) RegisterHandlers(m *match.Instance) {
	event.On(m.Bus(), NameKillRewards, func(_ *event.Event, d *event.PlayerDidDie) {
		if d.Killer == nil {
			return
		}
		rewardKill(m, d.Killer)
	})
}

// killBonus is 25, reduced by 5 per living teammate in team matches
func killBonus(m *match.Instance, killer *world.Player) float64 {
	if !m.Config().TeamMode {
		return 25
	}
	g := m.Arena().Group(killer.GroupID)
	if g == nil {
		return 25
	}
	return float64(25 - 5*len(m.Arena().AliveMembers(g)))
}

func rewardKill(m *match.Instance, killer *world.Player) {
	bonus := killBonus(m, killer)
	killer.Heal(bonus)
	killer.AddBoost(bonus)
	refillHalf(killer)
}

// refillHalf raises every gun below half a clip to half a clip
func refillHalf(p *world.Player) {
	for slot := range p.Weapons {
		w := &p.Weapons[slot]
		if w.Empty() || w.Speed == 0 {
			continue
		}
		half := (w.ClipSize + 1) / 2
		if w.Ammo < half {
			p.Reload(slot, half-w.Ammo)
		}
	}
}

// QuickSwitch replaces the default weapon switch delay
type QuickSwitch struct {
	Delay float64
}

func (QuickSwitch) Name() string { return NameQuickSwitch }

func (q QuickSwitch) RegisterHandlers(m *match.Instance) {
	event.On(m.Bus(), NameQuickSwitch, func(e *event.Event, s *event.PlayerWillSwitchWeapon) {
		e.Cancel()
		delay := q.Delay
		if s.Player.Weapons[s.From].Empty() {
			delay = 0
		}
		s.Player.SwitchWeapon(s.To, delay)
	})
}
