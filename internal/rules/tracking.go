package rules

import (
	"royale-server/internal/event"
	"royale-server/internal/match"
)

// JoinTracking records every join with the player's name and address
type JoinTracking struct {
	Joins JoinRecorder
}

func (JoinTracking) Name() string { return NameJoinTracking }

func (t JoinTracking) RegisterHandlers(m *match.Instance) {
	event.On(m.Bus(), NameJoinTracking, func(_ *event.Event, j *event.PlayerJoined) {
		if !t.Joins.Track(j.Player.Name, j.Player.IP) {
			log := m.Log()
			log.Warn().Str("name", j.Player.Name).Msg("join log queue full, entry dropped")
		}
	})
}
