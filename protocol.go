package main

import (
	"encoding/json"

	"royale-server/internal/geom"
)

// Client -> Server message types
const (
	MsgJoin   = "join"
	MsgLeave  = "leave"
	MsgInput  = "input"
	MsgSwitch = "switch" // change weapon slot
	MsgPing   = "ping"   // map ping
	MsgList   = "list"   // list matches
)

// Server -> Client message types. Snapshots go out as binary msgpack frames.
const (
	MsgWelcome = "welcome"
	MsgMatches = "matches"
	MsgOver    = "over"
	MsgError   = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string `json:"t"`
	Data any    `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg asks to be placed in a match. Group is only used in team matches.
type JoinMsg struct {
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
}

// InputMsg is the client's control state
type InputMsg struct {
	MX    float64 `json:"mx"` // move direction
	MY    float64 `json:"my"`
	AX    float64 `json:"ax"` // aim direction
	AY    float64 `json:"ay"`
	Shoot bool    `json:"shoot"`
	Seq   uint32  `json:"seq"`
}

type SwitchMsg struct {
	Slot int `json:"slot"`
}

type PingMsg struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (p PingMsg) Pos() geom.Vec2 { return geom.Vec2{X: p.X, Y: p.Y} }

// WelcomeMsg is sent to a player once they are in a match
type WelcomeMsg struct {
	Match string `json:"match"`
	ID    uint32 `json:"id"`
}

// OverMsg is sent when the player's match ends
type OverMsg struct {
	Match  string `json:"match"`
	Winner uint32 `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// MatchInfo is used in the match list
type MatchInfo struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Players int    `json:"players"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
