package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"royale-server/internal/geom"
	"royale-server/internal/match"
	"royale-server/internal/world"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	maxMessagesPerSec = 60
)

// outbound frame
type frame struct {
	binary bool
	data   []byte
}

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan frame
	done       chan struct{}
	closeOnce  sync.Once
	remoteAddr string
	log        zerolog.Logger
	msgCount   int
	msgResetAt time.Time

	session  atomic.Pointer[Session]
	playerID atomic.Uint32
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, sendBuf int) *Client {
	if sendBuf <= 0 {
		sendBuf = 64
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan frame, sendBuf),
		done:       make(chan struct{}),
		remoteAddr: remoteAddr,
		log:        hub.log.With().Str("remote", remoteAddr).Logger(),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.close()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("ws read error")
			}
			return
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn().Msg("rate limit exceeded, disconnecting")
			return
		}

		c.handleMessage(ctx, message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			kind := websocket.TextMessage
			if f.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, f.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal message")
		return
	}
	c.enqueue(frame{data: data})
}

// SendBinary queues a binary frame. Frames for slow clients are dropped.
func (c *Client) SendBinary(data []byte) {
	c.enqueue(frame{binary: true, data: data})
}

func (c *Client) enqueue(f frame) {
	if c.closed() {
		return
	}
	select {
	case c.send <- f:
	default:
		// Client too slow, drop message
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// detach forgets sess if the client is still attached to it
func (c *Client) detach(sess *Session) {
	if c.session.CompareAndSwap(sess, nil) {
		c.playerID.Store(0)
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(ctx context.Context, raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug().Err(err).Msg("bad message")
		return
	}

	switch env.T {
	case MsgList:
		c.SendJSON(Envelope{T: MsgMatches, Data: c.hub.sessions.ListSessions()})
	case MsgJoin:
		c.handleJoin(ctx, env.D)
	case MsgInput:
		c.handleInput(env.D)
	case MsgSwitch:
		c.handleSwitch(env.D)
	case MsgPing:
		c.handlePing(env.D)
	case MsgLeave:
		c.handleLeave()
	}
}

func (c *Client) handleJoin(ctx context.Context, data json.RawMessage) {
	if c.session.Load() != nil {
		c.sendError("already in a match")
		return
	}
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("bad join")
		return
	}

	sess, id, err := c.hub.sessions.Join(ctx, c, match.JoinRequest{
		Name:     msg.Name,
		IP:       c.remoteAddr,
		GroupKey: msg.Group,
	})
	switch {
	case errors.Is(err, ErrTooManyMatches):
		c.sendError("server full")
		return
	case err != nil:
		c.log.Warn().Err(err).Msg("join failed")
		c.sendError("join failed")
		return
	}
	if c.closed() {
		sess.leave(id)
		return
	}

	c.playerID.Store(id)
	c.session.Store(sess)
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{Match: sess.ID, ID: id}})
}

// current returns the attached session and player, or nil
func (c *Client) current() (*Session, uint32) {
	sess := c.session.Load()
	if sess == nil {
		return nil, 0
	}
	return sess, c.playerID.Load()
}

func (c *Client) handleInput(data json.RawMessage) {
	sess, id := c.current()
	if sess == nil {
		return
	}
	var msg InputMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	in := world.Input{
		Move:  geom.Vec2{X: msg.MX, Y: msg.MY},
		Aim:   geom.Vec2{X: msg.AX, Y: msg.AY},
		Shoot: msg.Shoot,
		Seq:   msg.Seq,
	}
	sess.Submit(func(m *match.Instance) { m.ApplyInput(id, in) })
}

func (c *Client) handleSwitch(data json.RawMessage) {
	sess, id := c.current()
	if sess == nil {
		return
	}
	var msg SwitchMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess.Submit(func(m *match.Instance) { m.SwitchWeapon(id, msg.Slot) })
}

func (c *Client) handlePing(data json.RawMessage) {
	sess, id := c.current()
	if sess == nil {
		return
	}
	var msg PingMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		return
	}
	sess.Submit(func(m *match.Instance) { m.Ping(id, msg.Type, msg.Pos()) })
}

func (c *Client) handleLeave() {
	sess, id := c.current()
	if sess == nil {
		return
	}
	c.detach(sess)
	sess.leave(id)
}
