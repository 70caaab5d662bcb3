package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"royale-server/internal/logging"
	"royale-server/internal/match"
	"royale-server/internal/metrics"
	"royale-server/internal/rules"
	"royale-server/internal/world"
)

const joinTimeout = 2 * time.Second

var (
	ErrTooManyMatches = errors.New("too many active matches")
	errQueueFull      = errors.New("match is busy")
)

// Session is one running match and the clients attached to it
type Session struct {
	ID     string
	runner *match.Runner
	cancel context.CancelFunc
	done   chan struct{}
	log    zerolog.Logger

	// only touched on the match goroutine
	clients map[uint32]*Client

	// published by the liveness callback for other goroutines
	lastBeat atomic.Int64
	state    atomic.Value // string
	players  atomic.Int32
}

// Send implements match.Sink. It runs on the match goroutine.
func (s *Session) Send(playerID uint32, snap *match.Snapshot) {
	c := s.clients[playerID]
	if c == nil {
		return
	}
	data, err := msgpack.Marshal(snap)
	if err != nil {
		s.log.Error().Err(err).Uint32("player", playerID).Msg("encode snapshot")
		return
	}
	c.SendBinary(data)
}

// beat is the runner's liveness callback
func (s *Session) beat() {
	m := s.runner.Instance()
	s.lastBeat.Store(time.Now().UnixNano())
	s.state.Store(m.State().String())
	s.players.Store(int32(m.AliveCount()))
}

func (s *Session) Info() MatchInfo {
	state, _ := s.state.Load().(string)
	return MatchInfo{ID: s.ID, State: state, Players: int(s.players.Load())}
}

// silentFor returns how long ago the match last signalled liveness
func (s *Session) silentFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastBeat.Load()))
}

type joinResult struct {
	player *world.Player
	err    error
}

const (
	joinPending int32 = iota
	joinClaimed
	joinAbandoned
)

// join places c in the match. The join runs as a match command and the
// caller waits for its result. A command that runs after the caller gave up
// does nothing.
func (s *Session) join(ctx context.Context, c *Client, req match.JoinRequest) (uint32, error) {
	res := make(chan joinResult, 1)
	var state atomic.Int32
	ok := s.runner.Submit(func(m *match.Instance) {
		if !state.CompareAndSwap(joinPending, joinClaimed) {
			return
		}
		p, err := m.Join(req)
		if err == nil {
			s.clients[p.ID()] = c
		}
		res <- joinResult{player: p, err: err}
	})
	if !ok {
		return 0, errQueueFull
	}

	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()
	select {
	case r := <-res:
		return r.id()
	case <-s.done:
		if state.CompareAndSwap(joinPending, joinAbandoned) {
			return 0, match.ErrMatchOver
		}
	case <-ctx.Done():
		if state.CompareAndSwap(joinPending, joinAbandoned) {
			return 0, ctx.Err()
		}
	}
	// the command already claimed the join, its result is on the way
	return (<-res).id()
}

func (r joinResult) id() (uint32, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.player.ID(), nil
}

// leave disconnects the player and detaches its client
func (s *Session) leave(playerID uint32) {
	ok := s.runner.Submit(func(m *match.Instance) {
		delete(s.clients, playerID)
		m.Disconnect(playerID)
	})
	if !ok {
		s.log.Warn().Uint32("player", playerID).Msg("dropped disconnect, command queue full")
	}
}

// Submit forwards a client command to the match
func (s *Session) Submit(c match.Command) bool { return s.runner.Submit(c) }

// SessionOptions are the shared inputs every new match is built from
type SessionOptions struct {
	Match      match.Config
	Scripts    []string
	Rules      rules.Deps
	MaxMatches int
	Watchdog   time.Duration
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

// SessionManager handles creation, lookup and teardown of matches
type SessionManager struct {
	opts SessionOptions
	log  zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string // creation order, used when looking for a joinable match

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(opts SessionOptions) *SessionManager {
	if opts.Watchdog <= 0 {
		opts.Watchdog = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionManager{
		opts:     opts,
		log:      opts.Logger.With().Str("component", "sessions").Logger(),
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// CreateSession builds a match, activates its scripts and starts its loop
func (sm *SessionManager) CreateSession() (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.ctx.Err() != nil {
		return nil, fmt.Errorf("create match: %w", sm.ctx.Err())
	}
	if len(sm.sessions) >= sm.opts.MaxMatches {
		return nil, ErrTooManyMatches
	}

	scripts, err := rules.Build(sm.opts.Scripts, sm.opts.Rules)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	id := uuid.NewString()
	sess := &Session{
		ID:      id,
		done:    make(chan struct{}),
		log:     logging.ForMatch(sm.opts.Logger, id),
		clients: make(map[uint32]*Client),
	}
	m := match.New(sm.opts.Match,
		match.WithID(id),
		match.WithLogger(sess.log),
		match.WithMetrics(sm.opts.Metrics),
		match.WithSink(sess),
	)
	for _, s := range scripts {
		if err := m.Activate(s); err != nil {
			return nil, fmt.Errorf("create match: %w", err)
		}
	}
	m.Init()
	sess.runner = match.NewRunner(m, sess.beat)
	sess.beat()

	ctx, cancel := context.WithCancel(sm.ctx)
	sess.cancel = cancel
	sm.sessions[id] = sess
	sm.order = append(sm.order, id)

	sm.group.Go(func() error {
		defer close(sess.done)
		defer cancel()
		err := sess.runner.Run(ctx)
		reason := "over"
		switch {
		case err != nil:
			reason = "failed"
			sess.log.Error().Err(err).Msg("match failed")
		case ctx.Err() != nil:
			reason = "stopped"
		}
		sm.finish(sess, reason)
		return nil
	})
	sm.log.Info().Str("match", id).Msg("match created")
	return sess, nil
}

// finish removes a session whose loop returned and tells its clients.
// The match goroutine has exited so its client map is safe to read.
func (sm *SessionManager) finish(sess *Session, reason string) {
	sm.remove(sess.ID)
	var winner uint32
	if w := sess.runner.Instance().Winner(); w != nil {
		winner = w.ID
	}
	for _, c := range sess.clients {
		c.detach(sess)
		c.SendJSON(Envelope{T: MsgOver, Data: OverMsg{Match: sess.ID, Winner: winner, Reason: reason}})
	}
}

func (sm *SessionManager) remove(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, id)
	for i, sid := range sm.order {
		if sid == id {
			sm.order = append(sm.order[:i], sm.order[i+1:]...)
			break
		}
	}
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Join places c in the oldest match that accepts it, creating one if none does
func (sm *SessionManager) Join(ctx context.Context, c *Client, req match.JoinRequest) (*Session, uint32, error) {
	for _, sess := range sm.joinable() {
		id, err := sess.join(ctx, c, req)
		if err == nil {
			return sess, id, nil
		}
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		sess.log.Debug().Err(err).Msg("join refused, trying next match")
	}

	sess, err := sm.CreateSession()
	if err != nil {
		return nil, 0, err
	}
	id, err := sess.join(ctx, c, req)
	if err != nil {
		return nil, 0, err
	}
	return sess, id, nil
}

// joinable lists matches that have not started, oldest first
func (sm *SessionManager) joinable() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]*Session, 0, len(sm.order))
	for _, id := range sm.order {
		if s := sm.sessions[id]; s != nil && s.Info().State == match.StateCreated.String() {
			out = append(out, s)
		}
	}
	return out
}

// ListSessions returns info about all active matches
func (sm *SessionManager) ListSessions() []MatchInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]MatchInfo, 0, len(sm.order))
	for _, id := range sm.order {
		list = append(list, sm.sessions[id].Info())
	}
	return list
}

// Count returns the number of active matches
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Watch tears down matches that stop signalling liveness until ctx is done
func (sm *SessionManager) Watch(ctx context.Context) error {
	ticker := time.NewTicker(sm.opts.Watchdog / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			sm.reap(now)
		}
	}
}

func (sm *SessionManager) reap(now time.Time) {
	sm.mu.RLock()
	var stale []*Session
	for _, s := range sm.sessions {
		if s.silentFor(now) > sm.opts.Watchdog {
			stale = append(stale, s)
		}
	}
	sm.mu.RUnlock()

	for _, s := range stale {
		s.log.Error().Dur("silent", s.silentFor(now)).Msg("match stopped signalling liveness, terminating")
		s.cancel()
		sm.remove(s.ID)
	}
}

// Close stops every match and waits for their loops to return
func (sm *SessionManager) Close() {
	sm.cancel()
	sm.group.Wait()
}
