// Package match runs one battle-royale match: the simulation tick, the damage
// pipeline, rule-script activation and the netsync flush.
package match

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"royale-server/internal/event"
	"royale-server/internal/gas"
	"royale-server/internal/metrics"
	"royale-server/internal/schedule"
	"royale-server/internal/spatial"
	"royale-server/internal/world"
)

// State is the lifecycle phase of a match
type State uint8

const (
	StateCreated State = iota
	StateStarted
	StateOver
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateOver:
		return "over"
	}
	return "unknown"
}

// engineOwner owns the scheduled tasks the engine creates for itself
const engineOwner = "engine"

var (
	ErrJoinRejected = errors.New("match: join rejected")
	ErrMatchOver    = errors.New("match: match is over")
	ErrDuplicate    = errors.New("match: script already active")
)

// Script is a rule module. It registers all of its listeners, hook
// transformers and scheduled tasks from RegisterHandlers.
type Script interface {
	Name() string
	RegisterHandlers(m *Instance)
}

// Option configures an Instance
type Option func(*Instance)

// WithLogger sets the match logger
func WithLogger(l zerolog.Logger) Option {
	return func(m *Instance) { m.log = l }
}

// WithMetrics sets the instruments the match reports on
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Instance) { m.metrics = mt }
}

// WithSink sets where netsync snapshots go
func WithSink(s Sink) Option {
	return func(m *Instance) { m.sink = s }
}

// WithID sets the match identifier
func WithID(id string) Option {
	return func(m *Instance) { m.id = id }
}

// Instance is the authoritative state of one match. Everything on it runs on
// a single goroutine; see Runner.
type Instance struct {
	id      string
	cfg     Config
	log     zerolog.Logger
	metrics *metrics.Metrics
	rng     *rand.Rand

	arena     *world.Arena
	grid      *spatial.Grid
	zone      *gas.Zone
	bus       *event.Bus
	sched     *schedule.Scheduler
	gasDamage *gas.DamageTracker

	scripts     map[string]Script
	scriptOrder []string

	state     State
	inited    bool
	now       float64
	ticks     uint64
	startedAt float64
	winner    *world.Group

	sink    Sink
	feed    []feedLine
	pings   []pingEntry
	visible map[uint32]map[uint32]struct{}
}

// New creates a match in the Created state. Activate scripts, then call Init.
func New(cfg Config, opts ...Option) *Instance {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	m := &Instance{
		cfg:       cfg,
		log:       zerolog.Nop(),
		rng:       rand.New(rand.NewPCG(seed, seed>>32|1)),
		arena:     world.NewArena(),
		grid:      spatial.NewGrid(cfg.Width, cfg.Height, cfg.CellSize),
		zone:      gas.NewZone(cfg.Width, cfg.Height, cfg.Gas),
		sched:     schedule.New(),
		gasDamage: gas.NewDamageTracker(),
		scripts:   make(map[string]Script),
		visible:   make(map[uint32]map[uint32]struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	m.bus = event.NewBus(
		event.WithLogger(m.log),
		event.WithMetrics(m.metrics),
		event.WithFaultHandler(m.scriptFault),
	)
	return m
}

func (m *Instance) ID() string { return m.id }
func (m *Instance) Config() Config { return m.cfg }
func (m *Instance) Log() zerolog.Logger { return m.log }
func (m *Instance) Rand() *rand.Rand { return m.rng }
func (m *Instance) Arena() *world.Arena { return m.arena }
func (m *Instance) Grid() *spatial.Grid { return m.grid }
func (m *Instance) Zone() *gas.Zone { return m.zone }
func (m *Instance) Bus() *event.Bus { return m.bus }
func (m *Instance) Scheduler() *schedule.Scheduler { return m.sched }
func (m *Instance) State() State { return m.state }
func (m *Instance) Started() bool { return m.state != StateCreated }
func (m *Instance) Over() bool { return m.state == StateOver }
func (m *Instance) Winner() *world.Group { return m.winner }
func (m *Instance) Ticks() uint64 { return m.ticks }

// Now returns the simulation time since creation
func (m *Instance) Now() float64 { return m.now }

// Elapsed returns the simulation time since the match started, 0 before that
func (m *Instance) Elapsed() float64 {
	if m.state == StateCreated {
		return 0
	}
	return m.now - m.startedAt
}

// AliveCount returns the number of players still in play
func (m *Instance) AliveCount() int { return m.arena.AliveCount() }

// Groups returns every group in join order
func (m *Instance) Groups() []*world.Group { return m.arena.Groups() }

// Activate registers a rule script. Names must be unique within a match.
func (m *Instance) Activate(s Script) (err error) {
	name := s.Name()
	if _, ok := m.scripts[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	m.scripts[name] = s
	m.scriptOrder = append(m.scriptOrder, name)

	defer func() {
		if r := recover(); r != nil {
			m.Deactivate(name)
			err = fmt.Errorf("match: activate %s: %v", name, r)
		}
	}()
	s.RegisterHandlers(m)
	m.log.Debug().Str("script", name).Msg("script activated")
	return nil
}

// Deactivate drops every listener, transformer and scheduled task of a script
func (m *Instance) Deactivate(name string) bool {
	if _, ok := m.scripts[name]; !ok {
		return false
	}
	delete(m.scripts, name)
	for i, n := range m.scriptOrder {
		if n == name {
			m.scriptOrder = append(m.scriptOrder[:i:i], m.scriptOrder[i+1:]...)
			break
		}
	}
	handlers := m.bus.UnregisterOwner(name)
	tasks := m.sched.CancelOwner(name)
	m.log.Debug().Str("script", name).Int("handlers", handlers).Int("tasks", tasks).Msg("script deactivated")
	return true
}

// Active reports whether a script is registered
func (m *Instance) Active(name string) bool {
	_, ok := m.scripts[name]
	return ok
}

// Scripts returns the active script names in activation order
func (m *Instance) Scripts() []string {
	return append([]string(nil), m.scriptOrder...)
}

// scriptFault deactivates a script whose handler panicked
func (m *Instance) scriptFault(owner, point string, _ any) {
	if m.Deactivate(owner) {
		m.log.Warn().Str("script", owner).Str("event", point).Msg("script deactivated after fault")
	}
}

// guarded runs fn on behalf of owner with the same fault policy as bus handlers
func (m *Instance) guarded(owner, point string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("script", owner).Str("event", point).Interface("panic", r).Msg("rule script task failed")
			m.metrics.ScriptFault(owner)
			m.scriptFault(owner, point, r)
		}
	}()
	fn()
}

// After schedules fn once, delay seconds from now, on behalf of owner
func (m *Instance) After(owner string, delay float64, fn schedule.Func) schedule.TaskID {
	return m.sched.After(owner, delay, func(c *schedule.Context) {
		m.guarded(owner, "task", func() { fn(c) })
	})
}

// Every schedules fn every interval seconds on behalf of owner
func (m *Instance) Every(owner string, interval float64, fn schedule.Func) schedule.TaskID {
	return m.sched.Every(owner, interval, func(c *schedule.Context) {
		m.guarded(owner, "task", func() { fn(c) })
	})
}

// Countdown schedules a countdown on behalf of owner
func (m *Instance) Countdown(owner string, total, step float64, onStep schedule.StepFunc, onComplete schedule.Func) schedule.TaskID {
	var st schedule.StepFunc
	if onStep != nil {
		st = func(c *schedule.Context, remaining int) {
			m.guarded(owner, "countdown", func() { onStep(c, remaining) })
		}
	}
	var done schedule.Func
	if onComplete != nil {
		done = func(c *schedule.Context) {
			m.guarded(owner, "countdown", func() { onComplete(c) })
		}
	}
	return m.sched.Countdown(owner, total, step, st, done)
}

// Init raises MatchCreated, places the map and raises MapCreated
func (m *Instance) Init() {
	if m.inited {
		panic("match: Init called twice")
	}
	m.inited = true
	m.bus.Dispatch(&event.MatchCreated{Width: m.cfg.Width, Height: m.cfg.Height, TeamMode: m.cfg.TeamMode})
	m.populate()
	m.bus.Dispatch(&event.MapCreated{})
	m.log.Info().
		Int("obstacles", len(m.arena.Obstacles())).
		Int("loot", len(m.arena.Loot())).
		Strs("scripts", m.scriptOrder).
		Msg("match created")
}

// EndMatch moves the match to Over. winner may be nil.
func (m *Instance) EndMatch(winner *world.Group) {
	if m.state == StateOver {
		return
	}
	m.state = StateOver
	m.winner = winner
	ev := m.log.Info().Uint64("ticks", m.ticks).Float64("elapsed", m.Elapsed())
	if winner != nil {
		ev = ev.Uint32("winner", winner.ID)
	}
	ev.Msg("match over")
	m.bus.Dispatch(&event.MatchEnded{Winner: winner})
}
