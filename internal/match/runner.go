package match

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Command is work submitted from outside the match goroutine. It runs at the
// start of the next tick with exclusive access to the instance.
type Command func(m *Instance)

// Runner owns the goroutine of one match: the simulation ticker, the netsync
// ticker, the inbound command queue and the liveness signal.
type Runner struct {
	m        *Instance
	cmds     chan Command
	alive    func()
	tick     time.Duration
	sync     time.Duration
	liveness time.Duration
}

// NewRunner wraps m. alive is called every LivenessInterval while the match
// runs; it may be nil.
func NewRunner(m *Instance, alive func()) *Runner {
	size := m.cfg.CommandQueue
	if size <= 0 {
		size = 256
	}
	live := m.cfg.LivenessInterval
	if live <= 0 {
		live = time.Second
	}
	return &Runner{
		m:        m,
		cmds:     make(chan Command, size),
		alive:    alive,
		tick:     m.cfg.TickInterval(),
		sync:     m.cfg.NetSyncInterval(),
		liveness: live,
	}
}

// Instance returns the wrapped match. Only touch it from a Command.
func (r *Runner) Instance() *Instance { return r.m }

// Submit queues c without blocking. It returns false when the queue is full.
func (r *Runner) Submit(c Command) bool {
	select {
	case r.cmds <- c:
		return true
	default:
		r.m.metrics.CommandDropped()
		return false
	}
}

// Run drives the match until ctx is done or the match is over. A panic
// inside a tick ends the match and is returned as an error.
func (r *Runner) Run(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.m.log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("match loop failed")
			err = fmt.Errorf("match %s: %v", r.m.id, rec)
		}
	}()

	r.m.metrics.MatchStarted()
	defer r.m.metrics.MatchStopped()

	tick := time.NewTicker(r.tick)
	defer tick.Stop()
	sync := time.NewTicker(r.sync)
	defer sync.Stop()
	live := time.NewTicker(r.liveness)
	defer live.Stop()

	if r.alive != nil {
		r.alive()
	}
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tick.C:
			dt := now.Sub(last).Seconds()
			last = now
			r.step(dt)
		case <-sync.C:
			r.m.NetSync()
			if r.m.Over() {
				return nil
			}
		case <-live.C:
			if r.alive != nil {
				r.alive()
			}
		}
	}
}

// step drains queued commands and runs one tick
func (r *Runner) step(dt float64) {
	start := time.Now()
	for n := len(r.cmds); n > 0; n-- {
		(<-r.cmds)(r.m)
	}
	r.m.Tick(dt)
	r.m.metrics.Tick(time.Since(start), r.tick)
}
