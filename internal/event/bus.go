package event

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"royale-server/internal/metrics"
)

// FaultHandler is told about a listener or transformer that panicked.
// point is the event kind or hook name being handled.
type FaultHandler func(owner, point string, recovered any)

// Option configures a Bus
type Option func(*Bus)

// WithLogger sets the logger used for fault reports
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bus) { b.log = l }
}

// WithMetrics sets the instruments dispatches and faults are counted on
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// WithFaultHandler installs the callback run after a recovered panic
func WithFaultHandler(fn FaultHandler) Option {
	return func(b *Bus) { b.onFault = fn }
}

type binding struct {
	owner  string
	kind   Kind   // zero for hook transformers
	hook   string // empty for listeners
	fn     any
	active bool
}

// Handle removes one registration. The zero Handle is inert.
type Handle struct {
	b  *Bus
	bd *binding
}

// Unregister removes the registration. Calling it more than once is harmless.
func (h Handle) Unregister() {
	if h.b != nil {
		h.b.remove(h.bd)
	}
}

// Active reports whether the registration is still live
func (h Handle) Active() bool { return h.bd != nil && h.bd.active }

// Event is the per-dispatch context handed to listeners
type Event struct {
	Payload Payload

	b         *Bus
	cur       *binding
	cancelled bool
	stopped   bool
}

// Cancel marks the default follow-up behaviour as suppressed. Remaining
// listeners still run.
func (e *Event) Cancel() { e.cancelled = true }

// Cancelled reports whether any listener cancelled the event
func (e *Event) Cancelled() bool { return e.cancelled }

// StopPropagation skips the listeners after the current one
func (e *Event) StopPropagation() { e.stopped = true }

// Stopped reports whether propagation was stopped
func (e *Event) Stopped() bool { return e.stopped }

// Unregister removes the listener that is currently running
func (e *Event) Unregister() {
	if e.cur != nil {
		e.b.remove(e.cur)
	}
}

// Owner returns the owner of the running listener
func (e *Event) Owner() string {
	if e.cur == nil {
		return ""
	}
	return e.cur.owner
}

// Bus dispatches events and resolves hooks for a single match. It is not safe
// for concurrent use; it lives on the match goroutine.
//
// Registration lists are copy-on-write, so a dispatch in progress keeps
// iterating the list it started with while listeners come and go.
type Bus struct {
	listeners [kindCount][]*binding
	hooks     map[string][]*binding

	log     zerolog.Logger
	metrics *metrics.Metrics
	onFault FaultHandler
}

// NewBus creates an empty bus
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		hooks: make(map[string][]*binding),
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Listen registers fn for kind on behalf of owner
func (b *Bus) Listen(owner string, kind Kind, fn func(*Event)) Handle {
	if !kind.Valid() {
		panic(fmt.Sprintf("event: listen on invalid kind %d", kind))
	}
	bd := &binding{owner: owner, kind: kind, fn: fn, active: true}
	b.listeners[kind] = append(slices.Clip(b.listeners[kind]), bd)
	return Handle{b: b, bd: bd}
}

// On registers a listener typed by its payload
func On[P Payload](b *Bus, owner string, fn func(e *Event, p P)) Handle {
	var zero P
	return b.Listen(owner, zero.Kind(), func(e *Event) {
		fn(e, e.Payload.(P))
	})
}

// Dispatch runs every listener registered for the payload's kind in
// registration order and returns the event so the caller can inspect Cancelled.
func (b *Bus) Dispatch(p Payload) *Event {
	e := &Event{Payload: p, b: b}
	k := p.Kind()
	b.metrics.EventDispatched(k.String())

	for _, bd := range b.listeners[k] {
		if !bd.active {
			continue
		}
		e.cur = bd
		b.guard(bd, k.String(), func() { bd.fn.(func(*Event))(e) })
		if e.stopped {
			break
		}
	}
	e.cur = nil
	return e
}

// Count returns the number of live listeners for kind
func (b *Bus) Count(kind Kind) int {
	if !kind.Valid() {
		return 0
	}
	return len(b.listeners[kind])
}

// UnregisterOwner drops every listener and transformer owned by owner and
// returns how many were removed
func (b *Bus) UnregisterOwner(owner string) int {
	n := 0
	for k := range b.listeners {
		for _, bd := range b.listeners[k] {
			if bd.owner == owner {
				b.remove(bd)
				n++
			}
		}
	}
	for name := range b.hooks {
		for _, bd := range b.hooks[name] {
			if bd.owner == owner {
				b.remove(bd)
				n++
			}
		}
	}
	return n
}

func (b *Bus) remove(bd *binding) {
	if !bd.active {
		return
	}
	bd.active = false
	drop := func(list []*binding) []*binding {
		return slices.DeleteFunc(slices.Clone(list), func(x *binding) bool { return x == bd })
	}
	if bd.hook != "" {
		b.hooks[bd.hook] = drop(b.hooks[bd.hook])
		return
	}
	b.listeners[bd.kind] = drop(b.listeners[bd.kind])
}

// guard runs fn and turns a panic into a fault report
func (b *Bus) guard(bd *binding, point string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			b.log.Error().
				Str("script", bd.owner).
				Str("event", point).
				Interface("panic", r).
				Msg("rule script handler failed")
			b.metrics.ScriptFault(bd.owner)
			if b.onFault != nil {
				b.onFault(bd.owner, point, r)
			}
		}
	}()
	fn()
	return true
}
