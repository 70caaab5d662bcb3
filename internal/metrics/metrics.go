// Package metrics exposes the engine's OpenTelemetry instruments. With no
// meter provider installed every instrument is a no-op.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "royale-server/internal/metrics"

// Metrics groups the instruments shared by every match in a process
type Metrics struct {
	ticks        metric.Int64Counter
	tickDuration metric.Float64Histogram
	overruns     metric.Int64Counter
	events       metric.Int64Counter
	faults       metric.Int64Counter
	dropped      metric.Int64Counter
	flushes      metric.Int64Counter
	matches      metric.Int64UpDownCounter
}

// New registers the instruments on the global meter provider
func New() (*Metrics, error) {
	return newWithMeter(otel.Meter(instrumentationName))
}

// Discard returns instruments backed by a no-op meter
func Discard() *Metrics {
	m, err := newWithMeter(noop.NewMeterProvider().Meter(instrumentationName))
	if err != nil {
		panic(err)
	}
	return m
}

func newWithMeter(m metric.Meter) (*Metrics, error) {
	var (
		out Metrics
		err error
	)
	if out.ticks, err = m.Int64Counter("match.ticks",
		metric.WithDescription("Simulation ticks executed")); err != nil {
		return nil, fmt.Errorf("ticks counter: %w", err)
	}
	if out.tickDuration, err = m.Float64Histogram("match.tick.duration",
		metric.WithDescription("Wall time spent in one simulation tick"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("tick histogram: %w", err)
	}
	if out.overruns, err = m.Int64Counter("match.tick.overruns",
		metric.WithDescription("Ticks that took longer than the tick interval")); err != nil {
		return nil, fmt.Errorf("overrun counter: %w", err)
	}
	if out.events, err = m.Int64Counter("match.events.dispatched",
		metric.WithDescription("Lifecycle events dispatched to rule scripts")); err != nil {
		return nil, fmt.Errorf("events counter: %w", err)
	}
	if out.faults, err = m.Int64Counter("match.script.faults",
		metric.WithDescription("Rule-script handlers that panicked")); err != nil {
		return nil, fmt.Errorf("faults counter: %w", err)
	}
	if out.dropped, err = m.Int64Counter("match.commands.dropped",
		metric.WithDescription("Inbound commands dropped because the queue was full")); err != nil {
		return nil, fmt.Errorf("dropped counter: %w", err)
	}
	if out.flushes, err = m.Int64Counter("match.netsync.flushes",
		metric.WithDescription("Netsync snapshots handed to the transport")); err != nil {
		return nil, fmt.Errorf("flush counter: %w", err)
	}
	if out.matches, err = m.Int64UpDownCounter("match.active",
		metric.WithDescription("Matches currently running")); err != nil {
		return nil, fmt.Errorf("active matches counter: %w", err)
	}
	return &out, nil
}

// Tick records one simulation tick
func (m *Metrics) Tick(d, budget time.Duration) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.ticks.Add(ctx, 1)
	m.tickDuration.Record(ctx, float64(d)/float64(time.Millisecond))
	if d > budget {
		m.overruns.Add(ctx, 1)
	}
}

// EventDispatched counts one dispatch of kind
func (m *Metrics) EventDispatched(kind string) {
	if m == nil {
		return
	}
	m.events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", kind)))
}

// ScriptFault counts a recovered rule-script panic
func (m *Metrics) ScriptFault(owner string) {
	if m == nil {
		return
	}
	m.faults.Add(context.Background(), 1, metric.WithAttributes(attribute.String("script", owner)))
}

// CommandDropped counts a rejected inbound command
func (m *Metrics) CommandDropped() {
	if m == nil {
		return
	}
	m.dropped.Add(context.Background(), 1)
}

// Flushed counts snapshots sent during one netsync
func (m *Metrics) Flushed(n int) {
	if m == nil {
		return
	}
	m.flushes.Add(context.Background(), int64(n))
}

// MatchStarted and MatchStopped track running matches
func (m *Metrics) MatchStarted() {
	if m == nil {
		return
	}
	m.matches.Add(context.Background(), 1)
}

func (m *Metrics) MatchStopped() {
	if m == nil {
		return
	}
	m.matches.Add(context.Background(), -1)
}
