package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalMeterRegisters(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.Tick(5*time.Millisecond, 33*time.Millisecond)
		m.EventDispatched("tick")
		m.ScriptFault("grace_period")
		m.CommandDropped()
		m.Flushed(3)
		m.MatchStarted()
		m.MatchStopped()
	})
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Tick(time.Second, time.Millisecond)
		m.EventDispatched("tick")
		m.ScriptFault("x")
		m.CommandDropped()
		m.Flushed(1)
		m.MatchStarted()
		m.MatchStopped()
	})
	assert.NotNil(t, Discard())
}
