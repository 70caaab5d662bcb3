package gas

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"royale-server/internal/geom"
)

func newRand() *rand.Rand { return rand.New(rand.NewPCG(3, 4)) }

func TestModeAlternates(t *testing.T) {
	z := NewZone(500, 500, DefaultParams())
	r := newRand()
	assert.Equal(t, Inactive, z.Mode)
	for i := 1; i <= 6; i++ {
		z.Advance(r)
		assert.Equal(t, i, z.Stage)
		if i%2 == 1 {
			assert.Equal(t, Waiting, z.Mode)
		} else {
			assert.Equal(t, Moving, z.Mode)
		}
	}
}

func TestWaitingRadiusAndDurations(t *testing.T) {
	p := DefaultParams()
	p.InitialRadius = 200
	z := NewZone(500, 500, p)
	r := newRand()

	z.Advance(r)
	assert.Equal(t, Waiting, z.Mode)
	assert.InDelta(t, 200.0, z.RadOld, 1e-9)
	assert.InDelta(t, 110.0, z.RadNew, 1e-9, "stationary multiplier")
	assert.InDelta(t, 80.0, z.Duration, 1e-9)
	assert.Equal(t, 1.0, z.Damage)
	assert.Equal(t, 1, z.CircleIdx)

	z.Advance(r)
	assert.Equal(t, Moving, z.Mode)
	assert.InDelta(t, 25.0, z.Duration, 1e-9)
	assert.InDelta(t, 110.0, z.RadNew, 1e-9, "moving keeps target")
}

func TestRadiusNeverChangesWhileWaiting(t *testing.T) {
	z := NewZone(500, 500, DefaultParams())
	z.Advance(newRand())
	pos, rad := z.CurrentPos, z.CurrentRad
	for i := 0; i < 50; i++ {
		z.Tick(0.5)
	}
	assert.Equal(t, pos, z.CurrentPos)
	assert.Equal(t, rad, z.CurrentRad)
}

func TestInterpolationScenario(t *testing.T) {
	z := NewZone(500, 500, DefaultParams())
	z.Stage = 2
	z.Mode = Moving
	z.RadOld, z.RadNew, z.CurrentRad = 50, 30, 50
	z.Duration = 10

	due := z.Tick(4)
	assert.False(t, due)
	assert.InDelta(t, 42.0, z.CurrentRad, 1e-9)
	assert.InDelta(t, 0.4, z.T, 1e-9)
}

func TestMovingIsMonotonicAndExact(t *testing.T) {
	p := DefaultParams()
	p.InitialRadius = 300
	z := NewZone(1000, 1000, p)
	r := newRand()
	z.Advance(r)
	z.Advance(r)
	require.Equal(t, Moving, z.Mode)

	prev := z.CurrentRad
	due := false
	for !due {
		due = z.Tick(0.37)
		assert.LessOrEqual(t, z.CurrentRad, prev)
		prev = z.CurrentRad
	}
	assert.Equal(t, z.RadNew, z.CurrentRad)
	assert.Equal(t, z.PosNew, z.CurrentPos)

	z.Tick(5)
	assert.Equal(t, z.RadNew, z.CurrentRad)
}

func TestZoneCloses(t *testing.T) {
	p := DefaultParams()
	p.InitialRadius = 15
	z := NewZone(100, 100, p)
	r := newRand()

	z.Advance(r)
	assert.Equal(t, 0.0, z.RadNew, "8.25 is below the minimum")
	assert.Equal(t, z.PosOld, z.PosNew, "closes in place")
	z.Advance(r)
	for !z.Tick(1) {
	}
	assert.Equal(t, 0.0, z.CurrentRad)
	assert.True(t, z.Closed())

	for i := 0; i < 5; i++ {
		z.Advance(r)
		z.Tick(100)
		assert.Equal(t, 0.0, z.CurrentRad)
		assert.Equal(t, 0.0, z.RadNew)
	}
	assert.False(t, z.Running())
}

func TestClosingZoneKeepsCentre(t *testing.T) {
	r := newRand()
	for _, first := range []int{0, 3} {
		p := DefaultParams()
		p.InitialRadius = 200
		p.MinRadius = 1000
		p.FirstMovingZone = first
		z := NewZone(1000, 1000, p)

		z.Advance(r)
		require.Equal(t, 0.0, z.RadNew)
		assert.Equal(t, geom.V(500, 500), z.PosOld)
		assert.Equal(t, z.PosOld, z.PosNew, "first moving zone %d", first)
	}
}

func TestNewCentreKeepsCoverage(t *testing.T) {
	r := newRand()
	for i := 0; i < 200; i++ {
		p := DefaultParams()
		p.InitialRadius = 100
		p.FirstMovingZone = 0
		z := NewZone(400, 300, p)
		z.PosNew = geom.V(5, 295)
		z.CurrentPos = z.PosNew
		z.Advance(r)
		rad := z.RadNew * coverage
		assert.GreaterOrEqual(t, z.PosNew.X, rad-1e-9)
		assert.LessOrEqual(t, z.PosNew.X, 400-rad+1e-9)
		assert.GreaterOrEqual(t, z.PosNew.Y, rad-1e-9)
		assert.LessOrEqual(t, z.PosNew.Y, 300-rad+1e-9)
	}
}

func TestDamageClampsToLastEntry(t *testing.T) {
	p := DefaultParams()
	p.InitialRadius = 1e6
	p.MinRadius = 0
	z := NewZone(1e6, 1e6, p)
	r := newRand()
	for i := 0; i < 30; i++ {
		z.Advance(r)
	}
	assert.Equal(t, 10.0, z.Damage)
}

func TestApplyStage(t *testing.T) {
	z := NewZone(500, 500, DefaultParams())
	r := newRand()
	z.ApplyStage(&Stage{Mode: Waiting, Duration: 80, Radius: 0.4, Damage: 1.4}, 3, r)
	assert.Equal(t, 1, z.Stage)
	assert.Equal(t, Waiting, z.Mode)
	assert.Equal(t, 200.0, z.RadNew)
	assert.Equal(t, 1, z.CircleIdx)

	z.ApplyStage(nil, 3, r)
	assert.False(t, z.Running())
	assert.False(t, z.Tick(1000))
}

func TestAdvanceUninitialisedPanics(t *testing.T) {
	var z Zone
	assert.Panics(t, func() { z.Advance(newRand()) })
}

func TestInGas(t *testing.T) {
	z := NewZone(100, 100, DefaultParams())
	assert.False(t, z.InGas(geom.V(0, 0)), "inactive zone never hurts")
	z.Mode = Waiting
	z.CurrentRad = 10
	assert.True(t, z.InGas(geom.V(0, 0)))
	assert.False(t, z.InGas(geom.V(50, 52)))
}

func TestDamageTracker(t *testing.T) {
	d := NewDamageTracker()
	var hits []float64
	apply := func(v float64) { hits = append(hits, v) }

	for i := 0; i < 9; i++ {
		d.Update(1, true, 0.25, 2, nil, apply)
	}
	assert.Equal(t, []float64{2, 2}, hits)

	d.Update(1, false, 0.25, 2, nil, apply)
	assert.Zero(t, d.Seconds(1))
	d.Update(1, true, 0.5, 2, nil, apply)
	assert.Len(t, hits, 2, "accrual restarted")

	scaled := func(id uint32, base, sec float64) float64 { return base * (1 + min(sec, 20)/10) }
	hits = nil
	d.Update(2, true, 3, 1, scaled, apply)
	assert.InDeltaSlice(t, []float64{1.1, 1.2, 1.3}, hits, 1e-9)
}
