// Package gas implements the shrinking safe zone.
package gas

import (
	"fmt"
	"math"
	"math/rand/v2"

	"royale-server/internal/geom"
)

// Mode is the zone state
type Mode uint8

const (
	Inactive Mode = iota
	Waiting
	Moving
)

func (m Mode) String() string {
	switch m {
	case Inactive:
		return "inactive"
	case Waiting:
		return "waiting"
	case Moving:
		return "moving"
	}
	return fmt.Sprintf("mode(%d)", m)
}

// coverage is the share of the next zone that must stay inside the map
const coverage = 0.75

// Params drives the default advance behaviour
type Params struct {
	InitialRadius       float64   `mapstructure:"initialRadius" yaml:"initialRadius"` // 0 means 0.75 of the larger map side
	FirstMovingZone     int       `mapstructure:"firstMovingZone" yaml:"firstMovingZone"`
	StationaryRadiusMul float64   `mapstructure:"stationaryRadiusMul" yaml:"stationaryRadiusMul"`
	MovingRadiusMul     float64   `mapstructure:"movingRadiusMul" yaml:"movingRadiusMul"`
	Damages             []float64 `mapstructure:"damages" yaml:"damages"`
	InitWaitTime        float64   `mapstructure:"initWaitTime" yaml:"initWaitTime"`
	MinWaitTime         float64   `mapstructure:"minWaitTime" yaml:"minWaitTime"`
	WaitTimeDecrement   float64   `mapstructure:"waitTimeDecrement" yaml:"waitTimeDecrement"`
	InitMovingTime      float64   `mapstructure:"initMovingTime" yaml:"initMovingTime"`
	MinMovingTime       float64   `mapstructure:"minMovingTime" yaml:"minMovingTime"`
	MovingTimeDecrement float64   `mapstructure:"movingTimeDecrement" yaml:"movingTimeDecrement"`
	MovingZoneOffset    float64   `mapstructure:"movingZoneOffset" yaml:"movingZoneOffset"`
	MinRadius           float64   `mapstructure:"minRadius" yaml:"minRadius"`
}

// DefaultParams returns the standard battle-royale pacing
func DefaultParams() Params {
	return Params{
		FirstMovingZone:     3,
		StationaryRadiusMul: 0.55,
		MovingRadiusMul:     0.8,
		Damages:             []float64{1, 2, 4, 6, 8, 10},
		InitWaitTime:        100,
		MinWaitTime:         20,
		WaitTimeDecrement:   20,
		InitMovingTime:      30,
		MinMovingTime:       15,
		MovingTimeDecrement: 5,
		MovingZoneOffset:    1,
		MinRadius:           10,
	}
}

func (p *Params) damageAt(idx int) float64 {
	if len(p.Damages) == 0 {
		return 0
	}
	return p.Damages[min(max(idx, 0), len(p.Damages)-1)]
}

// Stage is one externally supplied step of a shrink sequence
type Stage struct {
	Mode     Mode    `yaml:"-"`
	Duration float64 `yaml:"duration"`
	Radius   float64 `yaml:"radius"` // fraction of MapSize
	Damage   float64 `yaml:"damage"`
}

// Zone is the safe area. Players outside CurrentRad of CurrentPos are in the gas.
type Zone struct {
	Stage      int
	CircleIdx  int
	Mode       Mode
	PosOld     geom.Vec2
	PosNew     geom.Vec2
	CurrentPos geom.Vec2
	RadOld     float64
	RadNew     float64
	CurrentRad float64
	Duration   float64
	Damage     float64
	Elapsed    float64
	T          float64 // interpolation fraction while moving

	// Dirty is set when shape or mode change, TimeDirty when only the timer moved
	Dirty     bool
	TimeDirty bool

	width   float64
	height  float64
	params  Params
	running bool
}

// NewZone creates an inactive zone centred on the map
func NewZone(width, height float64, p Params) *Zone {
	center := geom.V(width/2, height/2)
	rad := p.InitialRadius
	if rad <= 0 {
		rad = math.Max(width, height) * coverage
	}
	return &Zone{
		PosOld:     center,
		PosNew:     center,
		CurrentPos: center,
		RadOld:     rad,
		RadNew:     rad,
		CurrentRad: rad,
		Dirty:      true,
		width:      width,
		height:     height,
		params:     p,
		running:    true,
	}
}

// Params returns the advance parameters the zone was built with
func (z *Zone) Params() Params { return z.params }

// MapSize returns the larger world dimension
func (z *Zone) MapSize() float64 { return math.Max(z.width, z.height) }

// Running reports whether the zone still advances
func (z *Zone) Running() bool { return z.running }

// SetRunning starts or halts stage progression
func (z *Zone) SetRunning(r bool) { z.running = r }

// Closed reports whether the zone has shrunk to nothing
func (z *Zone) Closed() bool { return z.Stage > 0 && z.RadNew == 0 && z.CurrentRad == 0 }

// InGas reports whether pos is outside the safe area
func (z *Zone) InGas(pos geom.Vec2) bool {
	if z.Mode == Inactive {
		return false
	}
	return pos.DistSq(z.CurrentPos) >= z.CurrentRad*z.CurrentRad
}

func (z *Zone) mustInit() {
	if !(z.width > 0 && z.height > 0) {
		panic("gas: zone advanced before initialisation")
	}
}

// Tick advances the stage timer and interpolates while moving. It returns
// true once the current stage's duration has elapsed.
func (z *Zone) Tick(dt float64) bool {
	if z.Mode == Inactive || !z.running {
		return false
	}
	z.Elapsed += dt
	z.TimeDirty = true

	if z.Mode == Moving {
		t := 1.0
		if z.Duration > 0 {
			t = geom.Clamp(z.Elapsed/z.Duration, 0, 1)
		}
		z.T = t
		if t >= 1 {
			z.CurrentRad = z.RadNew
			z.CurrentPos = z.PosNew
		} else {
			z.CurrentRad = geom.Lerp(z.RadOld, z.RadNew, t)
			z.CurrentPos = z.PosOld.Lerp(z.PosNew, t)
		}
		z.Dirty = true
	}
	return z.Elapsed >= z.Duration
}

// Advance performs the default stage transition
func (z *Zone) Advance(rng *rand.Rand) { z.AdvanceWith(z.params, rng) }

// AdvanceWith performs the default stage transition driven by p instead of
// the parameters the zone was built with
func (z *Zone) AdvanceWith(p Params, rng *rand.Rand) {
	z.mustInit()
	if !z.running {
		return
	}
	z.Stage++
	if z.Stage%2 == 1 {
		z.Mode = Waiting
	} else {
		z.Mode = Moving
	}
	moving := z.CircleIdx+2 >= p.FirstMovingZone
	z.RadOld = z.CurrentRad

	if z.Mode == Waiting {
		mul := p.StationaryRadiusMul
		if moving {
			mul = p.MovingRadiusMul
		}
		z.RadNew = z.RadOld * mul
		if z.RadNew < p.MinRadius {
			z.RadNew = 0
		}
		z.Duration = math.Max(p.InitWaitTime-p.WaitTimeDecrement*float64(z.CircleIdx+1), p.MinWaitTime)
	} else {
		z.Duration = math.Max(p.InitMovingTime-p.MovingTimeDecrement*float64(z.CircleIdx), p.MinMovingTime)
	}

	if z.RadOld == 0 {
		// nothing left to shrink
		z.running = false
	}
	z.Damage = p.damageAt(z.CircleIdx)

	if z.Mode == Waiting {
		z.retarget(rng, moving, p.MovingZoneOffset)
	}
	z.reset()
}

// ApplyStage replaces the default transition with an explicit stage. A nil
// stage ends progression.
func (z *Zone) ApplyStage(s *Stage, firstMovingZone int, rng *rand.Rand) {
	z.mustInit()
	z.Stage++
	if s == nil {
		z.running = false
		return
	}
	z.running = true
	z.Mode = s.Mode
	z.RadOld = z.CurrentRad
	z.RadNew = s.Radius * z.MapSize()
	z.Duration = s.Duration
	z.Damage = s.Damage
	if z.Mode == Waiting {
		z.retarget(rng, z.CircleIdx >= firstMovingZone-2, 1)
	}
	z.reset()
}

// retarget picks the next centre and freezes the current shape
func (z *Zone) retarget(rng *rand.Rand, moving bool, offset float64) {
	z.PosOld = z.PosNew
	switch {
	case z.RadNew == 0:
		// a closing zone shrinks onto its current centre
	case moving:
		z.PosNew = z.PosNew.Add(geom.RandomUnit(rng).Mul(z.RadOld * offset))
	default:
		z.PosNew = z.PosNew.Add(geom.RandomPointInCircle(rng, z.RadOld-z.RadNew))
	}
	rad := z.RadNew * coverage
	z.PosNew = geom.V(clampAxis(z.PosNew.X, rad, z.width), clampAxis(z.PosNew.Y, rad, z.height))
	z.CurrentPos = z.PosOld
	z.CurrentRad = z.RadOld
	z.CircleIdx++
}

func clampAxis(v, rad, size float64) float64 {
	if rad*2 > size {
		return size / 2
	}
	return geom.Clamp(v, rad, size-rad)
}

func (z *Zone) reset() {
	z.Elapsed = 0
	z.T = 0
	z.Dirty = true
	z.TimeDirty = true
}

// ClearDirty is called after the zone has been flushed to clients
func (z *Zone) ClearDirty() {
	z.Dirty = false
	z.TimeDirty = false
}

// Remaining returns the seconds left in the current stage
func (z *Zone) Remaining() float64 {
	return math.Max(z.Duration-z.Elapsed, 0)
}

// SetRadius snaps the zone to rad around its current target centre
func (z *Zone) SetRadius(rad float64) {
	z.RadOld, z.RadNew, z.CurrentRad = rad, rad, rad
	z.CurrentPos = z.PosNew
	z.Dirty = true
}
