package rules

import (
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"royale-server/internal/event"
	"royale-server/internal/gas"
	"royale-server/internal/match"
)

// MovingGas replaces the zone's advance parameters with its own
type MovingGas struct {
	Params gas.Params
}

func (*MovingGas) Name() string { return NameMovingGas }

func (g *MovingGas) RegisterHandlers(m *match.Instance) {
	event.On(m.Bus(), NameMovingGas, func(e *event.Event, z *event.ZoneWillAdvance) {
		e.Cancel()
		z.Zone.AdvanceWith(g.Params, m.Rand())
	})
}

// StageGas walks the zone through a fixed table of stages. Progression stops
// once the table is exhausted. A leading inactive stage only sets the opening
// circle.
type StageGas struct {
	Stages          []gas.Stage
	FirstMovingZone int
}

func (*StageGas) Name() string { return NameStageGas }

func (g *StageGas) RegisterHandlers(m *match.Instance) {
	stages := g.Stages
	if len(stages) > 0 && stages[0].Mode == gas.Inactive {
		opening := stages[0].Radius
		stages = stages[1:]
		event.On(m.Bus(), NameStageGas, func(_ *event.Event, _ *event.MatchCreated) {
			z := m.Zone()
			z.SetRadius(opening * z.MapSize())
		})
	}
	event.On(m.Bus(), NameStageGas, func(e *event.Event, z *event.ZoneWillAdvance) {
		e.Cancel()
		if i := z.Zone.Stage; i < len(stages) {
			z.Zone.ApplyStage(&stages[i], g.FirstMovingZone, m.Rand())
			return
		}
		z.Zone.ApplyStage(nil, g.FirstMovingZone, m.Rand())
	})
}

type stageFile struct {
	Stages []struct {
		Mode     string  `yaml:"mode"`
		Duration float64 `yaml:"duration"`
		Radius   float64 `yaml:"radius"`
		Damage   float64 `yaml:"damage"`
	} `yaml:"stages"`
}

// ParseStages reads a YAML stage table. Radii are fractions of the map size
// and only the first stage may be inactive:
//
//	stages:
//	  - {mode: inactive, radius: 0.7}
//	  - {mode: waiting, duration: 80, radius: 0.4, damage: 1.4}
//	  - {mode: moving, duration: 30, radius: 0.4, damage: 1.4}
func ParseStages(r io.Reader) ([]gas.Stage, error) {
	var f stageFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("rules: decode stages: %w", err)
	}
	out := make([]gas.Stage, 0, len(f.Stages))
	for i, s := range f.Stages {
		var mode gas.Mode
		switch s.Mode {
		case "inactive":
			if i > 0 {
				return nil, fmt.Errorf("rules: stage %d: only the first stage may be inactive", i)
			}
			mode = gas.Inactive
		case "waiting":
			mode = gas.Waiting
		case "moving":
			mode = gas.Moving
		default:
			return nil, fmt.Errorf("rules: stage %d: unknown mode %q", i, s.Mode)
		}
		if s.Duration < 0 || s.Radius < 0 {
			return nil, fmt.Errorf("rules: stage %d: negative duration or radius", i)
		}
		out = append(out, gas.Stage{Mode: mode, Duration: s.Duration, Radius: s.Radius, Damage: s.Damage})
	}
	return out, nil
}

// LoadStages parses the stage table at path
func LoadStages(path string) ([]gas.Stage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rules: open stages: %w", err)
	}
	defer f.Close()
	return ParseStages(f)
}

// GasDamageScaling makes the gas hurt more the longer a player stays in it,
// up to three times the base damage after twenty seconds
type GasDamageScaling struct{}

func (GasDamageScaling) Name() string { return NameGasDamageScaling }

func (GasDamageScaling) RegisterHandlers(m *match.Instance) {
	event.Transform(m.Bus(), NameGasDamageScaling, event.GasDamage, func(base float64, t *event.GasTick) float64 {
		return base * (1 + math.Min(t.Seconds, 20)/10)
	})
}
