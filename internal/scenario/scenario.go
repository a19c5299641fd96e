// Package scenario implements deterministic, YAML-scripted bench
// scenarios: keyframed sensor timelines that drive the shift-control core
// without real hardware, for demoing or reproducing specific driving
// situations (cold start, kickdown, lockup hysteresis, limp mode).
package scenario

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/a340e-ecu/shiftctl/internal/clock"
	"github.com/a340e-ecu/shiftctl/internal/shiftcontrol"
)

// Script is a deterministic, script-driven bench scenario description.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s"). If
// Duration is zero, it is derived from the latest keyframe time. Numeric
// fields are piecewise-linearly interpolated between keyframes; boolean
// fields hold the most recent keyframe's value (step function).
//
// YAML schema (v1):
//
//	version: 1
//	duration: 12s
//	keyframes:
//	  - t: 0s
//	    throttle_pct: 20
//	    speed_kmh: 10
//	    engine_rpm: 1500
//	    output_rpm: 500
//	    fluid_temp_c: 80
//	  - t: 4s
//	    throttle_pct: 20
//	    speed_kmh: 40
//
// Keyframes must be sorted by time with non-decreasing t values.
type Script struct {
	Version   int        `yaml:"version"`
	Duration  time.Duration `yaml:"duration"`
	Keyframes []Keyframe `yaml:"keyframes"`
}

type Keyframe struct {
	T                time.Duration `yaml:"t"`
	ThrottlePct      float64       `yaml:"throttle_pct"`
	SpeedKmh         float64       `yaml:"speed_kmh"`
	EngineRPM        float64       `yaml:"engine_rpm"`
	OutputRPM        float64       `yaml:"output_rpm"`
	FluidTempC       float64       `yaml:"fluid_temp_c"`
	BrakePressed     bool          `yaml:"brake_pressed"`
	OverdriveEnabled bool          `yaml:"overdrive_enabled"`
	PowerMode        bool          `yaml:"power_mode"`
}

// Scenario is the validated, runtime representation.
type Scenario struct {
	script   Script
	duration time.Duration
}

// LoadScript reads and unmarshals a YAML scenario script from path.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return ParseScriptYAML(b)
}

// ParseScriptYAML parses a YAML scenario script.
func ParseScriptYAML(b []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Script{}, err
	}
	return s, nil
}

// New validates script and returns a runtime Scenario.
func New(script Script) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if len(script.Keyframes) == 0 {
		return nil, fmt.Errorf("keyframes is required")
	}
	if err := validateNonDecreasing(script.Keyframes); err != nil {
		return nil, err
	}

	dur := script.Duration
	if dur <= 0 {
		dur = maxKeyframeTime(script.Keyframes)
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration is required (or deriveable from keyframes)")
	}

	return &Scenario{script: script, duration: dur}, nil
}

// Duration returns the effective scenario duration.
func (s *Scenario) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return s.duration
}

// StateAt computes the sensor snapshot at elapsed.
//
// If loop is true, elapsed wraps around Duration(). Otherwise elapsed is
// clamped to [0, Duration()].
func (s *Scenario) StateAt(elapsed time.Duration, loop bool) shiftcontrol.SensorSnapshot {
	if s == nil {
		return shiftcontrol.SensorSnapshot{}
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if s.duration > 0 {
		if loop {
			elapsed = elapsed % s.duration
		} else if elapsed > s.duration {
			elapsed = s.duration
		}
	}

	kf0, kf1, alpha := selectSegment(s.script.Keyframes, elapsed)
	return shiftcontrol.SensorSnapshot{
		ThrottlePct:      lerp(kf0.ThrottlePct, kf1.ThrottlePct, alpha),
		SpeedKmh:         lerp(kf0.SpeedKmh, kf1.SpeedKmh, alpha),
		EngineRPM:        lerp(kf0.EngineRPM, kf1.EngineRPM, alpha),
		OutputRPM:        lerp(kf0.OutputRPM, kf1.OutputRPM, alpha),
		FluidTempC:       lerp(kf0.FluidTempC, kf1.FluidTempC, alpha),
		BrakePressed:     kf0.BrakePressed,
		OverdriveEnabled: kf0.OverdriveEnabled,
		PowerMode:        kf0.PowerMode,
	}
}

// Player implements shiftcontrol.SensorProvider by sampling a Scenario
// against a clock.Clock, so it can stand in for a real SensorProvider when
// running the core loop against a bench script instead of hardware.
type Player struct {
	scenario *Scenario
	clk      clock.Clock
	start    time.Time
	loop     bool
	snap     atomic.Value
}

func NewPlayer(s *Scenario, clk clock.Clock, loop bool) *Player {
	p := &Player{scenario: s, clk: clk, start: clk.Now(), loop: loop}
	p.snap.Store(s.StateAt(0, loop))
	return p
}

// Poll advances the player to the current clock time. Call once per tick,
// mirroring sensors.Provider.Poll.
func (p *Player) Poll() error {
	elapsed := p.clk.Now().Sub(p.start)
	p.snap.Store(p.scenario.StateAt(elapsed, p.loop))
	return nil
}

func (p *Player) Snapshot() shiftcontrol.SensorSnapshot {
	return p.snap.Load().(shiftcontrol.SensorSnapshot)
}

func validateNonDecreasing(kfs []Keyframe) error {
	for i := range kfs {
		if kfs[i].T < 0 {
			return fmt.Errorf("keyframes[%d].t must be >= 0", i)
		}
		if i > 0 && kfs[i].T < kfs[i-1].T {
			return fmt.Errorf("keyframes must be sorted by t (index %d)", i)
		}
	}
	return nil
}

func maxKeyframeTime(kfs []Keyframe) time.Duration {
	max := time.Duration(0)
	for _, kf := range kfs {
		if kf.T > max {
			max = kf.T
		}
	}
	return max
}

func selectSegment(kfs []Keyframe, t time.Duration) (Keyframe, Keyframe, float64) {
	if len(kfs) == 1 {
		return kfs[0], kfs[0], 0
	}
	idx := sort.Search(len(kfs), func(i int) bool { return kfs[i].T > t })
	if idx <= 0 {
		return kfs[0], kfs[0], 0
	}
	if idx >= len(kfs) {
		last := kfs[len(kfs)-1]
		return last, last, 0
	}
	k0 := kfs[idx-1]
	k1 := kfs[idx]
	dt := k1.T - k0.T
	if dt <= 0 {
		return k1, k1, 0
	}
	alpha := float64(t-k0.T) / float64(dt)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return k0, k1, alpha
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
