package scenario

import (
	"testing"
	"time"

	"github.com/a340e-ecu/shiftctl/internal/clock"
)

func TestScenario_ParseAndInterpolate(t *testing.T) {
	yamlDoc := []byte(`
version: 1
keyframes:
  - t: 0s
    throttle_pct: 20
    speed_kmh: 10
    engine_rpm: 1500
    output_rpm: 500
    fluid_temp_c: 60
  - t: 10s
    throttle_pct: 40
    speed_kmh: 30
    engine_rpm: 2500
    output_rpm: 1500
    fluid_temp_c: 80
`)

	script, err := ParseScriptYAML(yamlDoc)
	if err != nil {
		t.Fatalf("ParseScriptYAML: %v", err)
	}
	scn, err := New(script)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if scn.Duration() != 10*time.Second {
		t.Fatalf("duration: got %s want %s", scn.Duration(), 10*time.Second)
	}

	st := scn.StateAt(5*time.Second, false)
	if st.ThrottlePct != 30 {
		t.Fatalf("ThrottlePct interpolation: got %v want 30", st.ThrottlePct)
	}
	if st.SpeedKmh != 20 {
		t.Fatalf("SpeedKmh interpolation: got %v want 20", st.SpeedKmh)
	}
	if st.EngineRPM != 2000 {
		t.Fatalf("EngineRPM interpolation: got %v want 2000", st.EngineRPM)
	}
}

func TestScenario_BooleanFieldsHoldStepValue(t *testing.T) {
	yamlDoc := []byte(`
version: 1
keyframes:
  - t: 0s
    brake_pressed: false
    power_mode: false
  - t: 5s
    brake_pressed: true
    power_mode: true
  - t: 10s
    brake_pressed: false
`)
	script, err := ParseScriptYAML(yamlDoc)
	if err != nil {
		t.Fatalf("ParseScriptYAML: %v", err)
	}
	scn, err := New(script)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := scn.StateAt(2*time.Second, false); got.BrakePressed {
		t.Fatalf("expected brake not pressed before t=5s")
	}
	if got := scn.StateAt(7*time.Second, false); !got.BrakePressed || !got.PowerMode {
		t.Fatalf("expected brake pressed and power mode on at t=7s, got brake=%v power=%v", got.BrakePressed, got.PowerMode)
	}
}

func TestScenario_LoopAndClamp(t *testing.T) {
	yamlDoc := []byte(`
version: 1
duration: 10s
keyframes:
  - t: 0s
    speed_kmh: 0
  - t: 10s
    speed_kmh: 10
`)
	script, err := ParseScriptYAML(yamlDoc)
	if err != nil {
		t.Fatalf("ParseScriptYAML: %v", err)
	}
	scn, err := New(script)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	st := scn.StateAt(11*time.Second, false)
	if st.SpeedKmh != 10 {
		t.Fatalf("clamp speed: got %v want 10", st.SpeedKmh)
	}

	st2 := scn.StateAt(11*time.Second, true)
	if st2.SpeedKmh != 1 {
		t.Fatalf("loop speed: got %v want 1", st2.SpeedKmh)
	}
}

func TestNew_RejectsEmptyKeyframes(t *testing.T) {
	_, err := New(Script{Version: 1})
	if err == nil {
		t.Fatalf("expected error for empty keyframes")
	}
}

func TestNew_RejectsOutOfOrderKeyframes(t *testing.T) {
	_, err := New(Script{
		Version: 1,
		Keyframes: []Keyframe{
			{T: 5 * time.Second},
			{T: 1 * time.Second},
		},
	})
	if err == nil {
		t.Fatalf("expected error for out-of-order keyframes")
	}
}

func TestPlayer_PollAdvancesWithClock(t *testing.T) {
	script, err := New(Script{
		Version: 1,
		Keyframes: []Keyframe{
			{T: 0, SpeedKmh: 0},
			{T: 10 * time.Second, SpeedKmh: 100},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	fake := clock.NewFake(time.Unix(0, 0))
	player := NewPlayer(script, fake, false)

	if got := player.Snapshot().SpeedKmh; got != 0 {
		t.Fatalf("initial SpeedKmh = %v, want 0", got)
	}

	fake.Advance(5 * time.Second)
	if err := player.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if got := player.Snapshot().SpeedKmh; got != 50 {
		t.Fatalf("SpeedKmh after 5s = %v, want 50", got)
	}
}
