// Package shiftcontrol implements the periodic shift-control loop: gear
// selection, the shift state machine, accumulator and lockup duty
// computation, and online adaptive trim learning. It is the sole
// decision-making core of the ECU; everything else in this module is a
// thin adapter around it (sensors in, actuator out, diagnostics alongside).
package shiftcontrol

// SensorSnapshot is the immutable per-tick view the core reads. It is
// produced by the sensor provider outside this package; the core never
// performs I/O or filtering of its own.
type SensorSnapshot struct {
	ThrottlePct      float64 // 0..100, filtered
	SpeedKmh         float64 // 0..250, filtered
	EngineRPM        float64 // 0..8000
	OutputRPM        float64 // 0..inf
	FluidTempC       float64 // -40..150
	BrakePressed     bool
	OverdriveEnabled bool // driver's OD switch
	PowerMode        bool // normal vs. sport shift map
}

// ShiftPhase is the shift state machine's phase.
type ShiftPhase int

const (
	PhaseStable ShiftPhase = iota
	PhaseRequested
	PhaseInProgress
	PhaseCompleting
)

func (p ShiftPhase) String() string {
	switch p {
	case PhaseStable:
		return "stable"
	case PhaseRequested:
		return "requested"
	case PhaseInProgress:
		return "in_progress"
	case PhaseCompleting:
		return "completing"
	default:
		return "unknown"
	}
}

// State is the single mutable state of the core. It is owned exclusively
// by the tick loop; diagnostic readers only ever see a copy (Snapshot).
type State struct {
	CurrentGear int // 1..4, initial 1
	TargetGear  int // 1..4, initial 1

	ShiftPhase           ShiftPhase
	ShiftStartMs         int64 // monotonic ms, start of current non-Stable episode
	LastShiftCompletedMs int64 // monotonic ms, last executeShift
	LastShiftDurationMs  int64 // last measured Requested->Completing duration

	KickdownActive bool // observed this tick
	LockupEngaged  bool // last commanded
	LockupDutyPct  int  // 0..100
	AccDutyPct     int  // 15..85, accumulator duty

	// ShiftQualityOffset holds one bounded trim per upshift: index 0 is
	// 1->2, index 1 is 2->3, index 2 is 3->4.
	ShiftQualityOffset [3]int
	ShiftCount         [3]int

	LimpMode bool // set externally; forces gear 3, disables adaptive updates

	TotalShifts int // global executeShift counter, for diagnostics

	// preShiftGear and kickdownDuringEpisode are episode-scoped bookkeeping
	// captured when a Stable->Requested transition opens an episode, and
	// consumed by the adaptive learner when it closes at Completing->Stable.
	// Captured at episode start rather than inferred from the post-shift
	// CurrentGear, since by the time the episode closes CurrentGear already
	// equals TargetGear and the two can no longer be compared to tell an
	// upshift from a downshift.
	preShiftGear           int
	kickdownDuringEpisode  bool
}

// NewState returns a TransmissionState at its power-on defaults (spec §3).
func NewState() *State {
	return &State{
		CurrentGear: 1,
		TargetGear:  1,
		ShiftPhase:  PhaseStable,
	}
}
