package shiftcontrol

// Shift state machine timing constants (spec §4.2), in milliseconds.
const (
	ShiftInhibitMs  = 800
	ShiftDelayMs    = 150
	ShiftCompleteMs = 500
	ShiftSettleMs   = 200
)

// executeShiftSolenoids maps a target gear to the two binary gear-select
// solenoid states (spec §4.2.1). Gear values outside 1..4 are treated as
// an invariant violation by the caller, not here.
func executeShiftSolenoids(gear int) (s1, s2 bool) {
	switch gear {
	case 1:
		return false, false
	case 2:
		return true, false
	case 3:
		return false, true
	case 4:
		return true, true
	default:
		return false, false
	}
}

// ShiftStateMachine advances TransmissionState through
// Stable -> Requested -> InProgress -> Completing -> Stable once per tick,
// consulting a GearSelector at the Stable and Requested phases.
type ShiftStateMachine struct {
	selector *GearSelector
}

// NewShiftStateMachine builds a state machine bound to the given selector.
func NewShiftStateMachine(selector *GearSelector) *ShiftStateMachine {
	return &ShiftStateMachine{selector: selector}
}

// Advance runs one tick and reports whether this tick closed a shift
// episode (the Completing->Stable edge), which is when the adaptive
// learner should run.
func (sm *ShiftStateMachine) Advance(state *State, snap SensorSnapshot, nowMs int64) (episodeClosed bool) {
	switch state.ShiftPhase {
	case PhaseStable:
		target, kickdown := sm.selector.Select(state.CurrentGear, snap, state.LimpMode, nowMs)
		state.TargetGear = target
		state.KickdownActive = kickdown

		if target != state.CurrentGear && nowMs-state.LastShiftCompletedMs > ShiftInhibitMs {
			state.preShiftGear = state.CurrentGear
			state.kickdownDuringEpisode = kickdown
			state.ShiftStartMs = nowMs
			state.ShiftPhase = PhaseRequested
		}

	case PhaseRequested:
		if nowMs-state.ShiftStartMs > ShiftDelayMs {
			confirmedTarget, kickdown := sm.selector.Select(state.CurrentGear, snap, state.LimpMode, nowMs)
			state.KickdownActive = kickdown
			state.kickdownDuringEpisode = state.kickdownDuringEpisode || kickdown

			if confirmedTarget == state.TargetGear {
				state.CurrentGear = state.TargetGear
				state.TotalShifts++
				state.LastShiftCompletedMs = nowMs
				state.ShiftPhase = PhaseInProgress
			} else {
				state.TargetGear = state.CurrentGear
				state.ShiftPhase = PhaseStable
			}
		}

	case PhaseInProgress:
		if nowMs-state.ShiftStartMs > ShiftCompleteMs {
			state.ShiftPhase = PhaseCompleting
		}

	case PhaseCompleting:
		if nowMs-state.ShiftStartMs > ShiftCompleteMs+ShiftSettleMs {
			state.LastShiftDurationMs = nowMs - state.ShiftStartMs
			state.ShiftPhase = PhaseStable
			episodeClosed = true
		}
	}

	return episodeClosed
}
