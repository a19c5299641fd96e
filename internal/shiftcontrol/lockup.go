package shiftcontrol

// Lockup controller constants (spec §4.4). Enable/disable speeds and
// throttle gates are deliberately asymmetric to give hysteresis so lockup
// does not chatter at the boundary.
const (
	LockupEnableGear    = 3
	LockupEnableSpeed   = 60
	LockupDisableSpeed  = 50
	LockupThrottleMax   = 70
)

// ComputeLockup returns the lockup clutch duty and engagement flag for
// this tick.
func ComputeLockup(state *State, snap SensorSnapshot) (dutyPct int, engaged bool) {
	mustUnlock := snap.SpeedKmh < LockupDisableSpeed ||
		snap.ThrottlePct > LockupThrottleMax+10 ||
		state.ShiftPhase != PhaseStable ||
		state.CurrentGear < LockupEnableGear

	if mustUnlock {
		return 0, false
	}

	canLockup := state.CurrentGear >= LockupEnableGear &&
		snap.SpeedKmh > LockupEnableSpeed &&
		snap.ThrottlePct < LockupThrottleMax &&
		state.ShiftPhase == PhaseStable &&
		snap.FluidTempC > 50

	if !canLockup {
		return 0, false
	}

	switch {
	case snap.ThrottlePct < 20:
		return 95, true
	case snap.ThrottlePct < 40:
		return 75, true
	default:
		return 50, true
	}
}
