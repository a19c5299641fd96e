package shiftcontrol

// GearSelector computes the target gear each tick from the current gear,
// the sensor snapshot, and the limp-mode latch. It owns a KickdownDetector
// because kickdown detection has its own persistent state independent of
// TransmissionState (spec §4.1.1).
type GearSelector struct {
	kickdown KickdownDetector
}

// Select implements the decision order of spec §4.1: limp-mode
// short-circuit, overdrive inhibit, kickdown-or-upshift, downshift,
// brake-assist downshift. Downshift and brake-assist are evaluated
// unconditionally against the original current gear, so a later step can
// overwrite an earlier one's target -- the starting-gear conditions across
// steps are mutually exclusive, so in practice at most one edge fires.
func (gs *GearSelector) Select(currentGear int, snap SensorSnapshot, limpMode bool, nowMs int64) (target int, kickdownActive bool) {
	if limpMode {
		return 3, false
	}

	target = currentGear
	if !snap.OverdriveEnabled && target > 3 {
		target = 3
	}

	kickdownActive = gs.kickdown.Update(snap.ThrottlePct, nowMs)
	if kickdownActive {
		switch currentGear {
		case 4:
			if snap.SpeedKmh < 120 {
				target = 3
			}
		case 3:
			if snap.SpeedKmh < 90 {
				target = 2
			}
		case 2:
			if snap.SpeedKmh < 50 {
				target = 1
			}
		}
	} else {
		switch currentGear {
		case 1:
			if snap.SpeedKmh > float64(interp(table12(snap.PowerMode), snap.ThrottlePct)) {
				target = 2
			}
		case 2:
			if snap.SpeedKmh > float64(interp(table23(snap.PowerMode), snap.ThrottlePct)) {
				target = 3
			}
		case 3:
			if snap.OverdriveEnabled && snap.SpeedKmh > float64(interp(table34(snap.PowerMode), snap.ThrottlePct)) {
				target = 4
			}
		}
	}

	// Downshift: Normal tables only, independent of power_mode.
	switch currentGear {
	case 4:
		if snap.SpeedKmh < float64(interp(table43Down, snap.ThrottlePct)) {
			target = 3
		}
	case 3:
		if snap.SpeedKmh < float64(interp(table32Down, snap.ThrottlePct)) {
			target = 2
		}
	case 2:
		if snap.SpeedKmh < float64(interp(table21Down, snap.ThrottlePct)) {
			target = 1
		}
	}

	if snap.BrakePressed && snap.ThrottlePct < 5 {
		switch currentGear {
		case 4:
			if snap.SpeedKmh < 70 {
				target = 3
			}
		case 3:
			if snap.SpeedKmh < 45 {
				target = 2
			}
		}
	}

	return target, kickdownActive
}
