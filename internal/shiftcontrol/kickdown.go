package shiftcontrol

// KickdownDetector holds the persistent state the kickdown rule needs
// across ticks. The source kept these as function-scoped static locals;
// lifted here into an explicit value threaded through the tick (spec §9
// design note) so it can be constructed fresh per test.
type KickdownDetector struct {
	lastThrottle    float64
	lastSharpRiseMs int64
}

// Update records one throttle sample and reports whether kickdown is
// active as of this call (spec §4.1.1).
func (k *KickdownDetector) Update(throttlePct float64, nowMs int64) bool {
	if throttlePct-k.lastThrottle >= 20 {
		k.lastSharpRiseMs = nowMs
	}
	k.lastThrottle = throttlePct
	return throttlePct > 85 && nowMs-k.lastSharpRiseMs < 200
}
