package shiftcontrol

import "math"

// gearRatios are the fixed A340E-class gear ratios used only for the
// diagnostic slip estimate; they play no part in any control decision.
var gearRatios = [4]float64{2.804, 1.531, 1.000, 0.705}

// FinalDrive is declared for parity with the source but intentionally
// unused in ComputeSlip -- see DESIGN.md's resolution of the "final drive
// unused in slip" open question.
const FinalDrive = 3.266

// ComputeSlip estimates torque-converter slip as a percentage, for
// diagnostics only. Returns 0 when output_rpm is zero, engine_rpm is
// below idle-ish threshold, or gear is out of range.
func ComputeSlip(gear int, engineRPM, outputRPM float64) float64 {
	if gear < 1 || gear > 4 || outputRPM == 0 || engineRPM < 500 {
		return 0
	}
	expected := engineRPM / gearRatios[gear-1]
	return math.Abs(expected-outputRPM) / expected * 100
}
