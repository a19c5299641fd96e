package shiftcontrol

import "testing"

func TestComputeSlip_ZeroInDegenerateCases(t *testing.T) {
	cases := []struct {
		name      string
		gear      int
		engineRPM float64
		outputRPM float64
	}{
		{name: "output_zero", gear: 2, engineRPM: 2000, outputRPM: 0},
		{name: "engine_below_idle", gear: 2, engineRPM: 400, outputRPM: 1000},
		{name: "gear_out_of_range_low", gear: 0, engineRPM: 2000, outputRPM: 1000},
		{name: "gear_out_of_range_high", gear: 5, engineRPM: 2000, outputRPM: 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeSlip(tc.gear, tc.engineRPM, tc.outputRPM); got != 0 {
				t.Fatalf("ComputeSlip() = %v, want 0", got)
			}
		})
	}
}

func TestComputeSlip_NoSlipWhenOutputMatchesRatio(t *testing.T) {
	// Gear 3 ratio is 1.000, so expected output equals engine RPM exactly.
	got := ComputeSlip(3, 2000, 2000)
	if got != 0 {
		t.Fatalf("ComputeSlip() = %v, want 0", got)
	}
}

func TestComputeSlip_ReportsPositiveSlip(t *testing.T) {
	// Gear 1 ratio 2.804: expected output = 2000/2.804 = 713.27
	got := ComputeSlip(1, 2000, 700)
	if got <= 0 {
		t.Fatalf("ComputeSlip() = %v, want > 0", got)
	}
}
