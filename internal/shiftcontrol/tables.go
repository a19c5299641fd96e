package shiftcontrol

// Shift-point tables: five speed breakpoints (km/h) at load indices
// {10, 25, 50, 75, 100}% throttle. Upshift tables have Normal and Power
// variants; downshift tables have only one variant and are never selected
// by power_mode (spec §4.1, preserved asymmetry -- see DESIGN.md).
var (
	table12Normal = [5]int{15, 20, 30, 45, 60}
	table23Normal = [5]int{35, 45, 60, 80, 100}
	table34Normal = [5]int{55, 65, 85, 110, 130}

	table12Power = [5]int{20, 30, 45, 60, 75}
	table23Power = [5]int{45, 60, 80, 100, 120}
	table34Power = [5]int{70, 85, 110, 130, 150}

	table21Down = [5]int{10, 12, 18, 25, 35}
	table32Down = [5]int{28, 35, 48, 65, 80}
	table43Down = [5]int{48, 55, 72, 95, 115}
)

func table12(powerMode bool) [5]int {
	if powerMode {
		return table12Power
	}
	return table12Normal
}

func table23(powerMode bool) [5]int {
	if powerMode {
		return table23Power
	}
	return table23Normal
}

func table34(powerMode bool) [5]int {
	if powerMode {
		return table34Power
	}
	return table34Normal
}

// breakpoints are the throttle-percent breakpoints every table shares.
var breakpoints = [5]float64{10, 25, 50, 75, 100}

// interp performs the piecewise-linear lookup described in spec §4.1:
// below the first breakpoint, clamp to T[0]; between breakpoints, linear
// interpolation; integer result truncated toward zero.
func interp(t [5]int, throttle float64) int {
	if throttle <= breakpoints[0] {
		return t[0]
	}
	for i := 1; i < len(breakpoints); i++ {
		if throttle <= breakpoints[i] {
			lo, hi := breakpoints[i-1], breakpoints[i]
			frac := (throttle - lo) / (hi - lo)
			v := float64(t[i-1]) + frac*float64(t[i]-t[i-1])
			return int(v) // truncates toward zero for v >= 0
		}
	}
	return t[len(t)-1]
}
