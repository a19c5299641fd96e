package adc

// FluidTempC converts a temperature-sender channel voltage to degrees
// Celsius using the linear sender curve named in spec §6:
// °C from ADC voltage (v - 0.5) * 100.
func FluidTempC(volts float64) float64 {
	return (volts - 0.5) * 100
}

// ThrottlePct converts a throttle-position-sensor channel voltage (0-5V
// rail) to a percentage, clamped to [0,100].
func ThrottlePct(volts float64) float64 {
	pct := volts / 5.0 * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
