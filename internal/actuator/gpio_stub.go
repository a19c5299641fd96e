//go:build !linux

package actuator

import "fmt"

// Stub implementation for non-Linux platforms (bench simulation, CI).
func openSolenoidGPIO(pin int, consumer string) (binaryDriver, error) {
	return nil, fmt.Errorf("actuator: gpio unsupported on this platform")
}

var openSolenoidGPIOFn = openSolenoidGPIO
