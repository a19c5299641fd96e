//go:build !linux

package actuator

import "fmt"

type unsupportedPWM struct{}

func openPWMChannel(channel int) (pwmDriver, error) {
	return nil, fmt.Errorf("actuator: pwm unsupported on this platform")
}

var openPWMChannelFn = openPWMChannel

func (u *unsupportedPWM) SetFrequencyHz(hz int) error {
	return fmt.Errorf("actuator: pwm unsupported")
}
func (u *unsupportedPWM) SetDutyPercent(p float64) error {
	return fmt.Errorf("actuator: pwm unsupported")
}
func (u *unsupportedPWM) Close() error { return nil }
