//go:build !linux

package sensors

import "fmt"

type digitalInput interface {
	Read() (bool, error)
	Close() error
}

func openDigitalInput(pin int, consumer string) (digitalInput, error) {
	return nil, fmt.Errorf("sensors: gpio unsupported on this platform")
}
