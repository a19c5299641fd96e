//go:build linux

package actuator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openSolenoidGPIO drives the given BCM GPIO as a digital output using the
// Linux GPIO character device (libgpiod).
//
// The two gear-select solenoids are binary (energized/de-energized) --
// §4.2.1 maps each of the four gears directly to an S1/S2 bit pattern, with
// no intermediate sequencing. This driver is deliberately dumb: it knows
// nothing about gears, only how to assert a line high or low.
func openSolenoidGPIO(pin int, consumer string) (binaryDriver, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("actuator: invalid gpio pin %d", pin)
	}

	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodSolenoid{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("actuator: gpio line %q not found (or busy)", lineName)
}

var openSolenoidGPIOFn = openSolenoidGPIO

type gpiodSolenoid struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodSolenoid) SetHigh(v bool) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("actuator: gpio driver not initialized")
	}
	val := 0
	if v {
		val = 1
	}
	return g.line.SetValue(val)
}

func (g *gpiodSolenoid) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	// De-energize on shutdown rather than leave a solenoid latched.
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
