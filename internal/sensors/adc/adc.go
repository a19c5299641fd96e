// Package adc drives an ADS1115-class 4-channel I2C analog-to-digital
// converter, grounded on the register-read pattern of this
// codebase's I2C sensor drivers. It reports raw channel voltages; turning
// a voltage into an engineering unit (fluid temperature, throttle
// position) is the caller's job (see convert.go).
package adc

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/a340e-ecu/shiftctl/internal/i2c"
)

const (
	addrDefault = 0x48

	regConversion = 0x00
	regConfig     = 0x01

	// fullScaleVolts is the PGA full-scale range selected below (±4.096V),
	// safely above the 0-5V sensor rails this ECU reads.
	fullScaleVolts = 4.096
)

var sleep = time.Sleep

type regIO interface {
	Write(p []byte) error
	ReadReg(reg byte, dst []byte) error
}

// Device is a 4-channel single-ended ADC.
type Device struct {
	dev regIO
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("adc: dev is nil")
	}
	return &Device{dev: dev}, nil
}

// ReadChannelVolts triggers a single-shot conversion on the given
// single-ended channel (0..3) and returns the resulting voltage.
func (d *Device) ReadChannelVolts(channel int) (float64, error) {
	if channel < 0 || channel > 3 {
		return 0, fmt.Errorf("adc: invalid channel %d", channel)
	}

	// OS=1 (start) | MUX=100+channel (single-ended AINx vs GND) |
	// PGA=001 (+-4.096V) | MODE=1 (single-shot) | DR=100 (128SPS) |
	// COMP_QUE=11 (comparator disabled).
	mux := uint16(4+channel) & 0x7
	cfg := uint16(1)<<15 | mux<<12 | uint16(1)<<9 | uint16(1)<<8 | uint16(4)<<5 | uint16(3)

	buf := make([]byte, 3)
	buf[0] = regConfig
	binary.BigEndian.PutUint16(buf[1:], cfg)
	if err := d.dev.Write(buf); err != nil {
		return 0, fmt.Errorf("adc: write config failed: %w", err)
	}

	// 128 SPS is ~7.8ms/sample; give it margin.
	sleep(9 * time.Millisecond)

	raw := make([]byte, 2)
	if err := d.dev.ReadReg(regConversion, raw); err != nil {
		return 0, fmt.Errorf("adc: read conversion failed: %w", err)
	}
	counts := int16(binary.BigEndian.Uint16(raw))
	volts := float64(counts) / 32768.0 * fullScaleVolts
	return volts, nil
}
