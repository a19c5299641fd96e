//go:build linux

// Package pulse captures the three interrupt-sourced frequency inputs
// (vehicle speed, engine RPM, output shaft RPM) as GPIO edge events on a
// Linux GPIO character device, updating a lock-free single-writer period
// on each rising edge (spec §5's "interrupt-sourced inputs" model).
package pulse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Channel tracks the most recent edge timestamp and inter-edge period for
// one pulse input, in microseconds on a monotonic clock. All fields are
// written only by the GPIO event callback (single writer) and read with
// atomics from the conditioner goroutine.
type Channel struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line

	lastEdgeUs atomic.Int64
	periodUs   atomic.Int64

	epoch time.Time
}

// Open requests the given BCM GPIO pin as an edge interrupt source (both
// edges are requested; only rising edges update the period).
func Open(pin int, consumer string) (*Channel, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("pulse: invalid gpio pin %d", pin)
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

	c := &Channel{epoch: time.Now()}

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
		line, err := chip.RequestLine(offset,
			gpiocdev.WithConsumer(consumer),
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(c.handleEvent),
		)
		if err != nil {
			_ = chip.Close()
			continue
		}
		c.chip, c.line = chip, line
		return c, nil
	}

	return nil, fmt.Errorf("pulse: gpio line %q not found (or busy)", lineName)
}

func (c *Channel) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventRisingEdge {
		return
	}
	nowUs := time.Since(c.epoch).Microseconds()
	last := c.lastEdgeUs.Swap(nowUs)
	if last != 0 {
		if period := nowUs - last; period > 0 {
			c.periodUs.Store(period)
		}
	}
}

// PeriodUs returns the most recently measured inter-edge period.
func (c *Channel) PeriodUs() int64 { return c.periodUs.Load() }

// AgeUs returns how long ago the last edge was observed.
func (c *Channel) AgeUs(nowUs int64) int64 {
	last := c.lastEdgeUs.Load()
	if last == 0 {
		return nowUs
	}
	return nowUs - last
}

// NowUs returns microseconds since this channel's epoch, for computing AgeUs.
func (c *Channel) NowUs() int64 { return time.Since(c.epoch).Microseconds() }

func (c *Channel) Close() error {
	if c == nil || c.line == nil {
		return nil
	}
	err := c.line.Close()
	c.line = nil
	if c.chip != nil {
		_ = c.chip.Close()
		c.chip = nil
	}
	return err
}
