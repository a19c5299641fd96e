//go:build linux

package sensors

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

type digitalInput interface {
	Read() (bool, error)
	Close() error
}

type gpiodInput struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func openDigitalInput(pin int, consumer string) (digitalInput, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("sensors: invalid gpio pin %d", pin)
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
		line, err := chip.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithConsumer(consumer))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodInput{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("sensors: gpio line %q not found (or busy)", lineName)
}

func (g *gpiodInput) Read() (bool, error) {
	v, err := g.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (g *gpiodInput) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
