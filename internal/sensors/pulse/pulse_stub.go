//go:build !linux

package pulse

import "fmt"

// Channel is the non-Linux stand-in; it never reports edges, so its
// consumer sees a permanently stale (zero) period, which is exactly the
// spec's defined behavior for a dead pulse source.
type Channel struct{}

func Open(pin int, consumer string) (*Channel, error) {
	return nil, fmt.Errorf("pulse: gpio unsupported on this platform")
}

func (c *Channel) PeriodUs() int64          { return 0 }
func (c *Channel) AgeUs(nowUs int64) int64  { return nowUs }
func (c *Channel) NowUs() int64             { return 0 }
func (c *Channel) Close() error             { return nil }
