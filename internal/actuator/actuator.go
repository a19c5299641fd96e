// Package actuator drives the physical transmission outputs: the two
// binary gear-select solenoids and the two duty-modulated (accumulator,
// lockup) solenoids. It has no notion of gears, shifts, or duty tables --
// it only knows how to assert GPIO lines and PWM channels, and is called
// once per control tick by the shiftcontrol orchestrator with already
// computed values.
package actuator

import (
	"fmt"
)

// Config names the physical wiring: which BCM GPIO pins drive the two
// gear-select solenoids, and which sysfs PWM channels drive the
// accumulator and lockup solenoids.
type Config struct {
	Solenoid1Pin int
	Solenoid2Pin int

	AccumulatorPWMChannel int
	LockupPWMChannel      int

	// PWMFrequencyHz is fixed at the hardware layer (spec: 300 Hz) but is
	// configurable so a bench rig with different solenoid hardware isn't
	// hardcoded against.
	PWMFrequencyHz int
}

func (c Config) withDefaults() Config {
	if c.PWMFrequencyHz <= 0 {
		c.PWMFrequencyHz = 300
	}
	return c
}

// Service owns the four solenoid outputs. All setters are safe to call
// from a single control-loop goroutine; Service does no internal locking
// of its own because the tick orchestrator already serializes writes to
// tick end (spec §5's ordering guarantee).
type Service struct {
	cfg Config

	sol1 binaryDriver
	sol2 binaryDriver
	acc  pwmDriver
	lock pwmDriver
}

// New opens the four underlying hardware drivers. On any failure it closes
// whatever was already opened and returns the error -- there is no partial
// actuator, since a transmission with only the accumulator solenoid wired
// is not safely drivable.
func New(cfg Config) (*Service, error) {
	cfg = cfg.withDefaults()

	sol1, err := openSolenoidGPIOFn(cfg.Solenoid1Pin, "shiftctl-sol1")
	if err != nil {
		return nil, fmt.Errorf("actuator: open solenoid 1: %w", err)
	}
	sol2, err := openSolenoidGPIOFn(cfg.Solenoid2Pin, "shiftctl-sol2")
	if err != nil {
		_ = sol1.Close()
		return nil, fmt.Errorf("actuator: open solenoid 2: %w", err)
	}
	acc, err := openPWMChannelFn(cfg.AccumulatorPWMChannel)
	if err != nil {
		_ = sol1.Close()
		_ = sol2.Close()
		return nil, fmt.Errorf("actuator: open accumulator pwm: %w", err)
	}
	if err := acc.SetFrequencyHz(cfg.PWMFrequencyHz); err != nil {
		_ = sol1.Close()
		_ = sol2.Close()
		_ = acc.Close()
		return nil, fmt.Errorf("actuator: set accumulator pwm frequency: %w", err)
	}
	lock, err := openPWMChannelFn(cfg.LockupPWMChannel)
	if err != nil {
		_ = sol1.Close()
		_ = sol2.Close()
		_ = acc.Close()
		return nil, fmt.Errorf("actuator: open lockup pwm: %w", err)
	}
	if err := lock.SetFrequencyHz(cfg.PWMFrequencyHz); err != nil {
		_ = sol1.Close()
		_ = sol2.Close()
		_ = acc.Close()
		_ = lock.Close()
		return nil, fmt.Errorf("actuator: set lockup pwm frequency: %w", err)
	}

	// Boot with both duty-modulated solenoids at their firmest,
	// disengaged state until the first tick commands otherwise.
	_ = acc.SetDutyPercent(0)
	_ = lock.SetDutyPercent(0)

	return &Service{cfg: cfg, sol1: sol1, sol2: sol2, acc: acc, lock: lock}, nil
}

// SetGearSolenoids writes the S1/S2 state for the currently commanded
// gear. It always writes both lines together; there is no intermediate
// solenoid sequencing (spec §4.2).
func (s *Service) SetGearSolenoids(sol1, sol2 bool) error {
	if err := s.sol1.SetHigh(sol1); err != nil {
		return fmt.Errorf("actuator: set solenoid 1: %w", err)
	}
	if err := s.sol2.SetHigh(sol2); err != nil {
		return fmt.Errorf("actuator: set solenoid 2: %w", err)
	}
	return nil
}

// SetAccumulatorDuty writes the accumulator solenoid PWM duty in whole
// percent. Callers are expected to have already clamped to [15,85]
// (spec §4.3); this layer clamps again to [0,100] as a hardware backstop.
func (s *Service) SetAccumulatorDuty(pct int) error {
	if err := s.acc.SetDutyPercent(clampPercent(pct)); err != nil {
		return fmt.Errorf("actuator: set accumulator duty: %w", err)
	}
	return nil
}

// SetLockupDuty writes the lockup clutch solenoid PWM duty in whole
// percent. Callers are expected to pass one of {0,50,75,95} (spec §4.4);
// this layer clamps to [0,100] as a hardware backstop.
func (s *Service) SetLockupDuty(pct int) error {
	if err := s.lock.SetDutyPercent(clampPercent(pct)); err != nil {
		return fmt.Errorf("actuator: set lockup duty: %w", err)
	}
	return nil
}

func clampPercent(pct int) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return float64(pct)
}

// Close de-energizes both solenoids and disables both PWM channels,
// leaving both duty outputs at 0% (firmest accumulator setting, lockup
// disengaged), the same state New boots into.
func (s *Service) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(s.sol1.Close())
	record(s.sol2.Close())
	record(s.acc.Close())
	record(s.lock.Close())
	return firstErr
}
