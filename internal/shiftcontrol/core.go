package shiftcontrol

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/a340e-ecu/shiftctl/internal/clock"
)

// SensorProvider is the core's only source of input. Snapshot must be
// pure from the core's perspective: no blocking, bounded time, and always
// returning the most recently conditioned values (spec §6).
type SensorProvider interface {
	Snapshot() SensorSnapshot
}

// Actuator is the core's only sink. Duty values are whole percent; the
// mapping to PWM frequency is the actuator's concern, not the core's.
type Actuator interface {
	SetGearSolenoids(s1, s2 bool) error
	SetAccumulatorDuty(pct int) error
	SetLockupDuty(pct int) error
}

// Diagnostics is a read-only view of the core suitable for an HTTP/serial
// diagnostic surface. It is copied in at tick end under the Service's
// RWMutex, so readers never observe a partially updated tick.
type Diagnostics struct {
	State        State
	LastSnapshot SensorSnapshot
	SlipPct      float64
	UptimeS      float64
	MaxTempC     float64
	TickCount    int64
}

// Config carries the tunable knobs a bench operator or config file may
// want to override. Zero values fall back to spec-literal defaults, so an
// empty Config still produces a spec-compliant ECU.
type Config struct {
	TickPeriod time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickPeriod <= 0 {
		c.TickPeriod = 20 * time.Millisecond
	}
	return c
}

type commandKind int

const (
	cmdForceGear commandKind = iota
	cmdResetAdaptive
	cmdSetLimp
)

type command struct {
	kind commandKind
	gear int
	limp bool
	done chan struct{}
}

// Service runs the 50 Hz control loop against a SensorProvider and
// Actuator, applying operator commands at the top of the next tick.
type Service struct {
	cfg Config

	sensors  SensorProvider
	actuator Actuator
	clock    clock.Clock

	state    *State
	selector *GearSelector
	sm       *ShiftStateMachine
	adaptive AdaptiveLearner

	commandCh chan command

	mu    sync.RWMutex
	diag  Diagnostics
	start time.Time
}

// New builds a Service. The clock is injected so tests can drive the
// state machine's timing gates deterministically.
func New(cfg Config, sensors SensorProvider, actuator Actuator, clk clock.Clock) *Service {
	cfg = cfg.withDefaults()
	selector := &GearSelector{}
	return &Service{
		cfg:       cfg,
		sensors:   sensors,
		actuator:  actuator,
		clock:     clk,
		state:     NewState(),
		selector:  selector,
		sm:        NewShiftStateMachine(selector),
		commandCh: make(chan command, 4),
	}
}

// Start runs the tick loop until ctx is canceled. It is run-to-completion
// each tick: no suspension points inside a tick (spec §5).
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.start = s.clock.Now()
	s.mu.Unlock()

	ticker := s.clock.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()

	log.Printf("shiftcontrol: started tick_period=%s", s.cfg.TickPeriod)

	for {
		select {
		case <-ctx.Done():
			log.Printf("shiftcontrol: stopping")
			return ctx.Err()
		case cmd := <-s.commandCh:
			s.applyCommand(cmd)
			if cmd.done != nil {
				close(cmd.done)
			}
		case now := <-ticker.C():
			s.tick(now)
		}
	}
}

func (s *Service) applyCommand(cmd command) {
	switch cmd.kind {
	case cmdForceGear:
		s1, s2 := executeShiftSolenoids(cmd.gear)
		s.state.CurrentGear = cmd.gear
		s.state.TargetGear = cmd.gear
		s.state.ShiftPhase = PhaseStable
		s.state.TotalShifts++
		if err := s.actuator.SetGearSolenoids(s1, s2); err != nil {
			log.Printf("shiftcontrol: force_gear actuator write failed: %v", err)
		}
	case cmdResetAdaptive:
		s.state.ShiftQualityOffset = [3]int{}
		s.state.ShiftCount = [3]int{}
	case cmdSetLimp:
		s.state.LimpMode = cmd.limp
	}
}

// tick runs exactly one control cycle: sensor snapshot -> selector ->
// state machine -> pressure -> lockup -> actuator writes (spec §5's
// ordering guarantee).
func (s *Service) tick(now time.Time) {
	nowMs := now.UnixMilli()
	snap := s.sensors.Snapshot()

	if s.state.CurrentGear < 1 || s.state.CurrentGear > 4 {
		// GearInvalid: an invariant violation trips limp mode (spec §7).
		log.Printf("shiftcontrol: invariant violation current_gear=%d, forcing limp mode", s.state.CurrentGear)
		s.state.LimpMode = true
		s.state.CurrentGear = 3
	}

	episodeClosed := s.sm.Advance(s.state, snap, nowMs)
	if episodeClosed && !s.state.LimpMode {
		s.adaptive.Update(s.state, s.state.preShiftGear, s.state.kickdownDuringEpisode, snap.ThrottlePct, s.state.LastShiftDurationMs)
	}
	if s.state.ShiftPhase == PhaseStable {
		s.state.preShiftGear = 0
		s.state.kickdownDuringEpisode = false
	}

	s.state.AccDutyPct = ComputeAccumulatorDuty(s.state, snap)
	dutyPct, engaged := ComputeLockup(s.state, snap)
	s.state.LockupDutyPct = dutyPct
	s.state.LockupEngaged = engaged

	s1, s2 := executeShiftSolenoids(s.state.CurrentGear)
	if err := s.actuator.SetGearSolenoids(s1, s2); err != nil {
		log.Printf("shiftcontrol: actuator gear write failed: %v", err)
	}
	if err := s.actuator.SetAccumulatorDuty(s.state.AccDutyPct); err != nil {
		log.Printf("shiftcontrol: actuator accumulator write failed: %v", err)
	}
	if err := s.actuator.SetLockupDuty(s.state.LockupDutyPct); err != nil {
		log.Printf("shiftcontrol: actuator lockup write failed: %v", err)
	}

	s.publishDiagnostics(now, snap)
}

func (s *Service) publishDiagnostics(now time.Time, snap SensorSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diag.TickCount++
	s.diag.State = *s.state
	s.diag.LastSnapshot = snap
	s.diag.SlipPct = ComputeSlip(s.state.CurrentGear, snap.EngineRPM, snap.OutputRPM)
	s.diag.UptimeS = now.Sub(s.start).Seconds()
	if snap.FluidTempC > s.diag.MaxTempC {
		s.diag.MaxTempC = snap.FluidTempC
	}
}

// Snapshot returns a read-only diagnostic view. Safe to call from any
// goroutine; the underlying state is copied under a lock at tick end so
// callers never observe torn field updates (spec §5).
func (s *Service) Snapshot() Diagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diag
}

// ForceGear bypasses the state machine and immediately commands the given
// gear (spec §6 operator commands). Intended for bench use.
func (s *Service) ForceGear(ctx context.Context, gear int) error {
	if gear < 1 || gear > 4 {
		return fmt.Errorf("shiftcontrol: invalid gear %d", gear)
	}
	return s.sendCommand(ctx, command{kind: cmdForceGear, gear: gear})
}

// ResetAdaptive zeroes all learned trims and shift counts.
func (s *Service) ResetAdaptive(ctx context.Context) error {
	return s.sendCommand(ctx, command{kind: cmdResetAdaptive})
}

// SetLimp latches or clears limp mode.
func (s *Service) SetLimp(ctx context.Context, limp bool) error {
	return s.sendCommand(ctx, command{kind: cmdSetLimp, limp: limp})
}

func (s *Service) sendCommand(ctx context.Context, cmd command) error {
	cmd.done = make(chan struct{})
	select {
	case s.commandCh <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
