// Package sensors implements the SensorProvider the core control loop
// consumes: it turns raw pulse-period captures and ADC channel voltages
// into the filtered, clamped SensorSnapshot the core expects, and is the
// only place in this module where staleness, EMA filtering, and unit
// conversion live (spec §6).
package sensors

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/a340e-ecu/shiftctl/internal/i2c"
	"github.com/a340e-ecu/shiftctl/internal/sensors/adc"
	"github.com/a340e-ecu/shiftctl/internal/sensors/pulse"
	"github.com/a340e-ecu/shiftctl/internal/shiftcontrol"
)

// pulseSource is the subset of pulse.Channel's API the conditioner needs;
// satisfied by both the Linux and stub Channel implementations.
type pulseSource interface {
	PeriodUs() int64
	AgeUs(nowUs int64) int64
	NowUs() int64
	Close() error
}

type adcSource interface {
	ReadChannelVolts(channel int) (float64, error)
}

// Config names the physical wiring and the calibration/filtering
// constants the conditioner applies. Pulse and calibration constants are
// bench-tunable; the two staleness bounds are spec-literal (§5).
type Config struct {
	SpeedPin      int
	EngineRPMPin  int
	OutputRPMPin  int
	BrakePin      int
	OverdrivePin  int
	PowerModePin  int

	FluidTempADCChannel int
	ThrottleADCChannel  int

	EngineRPMPulsesPerRev float64
	OutputRPMPulsesPerRev float64
	SpeedPulsesPerKmh     float64

	ThrottleEMAAlpha float64
	SpeedEMAAlpha    float64

	SpeedStaleUs  int64
	OutputStaleUs int64
	EngineStaleUs int64
}

func (c Config) withDefaults() Config {
	if c.EngineRPMPulsesPerRev <= 0 {
		c.EngineRPMPulsesPerRev = 1
	}
	if c.OutputRPMPulsesPerRev <= 0 {
		c.OutputRPMPulsesPerRev = 1
	}
	if c.SpeedPulsesPerKmh <= 0 {
		c.SpeedPulsesPerKmh = 10
	}
	if c.ThrottleEMAAlpha <= 0 {
		c.ThrottleEMAAlpha = 0.3
	}
	if c.SpeedEMAAlpha <= 0 {
		c.SpeedEMAAlpha = 0.3
	}
	if c.SpeedStaleUs <= 0 {
		c.SpeedStaleUs = 1_000_000
	}
	if c.OutputStaleUs <= 0 {
		c.OutputStaleUs = 1_000_000
	}
	if c.EngineStaleUs <= 0 {
		c.EngineStaleUs = 500_000
	}
	return c
}

// Provider assembles conditioned SensorSnapshots. It is the sole owner of
// its EMA filter state; Snapshot is safe to call from any goroutine
// because the assembled value is published behind an atomic.Value.
type Provider struct {
	cfg Config

	speed     pulseSource
	engineRPM pulseSource
	outputRPM pulseSource

	adcDev adcSource

	brake     digitalInput
	overdrive digitalInput
	powerMode digitalInput

	mu               sync.Mutex
	filteredThrottle float64
	filteredSpeed    float64
	initialized      bool

	snap atomic.Value
}

// New builds a Provider from already-opened sources, letting tests inject
// fakes without touching real hardware.
func New(cfg Config, speed, engineRPM, outputRPM pulseSource, adcDev adcSource, brake, overdrive, powerMode digitalInput) *Provider {
	p := &Provider{
		cfg:       cfg.withDefaults(),
		speed:     speed,
		engineRPM: engineRPM,
		outputRPM: outputRPM,
		adcDev:    adcDev,
		brake:     brake,
		overdrive: overdrive,
		powerMode: powerMode,
	}
	p.snap.Store(shiftcontrol.SensorSnapshot{})
	return p
}

// Open wires the Provider to real hardware: three pulse-capture GPIO
// lines, three digital GPIO inputs, and an ADC on the given I2C bus.
func Open(cfg Config, bus *i2c.Bus) (*Provider, error) {
	speedCh, err := pulse.Open(cfg.SpeedPin, "shiftctl-speed")
	if err != nil {
		return nil, fmt.Errorf("sensors: open speed pulse: %w", err)
	}
	engineCh, err := pulse.Open(cfg.EngineRPMPin, "shiftctl-engine-rpm")
	if err != nil {
		_ = speedCh.Close()
		return nil, fmt.Errorf("sensors: open engine rpm pulse: %w", err)
	}
	outputCh, err := pulse.Open(cfg.OutputRPMPin, "shiftctl-output-rpm")
	if err != nil {
		_ = speedCh.Close()
		_ = engineCh.Close()
		return nil, fmt.Errorf("sensors: open output rpm pulse: %w", err)
	}

	brake, err := openDigitalInput(cfg.BrakePin, "shiftctl-brake")
	if err != nil {
		_ = speedCh.Close()
		_ = engineCh.Close()
		_ = outputCh.Close()
		return nil, fmt.Errorf("sensors: open brake input: %w", err)
	}
	overdrive, err := openDigitalInput(cfg.OverdrivePin, "shiftctl-od")
	if err != nil {
		_ = speedCh.Close()
		_ = engineCh.Close()
		_ = outputCh.Close()
		_ = brake.Close()
		return nil, fmt.Errorf("sensors: open overdrive input: %w", err)
	}
	powerMode, err := openDigitalInput(cfg.PowerModePin, "shiftctl-power-mode")
	if err != nil {
		_ = speedCh.Close()
		_ = engineCh.Close()
		_ = outputCh.Close()
		_ = brake.Close()
		_ = overdrive.Close()
		return nil, fmt.Errorf("sensors: open power mode input: %w", err)
	}

	adcDev, err := adc.New(bus.Dev(adc.DefaultAddress()))
	if err != nil {
		_ = speedCh.Close()
		_ = engineCh.Close()
		_ = outputCh.Close()
		_ = brake.Close()
		_ = overdrive.Close()
		_ = powerMode.Close()
		return nil, fmt.Errorf("sensors: open adc: %w", err)
	}

	return New(cfg, speedCh, engineCh, outputCh, adcDev, brake, overdrive, powerMode), nil
}

// Poll reads every source once, applies filtering and staleness bounds,
// and publishes a fresh snapshot. Call this once per control tick, before
// the core reads Snapshot().
func (p *Provider) Poll() error {
	throttleVolts, err := p.adcDev.ReadChannelVolts(p.cfg.ThrottleADCChannel)
	if err != nil {
		return fmt.Errorf("sensors: read throttle channel: %w", err)
	}
	fluidVolts, err := p.adcDev.ReadChannelVolts(p.cfg.FluidTempADCChannel)
	if err != nil {
		return fmt.Errorf("sensors: read fluid temp channel: %w", err)
	}

	rawThrottle := adc.ThrottlePct(throttleVolts)
	fluidTempC := adc.FluidTempC(fluidVolts)

	nowUs := p.speed.NowUs()
	speedKmh := p.periodToRate(p.speed, nowUs, p.cfg.SpeedStaleUs, p.cfg.SpeedPulsesPerKmh, false)
	engineRPM := p.periodToRate(p.engineRPM, nowUs, p.cfg.EngineStaleUs, p.cfg.EngineRPMPulsesPerRev, true)
	outputRPM := p.periodToRate(p.outputRPM, nowUs, p.cfg.OutputStaleUs, p.cfg.OutputRPMPulsesPerRev, true)

	brake, err := p.brake.Read()
	if err != nil {
		return fmt.Errorf("sensors: read brake input: %w", err)
	}
	overdrive, err := p.overdrive.Read()
	if err != nil {
		return fmt.Errorf("sensors: read overdrive input: %w", err)
	}
	powerMode, err := p.powerMode.Read()
	if err != nil {
		return fmt.Errorf("sensors: read power mode input: %w", err)
	}

	p.mu.Lock()
	if !p.initialized {
		p.filteredThrottle = rawThrottle
		p.filteredSpeed = speedKmh
		p.initialized = true
	} else {
		p.filteredThrottle = ema(p.filteredThrottle, rawThrottle, p.cfg.ThrottleEMAAlpha)
		p.filteredSpeed = ema(p.filteredSpeed, speedKmh, p.cfg.SpeedEMAAlpha)
	}
	throttle := p.filteredThrottle
	speed := p.filteredSpeed
	p.mu.Unlock()

	p.snap.Store(shiftcontrol.SensorSnapshot{
		ThrottlePct:      clamp(throttle, 0, 100),
		SpeedKmh:         clamp(speed, 0, 250),
		EngineRPM:        clamp(engineRPM, 0, 8000),
		OutputRPM:        outputRPM,
		FluidTempC:       clamp(fluidTempC, -40, 150),
		BrakePressed:     brake,
		OverdriveEnabled: overdrive,
		PowerMode:        powerMode,
	})
	return nil
}

// periodToRate converts a pulse source's measured period to a rate
// (km/h or RPM depending on pulsesPerUnit), returning 0 if the last edge
// is older than the staleness bound (spec §5's SensorStale rule) or if no
// edge has ever been observed.
func (p *Provider) periodToRate(src pulseSource, nowUs int64, staleUs int64, pulsesPerUnit float64, perMinute bool) float64 {
	periodUs := src.PeriodUs()
	if periodUs <= 0 {
		return 0
	}
	if src.AgeUs(nowUs) > staleUs {
		return 0
	}
	hz := 1_000_000.0 / float64(periodUs)
	if perMinute {
		return hz * 60.0 / pulsesPerUnit
	}
	return hz / pulsesPerUnit // pulsesPerUnit calibrated as pulses/sec per km/h
}

// Snapshot implements shiftcontrol.SensorProvider.
func (p *Provider) Snapshot() shiftcontrol.SensorSnapshot {
	return p.snap.Load().(shiftcontrol.SensorSnapshot)
}

// Close releases all underlying hardware sources.
func (p *Provider) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(p.speed.Close())
	record(p.engineRPM.Close())
	record(p.outputRPM.Close())
	record(p.brake.Close())
	record(p.overdrive.Close())
	record(p.powerMode.Close())
	return firstErr
}

func ema(prev, sample, alpha float64) float64 {
	return prev + alpha*(sample-prev)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
