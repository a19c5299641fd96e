// Command ecuctl is the A340E shift-control ECU's entry point: it loads
// config, wires sensors/actuator/core/diagnostics together, and runs until
// signaled to stop.
package main

import (
	"context"
	"flag"
	"log"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a340e-ecu/shiftctl/internal/actuator"
	"github.com/a340e-ecu/shiftctl/internal/clock"
	"github.com/a340e-ecu/shiftctl/internal/config"
	"github.com/a340e-ecu/shiftctl/internal/console"
	"github.com/a340e-ecu/shiftctl/internal/i2c"
	"github.com/a340e-ecu/shiftctl/internal/scenario"
	"github.com/a340e-ecu/shiftctl/internal/sensors"
	"github.com/a340e-ecu/shiftctl/internal/shiftcontrol"
	"github.com/a340e-ecu/shiftctl/internal/web"
	"github.com/a340e-ecu/shiftctl/internal/wifi"
)

// sensorPoller is satisfied by both sensors.Provider (real hardware) and
// scenario.Player (scripted bench timeline): the tick loop below owns
// sampling them, the shiftcontrol core only ever reads Snapshot.
type sensorPoller interface {
	shiftcontrol.SensorProvider
	Poll() error
}

func main() {
	var configPath string
	var scenarioPath string
	var scenarioLoop bool
	flag.StringVar(&configPath, "config", "./ecu.yaml", "path to YAML config")
	flag.StringVar(&scenarioPath, "scenario", "", "path to a bench scenario YAML script; if set, runs against the script instead of real sensors")
	flag.BoolVar(&scenarioLoop, "scenario-loop", false, "loop the bench scenario instead of holding its final state")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clk := clock.Real()

	var poller sensorPoller
	var closeSensors func()
	if scenarioPath != "" {
		script, err := scenario.LoadScript(scenarioPath)
		if err != nil {
			log.Fatalf("scenario load failed: %v", err)
		}
		scn, err := scenario.New(script)
		if err != nil {
			log.Fatalf("scenario validate failed: %v", err)
		}
		log.Printf("ecuctl: running bench scenario %s duration=%s loop=%t", scenarioPath, scn.Duration(), scenarioLoop)
		poller = scenario.NewPlayer(scn, clk, scenarioLoop)
		closeSensors = func() {}
	} else {
		bus, err := i2c.Open(cfg.I2C.BusPath)
		if err != nil {
			log.Fatalf("i2c open failed: %v", err)
		}
		sensorCfg := sensors.Config{
			SpeedPin:              cfg.GPIO.SpeedPin,
			EngineRPMPin:          cfg.GPIO.EngineRPMPin,
			OutputRPMPin:          cfg.GPIO.OutputRPMPin,
			BrakePin:              cfg.GPIO.BrakePin,
			OverdrivePin:          cfg.GPIO.OverdrivePin,
			PowerModePin:          cfg.GPIO.PowerModePin,
			FluidTempADCChannel:   cfg.Sensors.FluidTempADCChannel,
			ThrottleADCChannel:    cfg.Sensors.ThrottleADCChannel,
			EngineRPMPulsesPerRev: cfg.Sensors.EngineRPMPulsesPerRev,
			OutputRPMPulsesPerRev: cfg.Sensors.OutputRPMPulsesPerRev,
			SpeedPulsesPerKmh:     cfg.Sensors.SpeedPulsesPerKmh,
			ThrottleEMAAlpha:      cfg.Sensors.ThrottleEMAAlpha,
			SpeedEMAAlpha:         cfg.Sensors.SpeedEMAAlpha,
			SpeedStaleUs:          cfg.Sensors.SpeedStaleUs,
			OutputStaleUs:         cfg.Sensors.OutputStaleUs,
			EngineStaleUs:         cfg.Sensors.EngineStaleUs,
		}
		provider, err := sensors.Open(sensorCfg, bus)
		if err != nil {
			_ = bus.Close()
			log.Fatalf("sensors open failed: %v", err)
		}
		poller = provider
		closeSensors = func() {
			_ = provider.Close()
			_ = bus.Close()
		}
	}
	defer closeSensors()

	act, err := actuator.New(actuator.Config{
		Solenoid1Pin:          cfg.GPIO.Solenoid1Pin,
		Solenoid2Pin:          cfg.GPIO.Solenoid2Pin,
		AccumulatorPWMChannel: cfg.GPIO.AccumulatorPWMChannel,
		LockupPWMChannel:      cfg.GPIO.LockupPWMChannel,
		PWMFrequencyHz:        cfg.GPIO.PWMFrequencyHz,
	})
	if err != nil {
		log.Fatalf("actuator open failed: %v", err)
	}

	core := shiftcontrol.New(shiftcontrol.Config{TickPeriod: cfg.Tick.Period}, poller, act, clk)

	go pollSensors(ctx, poller, clk, cfg.Tick.Period)

	status := web.NewStatus(core)
	logs := web.NewLogBuffer(500)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	go func() {
		if err := web.Serve(ctx, cfg.Web.ListenAddr, status, core, logs); err != nil && ctx.Err() == nil {
			log.Printf("ecuctl: web server stopped: %v", err)
		}
	}()

	consoleSvc := console.New(console.Config{Device: cfg.Console.Device, BaudRate: cfg.Console.BaudRate}, core, core)
	if err := consoleSvc.Start(ctx); err != nil {
		log.Printf("ecuctl: console start failed: %v", err)
	}
	defer consoleSvc.Close()

	bringUpWiFi(cfg)

	log.Printf("ecuctl: started tick_period=%s web=%s console=%s", cfg.Tick.Period, cfg.Web.ListenAddr, cfg.Console.Device)

	coreErrCh := make(chan error, 1)
	go func() { coreErrCh <- core.Start(ctx) }()

	select {
	case <-ctx.Done():
	case err := <-coreErrCh:
		if err != nil && ctx.Err() == nil {
			log.Printf("ecuctl: control loop stopped: %v", err)
		}
	}

	log.Printf("ecuctl: stopping")
}

// pollSensors samples the sensor source once per tick, ahead of the
// control loop reading Snapshot, so the two stay on the same cadence
// without the core ever blocking on I/O itself (spec §5/§6 division).
func pollSensors(ctx context.Context, poller sensorPoller, clk clock.Clock, period time.Duration) {
	if period <= 0 {
		period = 20 * time.Millisecond
	}
	ticker := clk.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := poller.Poll(); err != nil {
				log.Printf("ecuctl: sensor poll: %v", err)
			}
		}
	}
}

// bringUpWiFi is best-effort: a failed hotspot or uplink must never
// prevent the control loop from running.
func bringUpWiFi(cfg config.Config) {
	switch cfg.WiFi.Mode {
	case "ap", "ap_client":
		if err := wifi.SetupAP(cfg.WiFi.SSID, cfg.WiFi.Passphrase, "10.10.10.1/24"); err != nil {
			log.Printf("ecuctl: wifi ap setup failed: %v", err)
		}
	}
	switch cfg.WiFi.Mode {
	case "client", "ap_client":
		if err := wifi.ConnectClient(cfg.WiFi.SSID, cfg.WiFi.Passphrase); err != nil {
			log.Printf("ecuctl: wifi client connect failed: %v", err)
		}
	}
}
