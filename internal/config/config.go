// Package config loads the ECU's YAML configuration file: shift-control
// timing, GPIO/PWM wiring, sensor calibration, and the diagnostic
// web/console/wifi surfaces. Every field has a spec-compliant default, so
// an empty or partial file still produces a working configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tick    TickConfig    `yaml:"tick"`
	GPIO    GPIOConfig    `yaml:"gpio"`
	Sensors SensorsConfig `yaml:"sensors"`
	I2C     I2CConfig     `yaml:"i2c"`
	Web     WebConfig     `yaml:"web"`
	Console ConsoleConfig `yaml:"console"`
	WiFi    WiFiConfig    `yaml:"wifi"`
}

type TickConfig struct {
	Period time.Duration `yaml:"period"`
}

// GPIOConfig names every GPIO/PWM line the ECU drives or reads. Pin
// numbers are BCM GPIO numbers on the target board.
type GPIOConfig struct {
	Solenoid1Pin          int `yaml:"solenoid1_pin"`
	Solenoid2Pin          int `yaml:"solenoid2_pin"`
	AccumulatorPWMChannel int `yaml:"accumulator_pwm_channel"`
	LockupPWMChannel      int `yaml:"lockup_pwm_channel"`
	PWMFrequencyHz        int `yaml:"pwm_frequency_hz"`

	SpeedPin     int `yaml:"speed_pin"`
	EngineRPMPin int `yaml:"engine_rpm_pin"`
	OutputRPMPin int `yaml:"output_rpm_pin"`
	BrakePin     int `yaml:"brake_pin"`
	OverdrivePin int `yaml:"overdrive_pin"`
	PowerModePin int `yaml:"power_mode_pin"`
}

type SensorsConfig struct {
	FluidTempADCChannel int `yaml:"fluid_temp_adc_channel"`
	ThrottleADCChannel  int `yaml:"throttle_adc_channel"`

	EngineRPMPulsesPerRev float64 `yaml:"engine_rpm_pulses_per_rev"`
	OutputRPMPulsesPerRev float64 `yaml:"output_rpm_pulses_per_rev"`
	SpeedPulsesPerKmh     float64 `yaml:"speed_pulses_per_kmh"`

	ThrottleEMAAlpha float64 `yaml:"throttle_ema_alpha"`
	SpeedEMAAlpha    float64 `yaml:"speed_ema_alpha"`

	SpeedStaleUs  int64 `yaml:"speed_stale_us"`
	OutputStaleUs int64 `yaml:"output_stale_us"`
	EngineStaleUs int64 `yaml:"engine_stale_us"`
}

type I2CConfig struct {
	BusPath string `yaml:"bus_path"`
}

type WebConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type ConsoleConfig struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`
}

// WiFiConfig configures the bench diagnostic hotspot. Mode "ap" runs a
// standalone access point; "client" joins an existing network; "ap_client"
// does both, optionally routing the AP's traffic out the client uplink.
type WiFiConfig struct {
	Mode                       string `yaml:"mode"`
	SSID                       string `yaml:"ssid"`
	Passphrase                 string `yaml:"passphrase"`
	UplinkEnable               bool   `yaml:"uplink_enable"`
	InternetPassthroughEnable  bool   `yaml:"internet_passthrough_enable"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// The lockup PWM channel defaults to 1 so it differs from the
	// accumulator's channel 0; it is set before decoding so an explicit
	// value in the file still takes precedence.
	cfg := Config{GPIO: GPIOConfig{LockupPWMChannel: 1}}
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	// An empty file decodes as io.EOF and leaves every field at its default.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config contains unknown fields: %w", unwrapYAMLTypeError(err))
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func unwrapYAMLTypeError(err error) error {
	if te, ok := err.(*yaml.TypeError); ok && len(te.Errors) > 0 {
		return fmt.Errorf("%s", te.Errors[0])
	}
	return err
}

func (cfg *Config) applyDefaults() {
	if cfg.Tick.Period <= 0 {
		cfg.Tick.Period = 20 * time.Millisecond
	}

	if cfg.GPIO.Solenoid1Pin == 0 {
		cfg.GPIO.Solenoid1Pin = 17
	}
	if cfg.GPIO.Solenoid2Pin == 0 {
		cfg.GPIO.Solenoid2Pin = 27
	}
	if cfg.GPIO.PWMFrequencyHz <= 0 {
		cfg.GPIO.PWMFrequencyHz = 300
	}
	if cfg.GPIO.SpeedPin == 0 {
		cfg.GPIO.SpeedPin = 5
	}
	if cfg.GPIO.EngineRPMPin == 0 {
		cfg.GPIO.EngineRPMPin = 6
	}
	if cfg.GPIO.OutputRPMPin == 0 {
		cfg.GPIO.OutputRPMPin = 13
	}
	if cfg.GPIO.BrakePin == 0 {
		cfg.GPIO.BrakePin = 19
	}
	if cfg.GPIO.OverdrivePin == 0 {
		cfg.GPIO.OverdrivePin = 26
	}
	if cfg.GPIO.PowerModePin == 0 {
		cfg.GPIO.PowerModePin = 21
	}

	if cfg.Sensors.EngineRPMPulsesPerRev <= 0 {
		cfg.Sensors.EngineRPMPulsesPerRev = 1
	}
	if cfg.Sensors.OutputRPMPulsesPerRev <= 0 {
		cfg.Sensors.OutputRPMPulsesPerRev = 1
	}
	if cfg.Sensors.SpeedPulsesPerKmh <= 0 {
		cfg.Sensors.SpeedPulsesPerKmh = 10
	}
	if cfg.Sensors.ThrottleEMAAlpha <= 0 {
		cfg.Sensors.ThrottleEMAAlpha = 0.3
	}
	if cfg.Sensors.SpeedEMAAlpha <= 0 {
		cfg.Sensors.SpeedEMAAlpha = 0.3
	}
	if cfg.Sensors.SpeedStaleUs <= 0 {
		cfg.Sensors.SpeedStaleUs = 1_000_000
	}
	if cfg.Sensors.OutputStaleUs <= 0 {
		cfg.Sensors.OutputStaleUs = 1_000_000
	}
	if cfg.Sensors.EngineStaleUs <= 0 {
		cfg.Sensors.EngineStaleUs = 500_000
	}

	if cfg.I2C.BusPath == "" {
		cfg.I2C.BusPath = "/dev/i2c-1"
	}

	if cfg.Web.ListenAddr == "" {
		cfg.Web.ListenAddr = ":8080"
	}

	if cfg.Console.Device == "" {
		cfg.Console.Device = "/dev/ttyUSB0"
	}
	if cfg.Console.BaudRate <= 0 {
		cfg.Console.BaudRate = 115200
	}

	if cfg.WiFi.Mode == "" {
		cfg.WiFi.Mode = "ap"
	}
	if cfg.WiFi.SSID == "" {
		cfg.WiFi.SSID = "A340E-ECU"
	}
}

func (cfg *Config) validate() error {
	switch cfg.WiFi.Mode {
	case "ap":
		if cfg.WiFi.UplinkEnable {
			return fmt.Errorf("wifi.uplink_enable must be false when wifi.mode is 'ap'")
		}
	case "ap_client":
		if !cfg.WiFi.UplinkEnable {
			return fmt.Errorf("wifi.uplink_enable must be true when wifi.mode is 'ap_client'")
		}
	case "client":
		if !cfg.WiFi.UplinkEnable {
			return fmt.Errorf("wifi.uplink_enable must be true when wifi.mode is 'client'")
		}
		if cfg.WiFi.InternetPassthroughEnable {
			return fmt.Errorf("wifi.internet_passthrough_enable is only supported when wifi.mode is 'ap_client'")
		}
	default:
		return fmt.Errorf("wifi.mode must be one of ap, client, ap_client")
	}

	if containsControlChar(cfg.WiFi.SSID) {
		return fmt.Errorf("wifi.ssid must not contain control characters")
	}
	if containsControlChar(cfg.WiFi.Passphrase) {
		return fmt.Errorf("wifi.passphrase must not contain control characters")
	}

	if cfg.GPIO.Solenoid1Pin == cfg.GPIO.Solenoid2Pin {
		return fmt.Errorf("gpio.solenoid1_pin and gpio.solenoid2_pin must differ")
	}
	if cfg.GPIO.AccumulatorPWMChannel == cfg.GPIO.LockupPWMChannel {
		return fmt.Errorf("gpio.accumulator_pwm_channel and gpio.lockup_pwm_channel must differ")
	}

	return nil
}

func containsControlChar(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}
