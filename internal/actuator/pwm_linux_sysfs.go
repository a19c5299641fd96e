//go:build linux

package actuator

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// sysfsPWM drives a hardware PWM channel via /sys/class/pwm.
//
// Two independent channels are opened this way: the accumulator solenoid
// duty and the lockup clutch duty, each at the fixed 300 Hz the hardware
// layer expects (spec §6). A Raspberry Pi `dtoverlay=pwm-2chan` (or
// equivalent) exposes exactly two channels under one pwmchip, which is why
// the channel index -- not a GPIO pin number -- is the addressing key here.
type sysfsPWM struct {
	chipPath string // /sys/class/pwm/pwmchipN
	pwmPath  string // /sys/class/pwm/pwmchipN/pwmM
	channel  int

	periodNS uint64
	enabled  bool
}

var pwmSysfsBase = "/sys/class/pwm"

// openPWMChannel opens PWM channel `channel` on the first usable pwmchip.
func openPWMChannel(channel int) (pwmDriver, error) {
	chipPath, err := findPWMChip(channel)
	if err != nil {
		return nil, err
	}

	d := &sysfsPWM{
		chipPath: chipPath,
		channel:  channel,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
	}

	if err := d.ensureExported(); err != nil {
		return nil, err
	}
	if err := d.writeBool("enable", false); err == nil {
		d.enabled = false
	}
	return d, nil
}

var openPWMChannelFn = openPWMChannel

func findPWMChip(channel int) (chipPath string, err error) {
	base := pwmSysfsBase
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("actuator: read %s: %w", base, err)
	}

	preferred := []string{"pwmchip0", "pwmchip1", "pwmchip2"}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "pwmchip") {
			seen[name] = true
		}
	}
	candidates := make([]string, 0, len(preferred)+len(entries))
	for _, name := range preferred {
		if seen[name] {
			candidates = append(candidates, name)
		}
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "pwmchip") && !contains(candidates, name) {
			candidates = append(candidates, name)
		}
	}

	for _, name := range candidates {
		chip := filepath.Join(base, name)
		n, rerr := readInt(filepath.Join(chip, "npwm"))
		if rerr != nil {
			continue
		}
		if n <= channel {
			continue
		}
		return chip, nil
	}

	return "", fmt.Errorf("actuator: no sysfs pwmchip with channel %d found (is the pwm overlay enabled?)", channel)
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func (d *sysfsPWM) ensureExported() error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	exportPath := filepath.Join(d.chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(d.channel)); err != nil {
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("actuator: export pwm: %w", err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("actuator: pwm path not created after export: %w", err)
	}
	return nil
}

func (d *sysfsPWM) Close() error {
	// Leave the line at 0% duty -- the firmest accumulator setting and a
	// disengaged lockup clutch, which is the safe failover.
	_ = d.SetDutyPercent(0)
	_ = d.writeBool("enable", false)
	d.enabled = false
	return nil
}

func (d *sysfsPWM) SetFrequencyHz(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("actuator: invalid frequency %d", hz)
	}
	periodNS := uint64(1_000_000_000 / hz)
	if periodNS == 0 {
		periodNS = 1
	}

	_ = d.writeBool("enable", false)
	d.enabled = false

	if err := d.writeUint("period", periodNS); err != nil {
		return err
	}
	d.periodNS = periodNS

	if err := d.writeBool("enable", true); err != nil {
		return err
	}
	d.enabled = true
	return nil
}

func (d *sysfsPWM) SetDutyPercent(p float64) error {
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}

	if d.periodNS == 0 {
		// Conservative default if SetFrequencyHz wasn't called yet (300 Hz).
		d.periodNS = 1_000_000_000 / 300
	}

	duty := uint64(math.Round(float64(d.periodNS) * (p / 100.0)))
	if duty > d.periodNS {
		duty = d.periodNS
	}
	if err := d.writeUint("duty_cycle", duty); err != nil {
		return err
	}

	if !d.enabled {
		_ = d.writeBool("enable", true)
		d.enabled = true
	}
	return nil
}

func (d *sysfsPWM) writeUint(name string, v uint64) error {
	p := filepath.Join(d.pwmPath, name)
	return writeSysfs(p, strconv.FormatUint(v, 10))
}

func (d *sysfsPWM) writeBool(name string, v bool) error {
	p := filepath.Join(d.pwmPath, name)
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(p, val)
}

func writeSysfs(path string, value string) error {
	// Some sysfs attributes reject O_TRUNC/O_CREATE. Immediately after
	// exporting a PWM channel the kernel creates new sysfs files and udev
	// may adjust permissions asynchronously, so open() can transiently
	// return EACCES/ENOENT even though steady-state permissions are fine.
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return err
		}
		_, werr := f.WriteString(value)
		cerr := f.Close()
		if werr == nil && cerr == nil {
			return nil
		}
		if werr != nil {
			lastErr = werr
		} else {
			lastErr = cerr
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(lastErr) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		if werr != nil && cerr != nil {
			return errors.Join(werr, cerr)
		}
		if werr != nil {
			return werr
		}
		return cerr
	}
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return n, nil
}
