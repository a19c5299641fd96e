// Package console implements the ECU's serial operator command port: a
// small line-oriented protocol for force-gear/reset-adaptive/limp-mode
// commands and a status dump, so a bench technician can drive the unit
// from a terminal without the web UI.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/a340e-ecu/shiftctl/internal/shiftcontrol"
)

// port is the subset of go.bug.st/serial.Port the service needs; letting
// tests inject an in-memory fake instead of a real device.
type port interface {
	io.ReadWriteCloser
}

var openPortFn = func(device string, baud int) (port, error) {
	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	return p, nil
}

type Controller interface {
	ForceGear(ctx context.Context, gear int) error
	ResetAdaptive(ctx context.Context) error
	SetLimp(ctx context.Context, limp bool) error
}

type StatusProvider interface {
	Snapshot() shiftcontrol.Diagnostics
}

type Config struct {
	Device   string
	BaudRate int
}

func (c Config) withDefaults() Config {
	if c.Device == "" {
		c.Device = "/dev/ttyUSB0"
	}
	if c.BaudRate <= 0 {
		c.BaudRate = 115200
	}
	return c
}

// Service is a best-effort bring-up service: a missing or disconnected
// serial adapter must never bring down the control loop, so it reconnects
// with backoff rather than returning an error from Start.
type Service struct {
	cfg  Config
	ctl  Controller
	st   StatusProvider

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closer io.Closer
}

func New(cfg Config, ctl Controller, st StatusProvider) *Service {
	return &Service{cfg: cfg.withDefaults(), ctl: ctl, st: st}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(childCtx)
	return nil
}

func (s *Service) run(ctx context.Context) {
	defer s.wg.Done()

	backoff := 250 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p, err := openPortFn(s.cfg.Device, s.cfg.BaudRate)
		if err != nil {
			log.Printf("console: open %s failed: %v", s.cfg.Device, err)
			t := backoff
			if t > maxBackoff {
				t = maxBackoff
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(t):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = 250 * time.Millisecond

		s.mu.Lock()
		s.closer = p
		s.mu.Unlock()

		log.Printf("console: connected device=%s baud=%d", s.cfg.Device, s.cfg.BaudRate)
		s.serve(ctx, p)
		_ = p.Close()
	}
}

func (s *Service) serve(ctx context.Context, p port) {
	scanner := bufio.NewScanner(p)
	scanner.Buffer(make([]byte, 0, 256), 4096)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply := s.handleLine(ctx, line)
		if _, err := io.WriteString(p, reply+"\n"); err != nil {
			return
		}
	}
}

func (s *Service) handleLine(ctx context.Context, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERR empty command"
	}

	switch strings.ToUpper(fields[0]) {
	case "FORCE":
		if len(fields) != 2 {
			return "ERR usage: FORCE <gear>"
		}
		gear, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Sprintf("ERR invalid gear %q", fields[1])
		}
		if err := s.ctl.ForceGear(ctx, gear); err != nil {
			return "ERR " + err.Error()
		}
		return "OK"

	case "RESET":
		if err := s.ctl.ResetAdaptive(ctx); err != nil {
			return "ERR " + err.Error()
		}
		return "OK"

	case "LIMP":
		if len(fields) != 2 {
			return "ERR usage: LIMP ON|OFF"
		}
		var limp bool
		switch strings.ToUpper(fields[1]) {
		case "ON":
			limp = true
		case "OFF":
			limp = false
		default:
			return "ERR usage: LIMP ON|OFF"
		}
		if err := s.ctl.SetLimp(ctx, limp); err != nil {
			return "ERR " + err.Error()
		}
		return "OK"

	case "STATUS":
		diag := s.st.Snapshot()
		return fmt.Sprintf("OK gear=%d target=%d phase=%s lockup=%t acc=%d%% lockup_duty=%d%% limp=%t shifts=%d",
			diag.State.CurrentGear, diag.State.TargetGear, diag.State.ShiftPhase,
			diag.State.LockupEngaged, diag.State.AccDutyPct, diag.State.LockupDutyPct,
			diag.State.LimpMode, diag.State.TotalShifts,
		)

	default:
		return fmt.Sprintf("ERR unknown command %q", fields[0])
	}
}

func (s *Service) Close() {
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}
