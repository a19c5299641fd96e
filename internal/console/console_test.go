package console

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/a340e-ecu/shiftctl/internal/shiftcontrol"
)

type fakeController struct {
	forcedGear  int
	forceErr    error
	resetCalled bool
	limpValue   bool
	limpCalled  bool
}

func (f *fakeController) ForceGear(ctx context.Context, gear int) error {
	f.forcedGear = gear
	return f.forceErr
}
func (f *fakeController) ResetAdaptive(ctx context.Context) error {
	f.resetCalled = true
	return nil
}
func (f *fakeController) SetLimp(ctx context.Context, limp bool) error {
	f.limpCalled = true
	f.limpValue = limp
	return nil
}

type fakeStatus struct {
	diag shiftcontrol.Diagnostics
}

func (f fakeStatus) Snapshot() shiftcontrol.Diagnostics { return f.diag }

// pipePort wraps one end of a net.Pipe as a port, since net.Conn already
// satisfies io.ReadWriteCloser.
type pipePort struct {
	net.Conn
}

func TestService_HandleLine_ForceGear(t *testing.T) {
	ctl := &fakeController{}
	s := New(Config{}, ctl, fakeStatus{})
	got := s.handleLine(context.Background(), "FORCE 2")
	if got != "OK" {
		t.Fatalf("reply=%q want OK", got)
	}
	if ctl.forcedGear != 2 {
		t.Fatalf("forcedGear=%d want 2", ctl.forcedGear)
	}
}

func TestService_HandleLine_ForceGearBadArg(t *testing.T) {
	ctl := &fakeController{}
	s := New(Config{}, ctl, fakeStatus{})
	got := s.handleLine(context.Background(), "FORCE abc")
	if got[:3] != "ERR" {
		t.Fatalf("reply=%q want ERR prefix", got)
	}
}

func TestService_HandleLine_Reset(t *testing.T) {
	ctl := &fakeController{}
	s := New(Config{}, ctl, fakeStatus{})
	got := s.handleLine(context.Background(), "RESET")
	if got != "OK" || !ctl.resetCalled {
		t.Fatalf("reply=%q resetCalled=%v", got, ctl.resetCalled)
	}
}

func TestService_HandleLine_LimpOnOff(t *testing.T) {
	ctl := &fakeController{}
	s := New(Config{}, ctl, fakeStatus{})
	if got := s.handleLine(context.Background(), "LIMP ON"); got != "OK" || !ctl.limpValue {
		t.Fatalf("reply=%q limpValue=%v", got, ctl.limpValue)
	}
	if got := s.handleLine(context.Background(), "LIMP OFF"); got != "OK" || ctl.limpValue {
		t.Fatalf("reply=%q limpValue=%v", got, ctl.limpValue)
	}
}

func TestService_HandleLine_Status(t *testing.T) {
	diag := shiftcontrol.Diagnostics{}
	diag.State.CurrentGear = 3
	diag.State.TargetGear = 3
	s := New(Config{}, &fakeController{}, fakeStatus{diag: diag})
	got := s.handleLine(context.Background(), "STATUS")
	if got[:2] != "OK" {
		t.Fatalf("reply=%q want OK prefix", got)
	}
}

func TestService_HandleLine_UnknownCommand(t *testing.T) {
	s := New(Config{}, &fakeController{}, fakeStatus{})
	got := s.handleLine(context.Background(), "FROB")
	if got[:3] != "ERR" {
		t.Fatalf("reply=%q want ERR prefix", got)
	}
}

func TestService_Start_ServesCommandsOverInjectedPort(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		_ = clientConn.Close()
		_ = serverConn.Close()
	})

	old := openPortFn
	openPortFn = func(device string, baud int) (port, error) {
		return pipePort{Conn: serverConn}, nil
	}
	t.Cleanup(func() { openPortFn = old })

	ctl := &fakeController{}
	s := New(Config{Device: "fake", BaudRate: 9600}, ctl, fakeStatus{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(s.Close)

	if _, err := clientConn.Write([]byte("RESET\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(clientConn)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if line != "OK\n" {
		t.Fatalf("reply=%q want OK\\n", line)
	}
	if !ctl.resetCalled {
		t.Fatalf("expected ResetAdaptive to be called")
	}
}
