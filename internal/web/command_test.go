package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeCommandController struct {
	forcedGear    int
	forceGearErr  error
	resetCalled   bool
	resetErr      error
	limpSet       bool
	limpSetErr    error
	lastLimpValue bool
}

func (f *fakeCommandController) ForceGear(ctx context.Context, gear int) error {
	f.forcedGear = gear
	return f.forceGearErr
}

func (f *fakeCommandController) ResetAdaptive(ctx context.Context) error {
	f.resetCalled = true
	return f.resetErr
}

func (f *fakeCommandController) SetLimp(ctx context.Context, limp bool) error {
	f.limpSet = true
	f.lastLimpValue = limp
	return f.limpSetErr
}

func postCommand(t *testing.T, ctl CommandController, body string) *http.Response {
	t.Helper()
	ts := httptest.NewServer(commandHandler(ctl))
	defer ts.Close()
	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	return resp
}

func TestCommandHandler_ForceGear(t *testing.T) {
	ctl := &fakeCommandController{}
	resp := postCommand(t, ctl, `{"kind":"force_gear","gear":2}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if ctl.forcedGear != 2 {
		t.Fatalf("forcedGear=%d want 2", ctl.forcedGear)
	}
}

func TestCommandHandler_ForceGearRequiresGear(t *testing.T) {
	ctl := &fakeCommandController{}
	resp := postCommand(t, ctl, `{"kind":"force_gear"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", resp.StatusCode)
	}
}

func TestCommandHandler_ResetAdaptive(t *testing.T) {
	ctl := &fakeCommandController{}
	resp := postCommand(t, ctl, `{"kind":"reset_adaptive"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if !ctl.resetCalled {
		t.Fatalf("expected ResetAdaptive to be called")
	}
}

func TestCommandHandler_SetLimp(t *testing.T) {
	ctl := &fakeCommandController{}
	resp := postCommand(t, ctl, `{"kind":"set_limp","limp":true}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if !ctl.limpSet || !ctl.lastLimpValue {
		t.Fatalf("expected SetLimp(true) to be called")
	}
}

func TestCommandHandler_UnknownKindRejected(t *testing.T) {
	ctl := &fakeCommandController{}
	resp := postCommand(t, ctl, `{"kind":"reboot"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", resp.StatusCode)
	}
}

func TestCommandHandler_UnknownFieldRejected(t *testing.T) {
	ctl := &fakeCommandController{}
	resp := postCommand(t, ctl, `{"kind":"reset_adaptive","bogus":1}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", resp.StatusCode)
	}
}

func TestCommandHandler_RejectsGetMethod(t *testing.T) {
	ctl := &fakeCommandController{}
	ts := httptest.NewServer(commandHandler(ctl))
	defer ts.Close()
	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want 405", resp.StatusCode)
	}
}

func TestCommandHandler_PropagatesControllerError(t *testing.T) {
	ctl := &fakeCommandController{forceGearErr: context.DeadlineExceeded}
	resp := postCommand(t, ctl, `{"kind":"force_gear","gear":9}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", resp.StatusCode)
	}
}
