package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a340e-ecu/shiftctl/internal/wifi"
)

func TestHandler_APIStatus(t *testing.T) {
	stubWiFiStatus(t, wifi.WiFiStatus{})
	st := NewStatus(fakeCoreStatus{})
	ts := httptest.NewServer(Handler(st, &fakeCommandController{}, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}

	var snap StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if snap.Service != "a340e-shiftctl" {
		t.Fatalf("service=%q", snap.Service)
	}
}

func TestHandler_RootPage(t *testing.T) {
	st := NewStatus(fakeCoreStatus{})
	ts := httptest.NewServer(Handler(st, &fakeCommandController{}, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
}

func TestHandler_UnknownPathIsNotFound(t *testing.T) {
	st := NewStatus(fakeCoreStatus{})
	ts := httptest.NewServer(Handler(st, &fakeCommandController{}, nil))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status code=%d want 404", resp.StatusCode)
	}
}

func TestHandler_APICommandRoutedThrough(t *testing.T) {
	st := NewStatus(fakeCoreStatus{})
	ctl := &fakeCommandController{}
	ts := httptest.NewServer(Handler(st, ctl, nil))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/command", "application/json", strings.NewReader(`{"kind":"reset_adaptive"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if !ctl.resetCalled {
		t.Fatalf("expected ResetAdaptive to be called via the mux")
	}
}

func TestHandler_LogsEndpoint(t *testing.T) {
	st := NewStatus(fakeCoreStatus{})
	lb := NewLogBuffer(10)
	_, _ = lb.Write([]byte("hello\n"))
	ts := httptest.NewServer(Handler(st, &fakeCommandController{}, lb))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/logs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
}
