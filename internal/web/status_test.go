package web

import (
	"testing"
	"time"

	"github.com/a340e-ecu/shiftctl/internal/shiftcontrol"
	"github.com/a340e-ecu/shiftctl/internal/wifi"
)

type fakeCoreStatus struct {
	diag shiftcontrol.Diagnostics
}

func (f fakeCoreStatus) Snapshot() shiftcontrol.Diagnostics { return f.diag }

// stubWiFiStatus swaps wifiStatusFn for the duration of a test so status
// snapshots don't shell out to nmcli.
func stubWiFiStatus(t *testing.T, status wifi.WiFiStatus) {
	t.Helper()
	old := wifiStatusFn
	wifiStatusFn = func() (wifi.WiFiStatus, error) { return status, nil }
	t.Cleanup(func() { wifiStatusFn = old })
}

func TestStatus_Snapshot_ReflectsCoreDiagnostics(t *testing.T) {
	stubWiFiStatus(t, wifi.WiFiStatus{APSSID: "A340E-ECU", ClientState: "activated"})

	diag := shiftcontrol.Diagnostics{
		TickCount: 42,
		SlipPct:   1.5,
	}
	diag.State.CurrentGear = 2
	diag.State.TargetGear = 3
	diag.State.ShiftPhase = shiftcontrol.PhaseInProgress
	diag.State.TotalShifts = 7

	st := NewStatus(fakeCoreStatus{diag: diag})
	snap := st.Snapshot(time.Now().UTC())

	if snap.Service != "a340e-shiftctl" {
		t.Fatalf("Service = %q", snap.Service)
	}
	if snap.CurrentGear != 2 || snap.TargetGear != 3 {
		t.Fatalf("gears = %d/%d, want 2/3", snap.CurrentGear, snap.TargetGear)
	}
	if snap.ShiftPhase != shiftcontrol.PhaseInProgress.String() {
		t.Fatalf("ShiftPhase = %q", snap.ShiftPhase)
	}
	if snap.TotalShifts != 7 {
		t.Fatalf("TotalShifts = %d, want 7", snap.TotalShifts)
	}
	if snap.SlipPct != 1.5 {
		t.Fatalf("SlipPct = %v, want 1.5", snap.SlipPct)
	}
	if snap.WiFi.APSSID != "A340E-ECU" || snap.WiFi.ClientState != "activated" {
		t.Fatalf("WiFi = %+v, want APSSID=A340E-ECU ClientState=activated", snap.WiFi)
	}
}

func TestStatus_Snapshot_UptimeGrowsWithClock(t *testing.T) {
	stubWiFiStatus(t, wifi.WiFiStatus{})
	st := NewStatus(fakeCoreStatus{})
	start := st.start
	later := start.Add(90 * time.Second)
	snap := st.Snapshot(later)
	if snap.UptimeSec < 89 || snap.UptimeSec > 91 {
		t.Fatalf("UptimeSec = %v, want ~90", snap.UptimeSec)
	}
}
