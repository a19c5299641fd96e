package web

import (
	"time"

	"github.com/a340e-ecu/shiftctl/internal/shiftcontrol"
	"github.com/a340e-ecu/shiftctl/internal/wifi"
)

// CoreStatus is the subset of shiftcontrol.Service the diagnostics endpoint
// needs: a thread-safe read of the latest tick's state.
type CoreStatus interface {
	Snapshot() shiftcontrol.Diagnostics
}

// wifiStatusFn is a seam over wifi.GetStatus so tests don't shell out to
// nmcli; production leaves it at the real implementation.
var wifiStatusFn = wifi.GetStatus

type StatusSnapshot struct {
	Service   string  `json:"service"`
	NowUTC    string  `json:"now_utc"`
	UptimeSec float64 `json:"uptime_sec"`
	TickCount int64   `json:"tick_count"`

	CurrentGear        int     `json:"current_gear"`
	TargetGear         int     `json:"target_gear"`
	ShiftPhase         string  `json:"shift_phase"`
	KickdownActive     bool    `json:"kickdown_active"`
	LockupEngaged      bool    `json:"lockup_engaged"`
	LockupDutyPct      int     `json:"lockup_duty_pct"`
	AccDutyPct         int     `json:"acc_duty_pct"`
	LimpMode           bool    `json:"limp_mode"`
	TotalShifts        int     `json:"total_shifts"`
	ShiftQualityOffset [3]int  `json:"shift_quality_offset"`
	ShiftCount         [3]int  `json:"shift_count"`
	SlipPct            float64 `json:"slip_pct"`
	MaxTempC           float64 `json:"max_temp_c"`

	Sensors shiftcontrol.SensorSnapshot `json:"sensors"`

	WiFi wifi.WiFiStatus `json:"wifi"`
}

// Status renders shiftcontrol.Diagnostics as a JSON-friendly view for the
// diagnostic web UI and bench tooling.
type Status struct {
	core  CoreStatus
	start time.Time
}

func NewStatus(core CoreStatus) *Status {
	return &Status{core: core, start: time.Now().UTC()}
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	diag := s.core.Snapshot()

	// Best-effort: a missing nmcli or disabled radio just yields a zero
	// WiFiStatus, never an error surfaced to the diagnostics caller.
	wifiStatus, _ := wifiStatusFn()

	return StatusSnapshot{
		Service:            "a340e-shiftctl",
		NowUTC:             nowUTC.Format(time.RFC3339Nano),
		UptimeSec:          nowUTC.Sub(s.start).Seconds(),
		TickCount:          diag.TickCount,
		CurrentGear:        diag.State.CurrentGear,
		TargetGear:         diag.State.TargetGear,
		ShiftPhase:         diag.State.ShiftPhase.String(),
		KickdownActive:     diag.State.KickdownActive,
		LockupEngaged:      diag.State.LockupEngaged,
		LockupDutyPct:      diag.State.LockupDutyPct,
		AccDutyPct:         diag.State.AccDutyPct,
		LimpMode:           diag.State.LimpMode,
		TotalShifts:        diag.State.TotalShifts,
		ShiftQualityOffset: diag.State.ShiftQualityOffset,
		ShiftCount:         diag.State.ShiftCount,
		SlipPct:            diag.SlipPct,
		MaxTempC:           diag.MaxTempC,
		Sensors:            diag.LastSnapshot,
		WiFi:               wifiStatus,
	}
}
