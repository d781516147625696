package timer

import (
	"testing"
	"time"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

func TestRestoreRoundTripStillRunning(t *testing.T) {
	settings := autoBreak()
	s := startFocus(t, schema.PresetDeep, settings)

	row := ToRow(s)
	if row == nil || row.ID != schema.ActiveTimerID || row.Phase != string(PhaseFocusing) {
		t.Fatalf("row=%+v", row)
	}

	got, sessions := Restore(row, schema.PresetDeep, settings, t0.Add(30*time.Minute))
	if len(sessions) != 0 {
		t.Fatalf("unexpected sessions: %d", len(sessions))
	}
	if got.Phase != PhaseFocusing || got.SessionID != "sess-1" || got.Remaining != 20*time.Minute {
		t.Fatalf("state=%+v", got)
	}
}

func TestRestoreFastForwardsElapsedFocus(t *testing.T) {
	settings := autoBreak()
	row := ToRow(startFocus(t, schema.PresetStandard, settings))

	// 挂起一小时：专注与休息都已结束
	got, sessions := Restore(row, "", settings, t0.Add(time.Hour))
	if got.Phase != PhaseIdle {
		t.Fatalf("phase=%s, want idle", got.Phase)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions=%d, want 1", len(sessions))
	}
	if !sessions[0].WasCompleted || sessions[0].TotalMinutes != 25 || sessions[0].ID != "sess-1" {
		t.Fatalf("session=%+v", sessions[0])
	}
}

func TestRestoreFastForwardsIntoBreak(t *testing.T) {
	settings := autoBreak()
	row := ToRow(startFocus(t, schema.PresetQuick, settings))

	got, sessions := Restore(row, "", settings, t0.Add(17*time.Minute))
	if got.Phase != PhaseBreak || got.Remaining != 3*time.Minute {
		t.Fatalf("state=%+v", got)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions=%d, want 1", len(sessions))
	}
}

func TestRestoreEndedEarlyWaitsForConfirmation(t *testing.T) {
	settings := autoBreak()
	s := startFocus(t, schema.PresetQuick, settings)
	s, _ = Reduce(s, Event{Kind: EventBreakSeal, At: t0.Add(3 * time.Minute)}, settings)

	got, sessions := Restore(ToRow(s), "", settings, t0.Add(time.Hour))
	if got.Phase != PhaseEndedEarly || len(sessions) != 0 {
		t.Fatalf("phase=%s sessions=%d", got.Phase, len(sessions))
	}
}

func TestRestoreMalformedRowsGoIdle(t *testing.T) {
	valid := schema.ActiveTimer{
		ID:        schema.ActiveTimerID,
		SessionID: "x",
		Phase:     string(PhaseFocusing),
		PresetID:  schema.PresetQuick,
		StartedAt: t0.UnixMilli(),
		EndsAt:    t0.Add(15 * time.Minute).UnixMilli(),
	}
	cases := map[string]func(r *schema.ActiveTimer){
		"unknown phase":  func(r *schema.ActiveTimer) { r.Phase = "paused" },
		"idle phase":     func(r *schema.ActiveTimer) { r.Phase = string(PhaseIdle) },
		"unknown preset": func(r *schema.ActiveTimer) { r.PresetID = "ultra" },
		"no session":     func(r *schema.ActiveTimer) { r.SessionID = "" },
		"zero start":     func(r *schema.ActiveTimer) { r.StartedAt = 0 },
		"ends before":    func(r *schema.ActiveTimer) { r.EndsAt = r.StartedAt - 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			row := valid
			mutate(&row)
			got, sessions := Restore(&row, schema.PresetDeep, autoBreak(), t0)
			if got.Phase != PhaseIdle || len(sessions) != 0 {
				t.Fatalf("state=%+v sessions=%d", got, len(sessions))
			}
			if got.SelectedPreset != schema.PresetDeep {
				t.Fatalf("selected=%s", got.SelectedPreset)
			}
		})
	}

	got, _ := Restore(nil, "", autoBreak(), t0)
	if got.Phase != PhaseIdle {
		t.Fatalf("nil row phase=%s", got.Phase)
	}
}

func TestToRowIdleIsNil(t *testing.T) {
	if ToRow(Idle(schema.PresetQuick)) != nil {
		t.Fatalf("idle state must not persist")
	}
}
