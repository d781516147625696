package main

import (
	"testing"
	"time"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

func TestBuildSession(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)

	done, err := buildSession("s1", schema.PresetDeep, start, 0, false)
	if err != nil {
		t.Fatalf("buildSession: %v", err)
	}
	if !done.WasCompleted || done.TotalMinutes != 50 || done.CompletedAt == nil || *done.CompletedAt != done.EndsAt {
		t.Fatalf("completed=%+v", done)
	}

	early, err := buildSession("s2", schema.PresetQuick, start, 7, true)
	if err != nil {
		t.Fatalf("buildSession aborted: %v", err)
	}
	if early.WasCompleted || early.TotalMinutes != 7 || early.CompletedAt != nil {
		t.Fatalf("aborted=%+v", early)
	}

	if _, err := buildSession("s3", schema.PresetQuick, start, 16, true); err == nil {
		t.Fatalf("expected error for minutes over preset")
	}
	if _, err := buildSession("s4", "pomodoro", start, 0, false); err == nil {
		t.Fatalf("expected error for unknown preset")
	}

	auto, err := buildSession("", schema.PresetStandard, time.Time{}, 0, false)
	if err != nil || auto.ID == "" || auto.StartedAt <= 0 {
		t.Fatalf("auto=%+v err=%v", auto, err)
	}
}

func TestParseLocalTime(t *testing.T) {
	got, err := parseLocalTime("2025-06-01 21:30")
	if err != nil || got.Hour() != 21 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if _, err := parseLocalTime("2025-06-01T21:30:00+08:00"); err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if z, err := parseLocalTime(""); err != nil || !z.IsZero() {
		t.Fatalf("empty: %v %v", z, err)
	}
	if _, err := parseLocalTime("yesterday"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(5, 10); got != "[█████░░░░░]" {
		t.Fatalf("got %q", got)
	}
	if got := progressBar(30, 10); got != "[██████████]" {
		t.Fatalf("got %q", got)
	}
	if got := progressBar(1, 0); got != "" {
		t.Fatalf("got %q", got)
	}
}
