package service

import (
	"testing"
	"time"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

func TestFormatSessionRange(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)
	ms := func(d time.Duration) int64 { return start.Add(d).UnixMilli() }
	done := ms(25 * time.Minute)

	tests := []struct {
		name    string
		session schema.FocusSession
		want    string
	}{
		{"completed", schema.FocusSession{StartedAt: ms(0), EndsAt: done, CompletedAt: &done, WasCompleted: true, TotalMinutes: 25}, "09:00-09:25"},
		{"ended early", schema.FocusSession{StartedAt: ms(0), EndsAt: ms(50 * time.Minute), TotalMinutes: 12}, "09:00-09:12"},
		{"zero minutes", schema.FocusSession{StartedAt: ms(0), EndsAt: ms(15 * time.Minute)}, ""},
		{"no start", schema.FocusSession{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSessionRange(tt.session); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
