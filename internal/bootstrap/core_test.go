package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yuqie6/FocusMirror/internal/legacy"
	"github.com/yuqie6/FocusMirror/internal/pkg/config"
	"github.com/yuqie6/FocusMirror/internal/pkg/instance"
	"github.com/yuqie6/FocusMirror/internal/schema"
	"github.com/yuqie6/FocusMirror/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.Default()
	cfg.App.LogLevel = "error"
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "data", "focus.db")
	cfg.Focus.DailyGoal = 3
	return cfg
}

func TestNewCoreWiresServices(t *testing.T) {
	cfg := testConfig(t)
	core, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewCoreWithConfig: %v", err)
	}
	defer core.Close()

	if err := core.RequireWritable(); err != nil {
		t.Fatalf("RequireWritable: %v", err)
	}

	ctx := context.Background()
	settings, err := core.Services.Settings.Get(ctx)
	if err != nil || settings.DailyGoal != 3 {
		t.Fatalf("settings=%+v err=%v", settings, err)
	}

	res, err := core.Services.Timer.Start(ctx, schema.PresetQuick)
	if err != nil || res.State.SessionID == "" {
		t.Fatalf("Start: res=%+v err=%v", res, err)
	}

	if _, err := core.NewMigrator(""); err == nil {
		t.Fatalf("expected error without legacy dir")
	}
}

func TestNewCoreSingleInstance(t *testing.T) {
	cfg := testConfig(t)
	first, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := NewCoreWithConfig(cfg); !errors.Is(err, instance.ErrAlreadyRunning) {
		t.Fatalf("second err=%v, want ErrAlreadyRunning", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	again, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("after close: %v", err)
	}
	_ = again.Close()
}

func writeLegacySessions(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, legacy.KeySessions+".json"), []byte(content), 0o600); err != nil {
		t.Fatalf("write legacy sessions: %v", err)
	}
}

func TestNewCoreRetriesLegacyImportOnNextLaunch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Legacy.Dir = t.TempDir()
	ctx := context.Background()

	valid := `{"id":"L1","presetId":"standard","startedAt":"2025-06-01T08:00:00Z","endsAt":"2025-06-01T08:25:00Z","completedAt":"2025-06-01T08:25:00Z","wasCompleted":true,"totalMinutes":25}`
	writeLegacySessions(t, cfg.Legacy.Dir, `[`+valid+`,{"id":"L2","presetId":"pomodoro","startedAt":"2025-06-02T08:00:00Z","totalMinutes":25}]`)

	first, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("first launch: %v", err)
	}
	if first.StartupError == "" {
		t.Fatalf("expected startup error for invalid legacy record")
	}
	if v, _ := first.Store.Meta().GetLegacyImportVersion(ctx); v != 0 {
		t.Fatalf("import version=%d after failed launch", v)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	writeLegacySessions(t, cfg.Legacy.Dir, `[`+valid+`]`)
	second, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("second launch: %v", err)
	}
	defer second.Close()

	if second.StartupError != "" {
		t.Fatalf("startup error=%s", second.StartupError)
	}
	if v, _ := second.Store.Meta().GetLegacyImportVersion(ctx); v != service.LegacyImportVersion {
		t.Fatalf("import version=%d, want %d", v, service.LegacyImportVersion)
	}
	if n, _ := second.Store.Sessions().Count(ctx); n != 1 {
		t.Fatalf("sessions=%d, want 1", n)
	}
	streak, err := second.Services.Engine.GetStreakData(ctx)
	if err != nil || streak.BestStreak != 1 {
		t.Fatalf("streak=%+v err=%v", streak, err)
	}
}

func TestNewCoreRebuildsMissingDerivedData(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("first launch: %v", err)
	}
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local)
	ends := start.Add(25 * time.Minute).UnixMilli()
	session := &schema.FocusSession{
		ID:           "r1",
		PresetID:     schema.PresetStandard,
		StartedAt:    start.UnixMilli(),
		EndsAt:       ends,
		CompletedAt:  &ends,
		WasCompleted: true,
		TotalMinutes: 25,
	}
	if _, err := first.Services.Engine.ProcessSession(ctx, session); err != nil {
		t.Fatalf("ProcessSession: %v", err)
	}
	if err := first.Store.DailyStats().DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := NewCoreWithConfig(cfg)
	if err != nil {
		t.Fatalf("second launch: %v", err)
	}
	defer second.Close()

	days, err := second.Store.DailyStats().ListAll(ctx)
	if err != nil || len(days) != 1 || days[0].CompletedSessions != 1 {
		t.Fatalf("days=%+v err=%v", days, err)
	}
}
