package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

func TestProcessSession_Idempotent(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(0, 20))
	engine := newTestEngine(t, store, clock, smallCatalog(t))
	ctx := context.Background()

	s := completed("s1", day(0, 10), schema.PresetStandard)
	first := mustProcess(t, engine, s)
	if !unlockedIDs(first)["first_focus"] {
		t.Fatalf("first_focus should unlock on first session")
	}
	second := mustProcess(t, engine, s)
	if len(second.NewlyUnlocked) != 0 {
		t.Fatalf("reprocessing must not unlock again: %v", second.NewlyUnlocked)
	}

	n, _ := store.Sessions().Count(ctx)
	if n != 1 {
		t.Fatalf("sessions=%d, want 1", n)
	}
	stats, _ := store.DailyStats().GetByDate(ctx, schema.DateOf(s.StartedAt))
	if stats == nil || stats.TotalSessions != 1 || stats.CompletedSessions != 1 || stats.StandardSessions != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if second.StreakData.CurrentStreak != 1 {
		t.Fatalf("streak=%d, want 1", second.StreakData.CurrentStreak)
	}
}

func TestProcessSession_StreakGapScenario(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(4, 21))
	engine := newTestEngine(t, store, clock, smallCatalog(t))

	var res *AchievementProcessResult
	for i := 0; i < 3; i++ {
		res = mustProcess(t, engine, completed("d"+strconv.Itoa(i), day(i, 10), schema.PresetQuick))
	}
	if res.StreakData.CurrentStreak != 3 || res.StreakData.BestStreak != 3 {
		t.Fatalf("after D..D+2 streak=%+v", res.StreakData)
	}
	if !unlockedIDs(res)["streak_3"] {
		t.Fatalf("streak_3 should unlock on third day")
	}

	res = mustProcess(t, engine, completed("d4", day(4, 10), schema.PresetQuick))
	if res.StreakData.CurrentStreak != 1 || res.StreakData.BestStreak != 3 {
		t.Fatalf("after gap streak=%+v", res.StreakData)
	}
	if res.StreakData.StreakStartDate != schema.DateOf(day(4, 10).UnixMilli()) {
		t.Fatalf("streak start=%s", res.StreakData.StreakStartDate)
	}
	if p := progressByID(t, store)["streak_3"]; !p.IsUnlocked || p.CurrentProgress != 1 {
		t.Fatalf("streak_3 progress=%+v", p)
	}
}

func TestProcessSession_EarlyEndedDeep(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(0, 20))
	engine := newTestEngine(t, store, clock, nil)
	ctx := context.Background()

	res := mustProcess(t, engine, aborted("deep-abort", day(0, 14), schema.PresetDeep, 12))
	snap := res.Snapshot
	if snap.TotalSessions != 1 || snap.TotalCompletedSessions != 0 || snap.TotalDeepSessions != 0 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if snap.TotalMinutes != 12 || snap.CompletionRate != 0 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if res.StreakData.CurrentStreak != 0 {
		t.Fatalf("aborted session must not start a streak: %+v", res.StreakData)
	}
	if row, _ := store.Streak().Get(ctx); row != nil {
		t.Fatalf("streak row should not exist: %+v", row)
	}
	if len(res.NewlyUnlocked) != 0 {
		t.Fatalf("nothing should unlock: %v", res.NewlyUnlocked)
	}
	if p := progressByID(t, store)["deep_1"]; p.IsUnlocked || p.CurrentProgress != 0 {
		t.Fatalf("deep_1=%+v", p)
	}
	stats, _ := store.DailyStats().GetByDate(ctx, schema.DateOf(day(0, 14).UnixMilli()))
	if stats == nil || stats.TotalSessions != 1 || stats.DeepSessions != 0 || stats.TotalMinutes != 12 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestProcessSession_RateMinimumSample(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(10, 20))
	engine := newTestEngine(t, store, clock, smallCatalog(t))

	start := day(0, 6)
	n := 0
	next := func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Hour)
	}

	for i := 0; i < 20; i++ {
		mustProcess(t, engine, completed("c"+strconv.Itoa(i), next(), schema.PresetQuick))
	}
	res := mustProcess(t, engine, aborted("a0", next(), schema.PresetQuick, 3))
	if res.Snapshot.TotalCompletedSessions != 20 || res.Snapshot.CompletionRate != 95.2 {
		t.Fatalf("snapshot=%+v", res.Snapshot)
	}
	p := progressByID(t, store)["rate_90"]
	if p.IsUnlocked || p.CurrentProgress != 95 {
		t.Fatalf("rate_90 below min sample=%+v", p)
	}

	mustProcess(t, engine, aborted("a1", next(), schema.PresetQuick, 3))
	for i := 20; i < 24; i++ {
		res = mustProcess(t, engine, completed("c"+strconv.Itoa(i), next(), schema.PresetQuick))
		if unlockedIDs(res)["rate_90"] {
			t.Fatalf("rate_90 unlocked at %d completed", res.Snapshot.TotalCompletedSessions)
		}
	}
	res = mustProcess(t, engine, completed("c24", next(), schema.PresetQuick))
	if res.Snapshot.TotalCompletedSessions != 25 || res.Snapshot.CompletionRate != 92.6 {
		t.Fatalf("snapshot=%+v", res.Snapshot)
	}
	if !unlockedIDs(res)["rate_90"] {
		t.Fatalf("rate_90 should unlock at 25 completed / 92.6%%")
	}
	if p := progressByID(t, store)["rate_90"]; !p.IsUnlocked || p.CurrentProgress != 92 {
		t.Fatalf("rate_90=%+v", p)
	}
}

func TestMonotonicUnlockSurvivesRecompute(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(0, 20))
	engine := newTestEngine(t, store, clock, smallCatalog(t))
	ctx := context.Background()

	mustProcess(t, engine, completed("m1", day(0, 10), schema.PresetQuick))
	res := mustProcess(t, engine, completed("m2", day(0, 11), schema.PresetQuick))
	if !unlockedIDs(res)["perfect_day"] {
		t.Fatalf("perfect_day should unlock with 2 sessions today")
	}
	before := progressByID(t, store)
	unlockedAt := *before["perfect_day"].UnlockedAt
	if unlockedAt != day(0, 20).UnixMilli() {
		t.Fatalf("unlocked_at=%d", unlockedAt)
	}

	// 第二天 today 计数归零，解锁状态与时间都不能回退
	clock.Set(day(1, 20))
	for i := 0; i < 2; i++ {
		res, err := engine.RecomputeAll(ctx)
		if err != nil {
			t.Fatalf("RecomputeAll: %v", err)
		}
		if len(res.NewlyUnlocked) != 0 {
			t.Fatalf("recompute must not report old unlocks: %v", res.NewlyUnlocked)
		}
	}
	after := progressByID(t, store)
	for id, old := range before {
		cur := after[id]
		if old.IsUnlocked && !cur.IsUnlocked {
			t.Fatalf("%s regressed", id)
		}
		if old.UnlockedAt != nil && (cur.UnlockedAt == nil || *cur.UnlockedAt != *old.UnlockedAt) {
			t.Fatalf("%s unlocked_at changed", id)
		}
	}
	if after["perfect_day"].CurrentProgress != 0 {
		t.Fatalf("perfect_day progress=%d, want 0", after["perfect_day"].CurrentProgress)
	}
}

func TestRecomputeAll_Idempotent(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(6, 20))
	engine := newTestEngine(t, store, clock, nil)
	ctx := context.Background()

	for _, s := range sampleSessions() {
		mustProcess(t, engine, s)
	}

	snapshot := func() ([]schema.DailyStats, *schema.StreakData, map[string]schema.AchievementProgress) {
		days, err := store.DailyStats().ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll: %v", err)
		}
		streak, err := store.Streak().Get(ctx)
		if err != nil {
			t.Fatalf("streak: %v", err)
		}
		return days, streak, progressByID(t, store)
	}

	if _, err := engine.RecomputeAll(ctx); err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	d1, s1, p1 := snapshot()
	if _, err := engine.RecomputeAll(ctx); err != nil {
		t.Fatalf("RecomputeAll: %v", err)
	}
	d2, s2, p2 := snapshot()

	assertSameDays(t, d1, d2)
	if s1 == nil || s2 == nil || !s1.SameStreak(*s2) {
		t.Fatalf("streak differs: %+v vs %+v", s1, s2)
	}
	if len(p1) != len(p2) {
		t.Fatalf("progress rows %d vs %d", len(p1), len(p2))
	}
	for id, a := range p1 {
		if !sameProgress(a, p2[id]) {
			t.Fatalf("progress %s differs: %+v vs %+v", id, a, p2[id])
		}
	}
}

func TestIncrementalMatchesRebuild_AnyOrder(t *testing.T) {
	sessions := sampleSessions()
	orders := map[string][]int{
		"forward":  {0, 1, 2, 3, 4, 5, 6, 7},
		"reverse":  {7, 6, 5, 4, 3, 2, 1, 0},
		"shuffled": {3, 7, 0, 5, 1, 6, 2, 4},
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			store := newTestStorage(t)
			engine := newTestEngine(t, store, newTestClock(day(6, 20)), nil)
			ctx := context.Background()

			for _, i := range order {
				mustProcess(t, engine, sessions[i])
			}
			incDays, _ := store.DailyStats().ListAll(ctx)
			incStreak, _ := store.Streak().Get(ctx)

			if _, err := engine.RecomputeAll(ctx); err != nil {
				t.Fatalf("RecomputeAll: %v", err)
			}
			bulkDays, _ := store.DailyStats().ListAll(ctx)
			bulkStreak, _ := store.Streak().Get(ctx)

			assertSameDays(t, incDays, bulkDays)
			if incStreak == nil || bulkStreak == nil || !incStreak.SameStreak(*bulkStreak) {
				t.Fatalf("streak incremental=%+v bulk=%+v", incStreak, bulkStreak)
			}
			if bulkStreak.CurrentStreak != 3 || bulkStreak.BestStreak != 3 {
				t.Fatalf("streak=%+v", bulkStreak)
			}
		})
	}
}

func TestProcessSession_ReplacementKeepsDerivedInStep(t *testing.T) {
	tests := []struct {
		name        string
		replacement *schema.FocusSession
		wantCurrent int
		wantLast    string
	}{
		{"completed to aborted", aborted("y", day(1, 9), schema.PresetStandard, 10), 1, schema.DateOf(day(0, 9).UnixMilli())},
		{"moved to later date", completed("y", day(3, 9), schema.PresetStandard), 1, schema.DateOf(day(3, 9).UnixMilli())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStorage(t)
			engine := newTestEngine(t, store, newTestClock(day(3, 20)), nil)
			ctx := context.Background()

			mustProcess(t, engine, completed("x", day(0, 9), schema.PresetStandard))
			mustProcess(t, engine, completed("y", day(1, 9), schema.PresetStandard))
			mustProcess(t, engine, tt.replacement)

			incDays, _ := store.DailyStats().ListAll(ctx)
			incStreak, _ := store.Streak().Get(ctx)
			if incStreak == nil || incStreak.CurrentStreak != tt.wantCurrent || incStreak.LastActiveDate != tt.wantLast {
				t.Fatalf("streak=%+v", incStreak)
			}

			if _, err := engine.RecomputeAll(ctx); err != nil {
				t.Fatalf("RecomputeAll: %v", err)
			}
			bulkDays, _ := store.DailyStats().ListAll(ctx)
			bulkStreak, _ := store.Streak().Get(ctx)
			assertSameDays(t, incDays, bulkDays)
			if bulkStreak == nil || !incStreak.SameStreak(*bulkStreak) {
				t.Fatalf("streak incremental=%+v bulk=%+v", incStreak, bulkStreak)
			}
		})
	}
}

func TestGetAllProgress_HidesLockedHidden(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(0, 23).Add(30 * time.Minute))
	engine := newTestEngine(t, store, clock, smallCatalog(t))
	ctx := context.Background()

	mustProcess(t, engine, completed("early", day(0, 10), schema.PresetQuick))
	list, err := engine.GetAllProgress(ctx)
	if err != nil {
		t.Fatalf("GetAllProgress: %v", err)
	}
	for _, p := range list {
		if p.AchievementID == "night_owl" {
			t.Fatalf("hidden locked achievement returned")
		}
	}
	if len(list) != 4 || list[0].AchievementID != "first_focus" || list[3].AchievementID != "perfect_day" {
		t.Fatalf("list=%+v", list)
	}

	mustProcess(t, engine, completed("late", day(0, 22), schema.PresetQuick))
	list, _ = engine.GetAllProgress(ctx)
	if len(list) != 5 || list[4].AchievementID != "night_owl" || !list[4].IsUnlocked {
		t.Fatalf("list=%+v", list)
	}

	all, _ := engine.ListAchievements(ctx, true)
	if len(all) != 5 {
		t.Fatalf("ListAchievements(all)=%d", len(all))
	}
}

func TestGetStreakData_GraceDay(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(0, 20))
	engine := newTestEngine(t, store, clock, smallCatalog(t))
	ctx := context.Background()

	mustProcess(t, engine, completed("g1", day(0, 10), schema.PresetQuick))

	clock.Set(day(1, 8))
	got, err := engine.GetStreakData(ctx)
	if err != nil || got.CurrentStreak != 1 {
		t.Fatalf("yesterday's streak should hold: %+v err=%v", got, err)
	}

	clock.Set(day(2, 8))
	got, _ = engine.GetStreakData(ctx)
	if got.CurrentStreak != 0 || got.BestStreak != 1 {
		t.Fatalf("streak after a missed day=%+v", got)
	}
	snap, err := engine.GetSnapshot(ctx)
	if err != nil || snap.CurrentStreak != got.CurrentStreak {
		t.Fatalf("snapshot streak=%d, want %d (err=%v)", snap.CurrentStreak, got.CurrentStreak, err)
	}
}

func TestDailyGoalFromSettings(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(0, 20))
	engine := newTestEngine(t, store, clock, smallCatalog(t))
	ctx := context.Background()

	settings := schema.DefaultFocusSettings()
	settings.DailyGoal = 2
	if err := store.Settings().Save(ctx, &settings); err != nil {
		t.Fatalf("Save settings: %v", err)
	}

	mustProcess(t, engine, completed("g1", day(0, 9), schema.PresetQuick))
	got, _ := engine.GetDailyStats(ctx, schema.DateOf(day(0, 9).UnixMilli()))
	if got.MetGoal {
		t.Fatalf("goal met too early")
	}
	res := mustProcess(t, engine, completed("g2", day(0, 10), schema.PresetQuick))
	got, _ = engine.GetDailyStats(ctx, "")
	if !got.MetGoal || !res.Snapshot.TodayMetGoal || res.Snapshot.ConsecutiveGoalDays != 1 {
		t.Fatalf("stats=%+v snapshot=%+v", got, res.Snapshot)
	}
}

// sampleSessions 覆盖同日多次、提前结束、跨天间隔：完成日期为 D0 D1 D2 D4 D5 D6
func sampleSessions() []*schema.FocusSession {
	return []*schema.FocusSession{
		completed("s0", day(0, 8), schema.PresetQuick),
		completed("s1", day(0, 14), schema.PresetDeep),
		aborted("s2", day(1, 9), schema.PresetDeep, 20),
		completed("s3", day(1, 22), schema.PresetStandard),
		completed("s4", day(2, 10), schema.PresetStandard),
		completed("s5", day(4, 10), schema.PresetQuick),
		completed("s6", day(5, 10), schema.PresetQuick),
		completed("s7", day(6, 10), schema.PresetDeep),
	}
}

func assertSameDays(t *testing.T, a, b []schema.DailyStats) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("daily rows %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].SameAggregate(b[i]) {
			t.Fatalf("daily %s differs: %+v vs %+v", a[i].Date, a[i], b[i])
		}
	}
}

func sameProgress(a, b schema.AchievementProgress) bool {
	if a.AchievementID != b.AchievementID || a.CurrentProgress != b.CurrentProgress ||
		a.TargetValue != b.TargetValue || a.IsUnlocked != b.IsUnlocked {
		return false
	}
	if (a.UnlockedAt == nil) != (b.UnlockedAt == nil) {
		return false
	}
	return a.UnlockedAt == nil || *a.UnlockedAt == *b.UnlockedAt
}
