package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yuqie6/FocusMirror/internal/repository"
	"github.com/yuqie6/FocusMirror/internal/schema"
	"github.com/yuqie6/FocusMirror/internal/testutil"
)

// ===== Test Helpers =====

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStorage(t *testing.T) Storage {
	t.Helper()
	return NewRepositoryStorage(repository.NewStore(testutil.OpenTestDB(t)))
}

func newTestEngine(t *testing.T, store Storage, clock *testClock, catalog *Catalog) *AchievementEngine {
	t.Helper()
	engine, err := NewAchievementEngine(store, catalog, &AchievementEngineConfig{Now: clock.Now})
	if err != nil {
		t.Fatalf("NewAchievementEngine: %v", err)
	}
	return engine
}

// day 返回 2025-06-01 起第 n 天的本地时间 hour:00
func day(n, hour int) time.Time {
	return time.Date(2025, 6, 1+n, hour, 0, 0, 0, time.Local)
}

func completed(id string, start time.Time, preset string) *schema.FocusSession {
	minutes := schema.PresetMinutes[preset]
	ends := start.Add(time.Duration(minutes) * time.Minute).UnixMilli()
	at := ends
	return &schema.FocusSession{
		ID:           id,
		PresetID:     preset,
		StartedAt:    start.UnixMilli(),
		EndsAt:       ends,
		CompletedAt:  &at,
		WasCompleted: true,
		TotalMinutes: minutes,
	}
}

func aborted(id string, start time.Time, preset string, minutes int) *schema.FocusSession {
	return &schema.FocusSession{
		ID:           id,
		PresetID:     preset,
		StartedAt:    start.UnixMilli(),
		EndsAt:       start.Add(time.Duration(schema.PresetMinutes[preset]) * time.Minute).UnixMilli(),
		WasCompleted: false,
		TotalMinutes: minutes,
	}
}

func mustProcess(t *testing.T, engine *AchievementEngine, s *schema.FocusSession) *AchievementProcessResult {
	t.Helper()
	res, err := engine.ProcessSession(context.Background(), s)
	if err != nil {
		t.Fatalf("ProcessSession(%s): %v", s.ID, err)
	}
	return res
}

func progressByID(t *testing.T, store Storage) map[string]schema.AchievementProgress {
	t.Helper()
	rows, err := store.Achievements().ListProgress(context.Background())
	if err != nil {
		t.Fatalf("ListProgress: %v", err)
	}
	out := make(map[string]schema.AchievementProgress, len(rows))
	for _, r := range rows {
		out[r.AchievementID] = r
	}
	return out
}

func unlockedIDs(res *AchievementProcessResult) map[string]bool {
	out := make(map[string]bool)
	for _, d := range res.NewlyUnlocked {
		out[d.ID] = true
	}
	return out
}

const smallCatalogYAML = `
- id: first_focus
  category: milestone
  criteria_type: threshold
  criteria_value: 1
  criteria_unit: sessions
  sort_order: 1
- id: streak_3
  category: streak
  criteria_type: streak
  criteria_value: 3
  sort_order: 2
- id: rate_90
  category: quality
  criteria_type: rate
  criteria_value: 90
  min_sample: 25
  sort_order: 3
- id: perfect_day
  category: pattern
  criteria_type: pattern
  criteria_value: 2
  sort_order: 4
- id: night_owl
  category: pattern
  criteria_type: pattern
  criteria_value: 1
  sort_order: 5
  is_hidden: true
`

func smallCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadCatalog([]byte(smallCatalogYAML), nil)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	return c
}
