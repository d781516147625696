package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/yuqie6/FocusMirror/internal/eventbus"
	"github.com/yuqie6/FocusMirror/internal/schema"
	"github.com/yuqie6/FocusMirror/internal/timer"
)

type recordingPublisher struct {
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(evt eventbus.Event) {
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) count(typ string) int {
	n := 0
	for _, e := range p.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

type timerFixture struct {
	store  Storage
	clock  *testClock
	pub    *recordingPublisher
	engine *AchievementEngine
	svc    *TimerService
}

func newTimerFixture(t *testing.T, store Storage, clock *testClock) *timerFixture {
	t.Helper()
	pub := &recordingPublisher{}
	engine, err := NewAchievementEngine(store, smallCatalog(t), &AchievementEngineConfig{Now: clock.Now, Publisher: pub})
	if err != nil {
		t.Fatalf("NewAchievementEngine: %v", err)
	}
	ids := 0
	svc := NewTimerService(store, NewSettingsService(store.Settings(), nil), engine, &TimerServiceConfig{
		Now: clock.Now,
		NewID: func() string {
			ids++
			return "timer-" + strconv.Itoa(ids)
		},
		Publisher: pub,
	})
	return &timerFixture{store: store, clock: clock, pub: pub, engine: engine, svc: svc}
}

func TestTimerService_CompleteBreakSkip(t *testing.T) {
	store := newTestStorage(t)
	f := newTimerFixture(t, store, newTestClock(day(0, 9)))
	ctx := context.Background()

	res, err := f.svc.Start(ctx, schema.PresetQuick)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.State.Phase != timer.PhaseFocusing || res.State.SessionID == "" {
		t.Fatalf("state=%+v", res.State)
	}
	row, _ := store.ActiveTimer().Get(ctx)
	if row == nil || row.Phase != string(timer.PhaseFocusing) {
		t.Fatalf("active timer=%+v", row)
	}

	if _, err := f.svc.Start(ctx, schema.PresetDeep); !errors.Is(err, ErrTimerBusy) {
		t.Fatalf("err=%v, want ErrTimerBusy", err)
	}

	f.clock.Advance(16 * time.Minute)
	res, err = f.svc.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if res.Session == nil || !res.Session.WasCompleted || res.Session.TotalMinutes != 15 {
		t.Fatalf("session=%+v", res.Session)
	}
	if res.Achievements == nil || !unlockedIDs(res.Achievements)["first_focus"] {
		t.Fatalf("achievements=%+v", res.Achievements)
	}
	if res.State.Phase != timer.PhaseBreak {
		t.Fatalf("phase=%s, want break", res.State.Phase)
	}
	row, _ = store.ActiveTimer().Get(ctx)
	if row == nil || row.Phase != string(timer.PhaseBreak) {
		t.Fatalf("active timer=%+v", row)
	}

	res, err = f.svc.Dispatch(ctx, timer.Event{Kind: timer.EventSkipBreak})
	if err != nil || res.State.Phase != timer.PhaseIdle {
		t.Fatalf("skip state=%+v err=%v", res, err)
	}
	if row, _ = store.ActiveTimer().Get(ctx); row != nil {
		t.Fatalf("active timer must be deleted on idle: %+v", row)
	}

	if f.pub.count(eventbus.TypeSessionRecorded) != 1 {
		t.Fatalf("session events=%d", f.pub.count(eventbus.TypeSessionRecorded))
	}
	if f.pub.count(eventbus.TypeTimerPhaseChanged) != 3 {
		t.Fatalf("phase events=%d", f.pub.count(eventbus.TypeTimerPhaseChanged))
	}
	if f.pub.count(eventbus.TypeAchievementUnlocked) == 0 {
		t.Fatalf("expected unlock notification")
	}
}

func TestTimerService_EndEarly(t *testing.T) {
	store := newTestStorage(t)
	f := newTimerFixture(t, store, newTestClock(day(0, 14)))
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, schema.PresetDeep); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.clock.Advance(12 * time.Minute)
	if _, err := f.svc.Dispatch(ctx, timer.Event{Kind: timer.EventBreakSeal}); err != nil {
		t.Fatalf("seal: %v", err)
	}
	res, err := f.svc.Dispatch(ctx, timer.Event{Kind: timer.EventConfirmEndEarly})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Session == nil || res.Session.WasCompleted || res.Session.TotalMinutes != 12 {
		t.Fatalf("session=%+v", res.Session)
	}

	snap, err := f.engine.GetSnapshot(ctx)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.TotalSessions != 1 || snap.TotalCompletedSessions != 0 || snap.TotalDeepSessions != 0 {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestTimerService_RestoreAfterSuspend(t *testing.T) {
	store := newTestStorage(t)
	clock := newTestClock(day(0, 10))
	ctx := context.Background()

	first := newTimerFixture(t, store, clock)
	started, err := first.svc.Start(ctx, schema.PresetStandard)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// 进程被挂起一小时后重新启动
	clock.Advance(time.Hour)
	second := newTimerFixture(t, store, clock)
	res, err := second.svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Session == nil || res.Session.ID != started.State.SessionID || res.Session.TotalMinutes != 25 {
		t.Fatalf("fast-forwarded session=%+v", res.Session)
	}
	if res.State.Phase != timer.PhaseIdle {
		t.Fatalf("phase=%s, want idle", res.State.Phase)
	}
	if row, _ := store.ActiveTimer().Get(ctx); row != nil {
		t.Fatalf("active timer should be cleared: %+v", row)
	}
	n, _ := store.Sessions().Count(ctx)
	if n != 1 {
		t.Fatalf("sessions=%d", n)
	}
}

func TestTimerService_MalformedRowGoesIdle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	bad := &schema.ActiveTimer{SessionID: "x", Phase: "paused", PresetID: schema.PresetQuick, StartedAt: 1, EndsAt: 2}
	if err := store.ActiveTimer().Save(ctx, bad); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f := newTimerFixture(t, store, newTestClock(day(0, 10)))
	state, err := f.svc.State(ctx)
	if err != nil || state.Phase != timer.PhaseIdle {
		t.Fatalf("state=%+v err=%v", state, err)
	}
	if row, _ := store.ActiveTimer().Get(ctx); row != nil {
		t.Fatalf("malformed row should be discarded")
	}
}
