package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuqie6/FocusMirror/internal/eventbus"
	"github.com/yuqie6/FocusMirror/internal/schema"
	"github.com/yuqie6/FocusMirror/internal/timer"
)

// ErrTimerBusy 已有进行中的计时器
var ErrTimerBusy = errors.New("计时器正在运行")

// TimerServiceConfig 计时器服务配置
type TimerServiceConfig struct {
	Now        func() time.Time
	NewID      func() string
	AllowDebug bool // 非生产构建才允许加速
	Publisher  Publisher
}

// TimerResult 一次事件分发的结果
type TimerResult struct {
	State        timer.State               `json:"state"`
	Session      *schema.FocusSession      `json:"session,omitempty"`
	Achievements *AchievementProcessResult `json:"achievements,omitempty"`
}

// TimerService 驱动纯状态机：恢复、分发事件、持久化进行中的计时器，并把产生的会话交给引擎
type TimerService struct {
	timers     ActiveTimerRepository
	settings   *SettingsService
	engine     *AchievementEngine
	publisher  Publisher
	now        func() time.Time
	newID      func() string
	allowDebug bool

	mu     sync.Mutex
	state  timer.State
	loaded bool
}

// NewTimerService 创建计时器服务
func NewTimerService(store Storage, settings *SettingsService, engine *AchievementEngine, cfg *TimerServiceConfig) *TimerService {
	if cfg == nil {
		cfg = &TimerServiceConfig{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &TimerService{
		timers:     store.ActiveTimer(),
		settings:   settings,
		engine:     engine,
		publisher:  cfg.Publisher,
		now:        now,
		newID:      newID,
		allowDebug: cfg.AllowDebug,
		state:      timer.Idle(schema.PresetStandard),
	}
}

// Load 从存储恢复计时器；挂起期间已到期的专注会被补记
func (s *TimerService) Load(ctx context.Context) (*TimerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *TimerService) loadLocked(ctx context.Context) (*TimerResult, error) {
	cfg, err := s.timerSettings(ctx)
	if err != nil {
		return nil, err
	}
	row, err := s.timers.Get(ctx)
	if err != nil {
		return nil, err
	}

	restored, sessions := timer.Restore(row, s.state.SelectedPreset, cfg, s.now())
	if row != nil && restored.Phase == timer.PhaseIdle && len(sessions) == 0 {
		slog.Warn("丢弃无效或已结束的计时器记录", "phase", row.Phase, "session_id", row.SessionID)
	}

	result := &TimerResult{}
	for _, session := range sessions {
		res, err := s.record(ctx, session)
		if err != nil {
			return nil, err
		}
		result.Session = session
		result.Achievements = res
	}
	if err := s.persist(ctx, restored); err != nil {
		return nil, err
	}
	s.state = restored
	s.loaded = true
	result.State = restored
	return result, nil
}

// State 当前状态（未加载时先从存储恢复）
func (s *TimerService) State(ctx context.Context) (timer.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if _, err := s.loadLocked(ctx); err != nil {
			return s.state, err
		}
	}
	return s.state, nil
}

// Dispatch 分发一个事件。At 为空时取当前时间；开始专注时自动分配会话 ID。
// 产生的会话处理完成（含成就评估）后才返回，调用方据此串行化。
func (s *TimerService) Dispatch(ctx context.Context, ev timer.Event) (*TimerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if _, err := s.loadLocked(ctx); err != nil {
			return nil, err
		}
	}
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	if ev.Kind == timer.EventHoldThresholdMet && ev.SessionID == "" {
		ev.SessionID = s.newID()
	}

	cfg, err := s.timerSettings(ctx)
	if err != nil {
		return nil, err
	}

	prev := s.state
	next, session := timer.Reduce(prev, ev, cfg)

	result := &TimerResult{State: next, Session: session}
	if session != nil {
		// 会话写入失败时不推进状态，重试会以相同 ID 幂等写入
		res, err := s.record(ctx, session)
		if err != nil {
			return nil, err
		}
		result.Achievements = res
	}
	if next.Phase != prev.Phase || !next.EndsAt.Equal(prev.EndsAt) {
		if err := s.persist(ctx, next); err != nil {
			return nil, err
		}
	}
	s.state = next

	if next.Phase != prev.Phase {
		slog.Info("计时器阶段切换", "from", prev.Phase, "to", next.Phase, "event", ev.Kind, "session_id", next.SessionID)
		s.publish(eventbus.TypeTimerPhaseChanged, map[string]any{
			"from":       string(prev.Phase),
			"to":         string(next.Phase),
			"event":      string(ev.Kind),
			"session_id": next.SessionID,
		})
	}
	return result, nil
}

// Select 选择预设（仅 idle 时生效）
func (s *TimerService) Select(ctx context.Context, preset string) (*TimerResult, error) {
	if !schema.IsValidPreset(preset) {
		return nil, fmt.Errorf("未知预设: %s", preset)
	}
	return s.Dispatch(ctx, timer.Event{Kind: timer.EventSelectPreset, PresetID: preset})
}

// Start 长按达到阈值，开始专注；preset 为空时使用已选预设
func (s *TimerService) Start(ctx context.Context, preset string) (*TimerResult, error) {
	if preset != "" && !schema.IsValidPreset(preset) {
		return nil, fmt.Errorf("未知预设: %s", preset)
	}
	cur, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	if cur.Phase != timer.PhaseIdle {
		return &TimerResult{State: cur}, ErrTimerBusy
	}
	return s.Dispatch(ctx, timer.Event{Kind: timer.EventHoldThresholdMet, PresetID: preset})
}

// Tick 以当前时间推进
func (s *TimerService) Tick(ctx context.Context) (*TimerResult, error) {
	return s.Dispatch(ctx, timer.Event{Kind: timer.EventTick})
}

func (s *TimerService) timerSettings(ctx context.Context) (timer.Settings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return timer.Settings{}, fmt.Errorf("读取设置失败: %w", err)
	}
	return timer.Settings{
		AutoBreakEnabled: settings.AutoBreakEnabled,
		BreakDuration:    time.Duration(settings.BreakDurationMinutes) * time.Minute,
		AllowDebug:       s.allowDebug,
	}, nil
}

func (s *TimerService) record(ctx context.Context, session *schema.FocusSession) (*AchievementProcessResult, error) {
	res, err := s.engine.ProcessSession(ctx, session)
	if err != nil {
		return nil, err
	}
	s.publish(eventbus.TypeSessionRecorded, map[string]any{
		"id":            session.ID,
		"preset":        session.PresetID,
		"completed":     session.WasCompleted,
		"total_minutes": session.TotalMinutes,
	})
	return res, nil
}

func (s *TimerService) persist(ctx context.Context, state timer.State) error {
	row := timer.ToRow(state)
	if row == nil {
		return s.timers.Delete(ctx)
	}
	return s.timers.Save(ctx, row)
}

func (s *TimerService) publish(typ string, data map[string]any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(eventbus.Event{Type: typ, Timestamp: s.now().UnixMilli(), Data: data})
}
