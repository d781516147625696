// Package timer 计时器阶段状态机：纯函数，不读时钟、不生成 ID、不做 I/O。
package timer

import (
	"math"
	"time"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

// Phase 计时器阶段
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFocusing   Phase = "focusing"
	PhaseBreak      Phase = "break"
	PhaseEndedEarly Phase = "ended_early"
)

// Valid 是否为已知阶段
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseFocusing, PhaseBreak, PhaseEndedEarly:
		return true
	}
	return false
}

// EventKind 计时器事件类型
type EventKind string

const (
	EventSelectPreset     EventKind = "select_preset"
	EventHoldThresholdMet EventKind = "hold_threshold_met"
	EventTick             EventKind = "tick"
	EventBreakSeal        EventKind = "break_seal"
	EventConfirmEndEarly  EventKind = "confirm_end_early"
	EventCancelEndEarly   EventKind = "cancel_end_early"
	EventSkipBreak        EventKind = "skip_break"
	EventDebugAccelerate  EventKind = "debug_accelerate"
)

// 默认与加速后的 UI 刷新间隔
const (
	DefaultTickInterval     = time.Second
	AcceleratedTickInterval = 50 * time.Millisecond
)

// Event 计时器事件。At 为事件发生时刻；SessionID 仅 HOLD_THRESHOLD_MET 使用。
type Event struct {
	Kind      EventKind
	At        time.Time
	PresetID  string
	SessionID string
}

// Settings 状态机读取的设置
type Settings struct {
	AutoBreakEnabled bool
	BreakDuration    time.Duration
	AllowDebug       bool // 仅非生产构建为 true
}

// State 计时器状态
type State struct {
	Phase          Phase
	SelectedPreset string
	SessionID      string
	PresetID       string
	StartedAt      time.Time
	EndsAt         time.Time
	TotalMinutes   int
	Remaining      time.Duration
	TickInterval   time.Duration
}

// Idle 初始状态
func Idle(selected string) State {
	if !schema.IsValidPreset(selected) {
		selected = schema.PresetStandard
	}
	return State{Phase: PhaseIdle, SelectedPreset: selected, TickInterval: DefaultTickInterval}
}

// Reduce 根据事件计算下一个状态；当一次专注结束（完成或提前结束）时返回会话记录。
// 不适用于当前阶段的事件原样返回状态。
func Reduce(s State, ev Event, settings Settings) (State, *schema.FocusSession) {
	if s.TickInterval <= 0 {
		s.TickInterval = DefaultTickInterval
	}
	if ev.Kind == EventDebugAccelerate {
		if settings.AllowDebug {
			s.TickInterval = AcceleratedTickInterval
		}
		return s, nil
	}

	switch s.Phase {
	case PhaseIdle:
		return reduceIdle(s, ev)
	case PhaseFocusing:
		return reduceFocusing(s, ev, settings)
	case PhaseEndedEarly:
		return reduceEndedEarly(s, ev)
	case PhaseBreak:
		return reduceBreak(s, ev)
	}
	return Idle(s.SelectedPreset), nil
}

func reduceIdle(s State, ev Event) (State, *schema.FocusSession) {
	switch ev.Kind {
	case EventSelectPreset:
		if schema.IsValidPreset(ev.PresetID) {
			s.SelectedPreset = ev.PresetID
		}
		return s, nil
	case EventHoldThresholdMet:
		preset := ev.PresetID
		if preset == "" {
			preset = s.SelectedPreset
		}
		minutes, ok := schema.PresetMinutes[preset]
		if !ok || ev.SessionID == "" {
			return s, nil
		}
		next := State{
			Phase:          PhaseFocusing,
			SelectedPreset: preset,
			SessionID:      ev.SessionID,
			PresetID:       preset,
			StartedAt:      ev.At,
			EndsAt:         ev.At.Add(time.Duration(minutes) * time.Minute),
			TotalMinutes:   minutes,
			TickInterval:   s.TickInterval,
		}
		next.Remaining = next.EndsAt.Sub(ev.At)
		return next, nil
	}
	return s, nil
}

func reduceFocusing(s State, ev Event, settings Settings) (State, *schema.FocusSession) {
	switch ev.Kind {
	case EventTick:
		s.Remaining = s.EndsAt.Sub(ev.At)
		if s.Remaining > 0 {
			return s, nil
		}
		session := completedSession(s)
		if settings.AutoBreakEnabled && settings.BreakDuration > 0 {
			// 休息从专注计划结束时刻开始计，后台挂起期间同样流逝
			next := State{
				Phase:          PhaseBreak,
				SelectedPreset: s.SelectedPreset,
				SessionID:      s.SessionID,
				PresetID:       s.PresetID,
				StartedAt:      s.EndsAt,
				EndsAt:         s.EndsAt.Add(settings.BreakDuration),
				TotalMinutes:   s.TotalMinutes,
				TickInterval:   s.TickInterval,
			}
			next.Remaining = next.EndsAt.Sub(ev.At)
			return next, session
		}
		return backToIdle(s), session
	case EventBreakSeal:
		s.Phase = PhaseEndedEarly
		return s, nil
	}
	return s, nil
}

func reduceEndedEarly(s State, ev Event) (State, *schema.FocusSession) {
	switch ev.Kind {
	case EventConfirmEndEarly:
		return backToIdle(s), abortedSession(s, ev.At)
	case EventCancelEndEarly:
		s.Phase = PhaseFocusing
		s.Remaining = s.EndsAt.Sub(ev.At)
		return s, nil
	}
	return s, nil
}

func reduceBreak(s State, ev Event) (State, *schema.FocusSession) {
	switch ev.Kind {
	case EventTick:
		s.Remaining = s.EndsAt.Sub(ev.At)
		if s.Remaining > 0 {
			return s, nil
		}
		return backToIdle(s), nil
	case EventSkipBreak:
		return backToIdle(s), nil
	}
	return s, nil
}

func backToIdle(s State) State {
	next := Idle(s.SelectedPreset)
	next.TickInterval = s.TickInterval
	return next
}

func completedSession(s State) *schema.FocusSession {
	completedAt := s.EndsAt.UnixMilli()
	return &schema.FocusSession{
		ID:           s.SessionID,
		PresetID:     s.PresetID,
		StartedAt:    s.StartedAt.UnixMilli(),
		EndsAt:       s.EndsAt.UnixMilli(),
		CompletedAt:  &completedAt,
		WasCompleted: true,
		TotalMinutes: roundMinutes(s.EndsAt.Sub(s.StartedAt)),
	}
}

func abortedSession(s State, at time.Time) *schema.FocusSession {
	minutes := roundMinutes(at.Sub(s.StartedAt))
	if minutes < 0 {
		minutes = 0
	}
	if limit := schema.PresetMinutes[s.PresetID]; limit > 0 && minutes > limit {
		minutes = limit
	}
	return &schema.FocusSession{
		ID:           s.SessionID,
		PresetID:     s.PresetID,
		StartedAt:    s.StartedAt.UnixMilli(),
		EndsAt:       s.EndsAt.UnixMilli(),
		WasCompleted: false,
		TotalMinutes: minutes,
	}
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
