package legacy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

// Reader 旧版键值读取
type Reader interface {
	Get(key string) ([]byte, error)
}

// Timestamp 兼容 RFC 3339 字符串与毫秒数字两种写法
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("解析时间 %q 失败: %w", s, err)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil {
			return fmt.Errorf("解析时间 %s 失败: %w", b, err)
		}
		ms = int64(f)
	}
	t.Time = time.UnixMilli(ms)
	return nil
}

// millis 零值返回 0
func (t Timestamp) millis() int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Session 旧版会话记录
type Session struct {
	ID           string     `json:"id"`
	PresetID     string     `json:"presetId"`
	StartedAt    Timestamp  `json:"startedAt"`
	EndsAt       Timestamp  `json:"endsAt"`
	CompletedAt  *Timestamp `json:"completedAt"`
	WasCompleted bool       `json:"wasCompleted"`
	TotalMinutes int        `json:"totalMinutes"`
}

// Settings 旧版设置
type Settings struct {
	DailyGoal            *int  `json:"dailyGoal"`
	BreakDuration        *int  `json:"breakDuration"`
	AutoBreakEnabled     *bool `json:"autoBreakEnabled"`
	NotificationsEnabled *bool `json:"notificationsEnabled"`
}

// Profile 旧版用户资料（只导出，不导入）
type Profile struct {
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"createdAt"`
}

// ActiveTimer 旧版进行中的计时器
type ActiveTimer struct {
	SessionID    string    `json:"sessionId"`
	Phase        string    `json:"phase"`
	PresetID     string    `json:"presetId"`
	StartedAt    Timestamp `json:"startedAt"`
	EndsAt       Timestamp `json:"endsAt"`
	TotalMinutes int       `json:"totalMinutes"`
}

// Snapshot 一次导出的结果
type Snapshot struct {
	Sessions    []schema.FocusSession
	SourceIDs   []string              // 去重后的来源会话 ID（按首次出现顺序）
	Skipped     int                   // 字段不合法而跳过的记录数
	Settings    *schema.FocusSettings // nil 表示缺失或损坏
	Profile     *Profile
	ActiveTimer *schema.ActiveTimer
}

// 旧版阶段名到新版的映射
var phaseNames = map[string]string{
	"idle":        "idle",
	"focusing":    "focusing",
	"break":       "break",
	"endedEarly":  "ended_early",
	"ended_early": "ended_early",
}

// Export 导出旧版状态。会话数据损坏返回错误；设置、资料与计时器损坏时按缺失处理。
func Export(r Reader, defaults schema.FocusSettings) (*Snapshot, error) {
	snap := &Snapshot{}

	raw, err := r.Get(KeySessions)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		var legacy []Session
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("旧版会话数据损坏: %w", err)
		}
		seen := make(map[string]struct{}, len(legacy))
		for _, ls := range legacy {
			s, ok := convertSession(ls)
			if !ok {
				snap.Skipped++
				slog.Warn("跳过不合法的旧版会话", "id", ls.ID, "preset", ls.PresetID)
				continue
			}
			if _, dup := seen[s.ID]; !dup {
				seen[s.ID] = struct{}{}
				snap.SourceIDs = append(snap.SourceIDs, s.ID)
			}
			snap.Sessions = append(snap.Sessions, s)
		}
	}

	if raw, err = r.Get(KeySettings); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		var ls Settings
		if err := json.Unmarshal(raw, &ls); err != nil {
			slog.Warn("旧版设置损坏，使用默认设置", "error", err)
		} else {
			snap.Settings = convertSettings(ls, defaults)
		}
	}

	if raw, err = r.Get(KeyProfile); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		var p Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			slog.Warn("旧版资料损坏，忽略", "error", err)
		} else {
			snap.Profile = &p
		}
	}

	if raw, err = r.Get(KeyActiveTimer); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		var lt ActiveTimer
		if err := json.Unmarshal(raw, &lt); err != nil {
			slog.Warn("旧版计时器损坏，忽略", "error", err)
		} else {
			snap.ActiveTimer = convertActiveTimer(lt)
		}
	}

	return snap, nil
}

func convertSession(ls Session) (schema.FocusSession, bool) {
	if ls.ID == "" || !schema.IsValidPreset(ls.PresetID) || ls.StartedAt.IsZero() || ls.TotalMinutes < 0 {
		return schema.FocusSession{}, false
	}
	s := schema.FocusSession{
		ID:           ls.ID,
		PresetID:     ls.PresetID,
		StartedAt:    ls.StartedAt.millis(),
		EndsAt:       ls.EndsAt.millis(),
		WasCompleted: ls.WasCompleted,
		TotalMinutes: ls.TotalMinutes,
	}
	if s.EndsAt == 0 {
		s.EndsAt = ls.StartedAt.Add(time.Duration(schema.PresetMinutes[ls.PresetID]) * time.Minute).UnixMilli()
	}
	if ls.WasCompleted {
		at := s.EndsAt
		if ls.CompletedAt != nil && !ls.CompletedAt.IsZero() {
			at = ls.CompletedAt.millis()
		}
		s.CompletedAt = &at
	}
	s.FillDerived()
	return s, true
}

func convertSettings(ls Settings, defaults schema.FocusSettings) *schema.FocusSettings {
	out := defaults
	out.ID = schema.FocusSettingsID
	if ls.DailyGoal != nil {
		out.DailyGoal = *ls.DailyGoal
	}
	if ls.BreakDuration != nil {
		out.BreakDurationMinutes = *ls.BreakDuration
	}
	if ls.AutoBreakEnabled != nil {
		out.AutoBreakEnabled = *ls.AutoBreakEnabled
	}
	if ls.NotificationsEnabled != nil {
		out.NotificationsEnabled = *ls.NotificationsEnabled
	}
	return &out
}

func convertActiveTimer(lt ActiveTimer) *schema.ActiveTimer {
	phase, ok := phaseNames[lt.Phase]
	if !ok || phase == "idle" {
		return nil
	}
	return &schema.ActiveTimer{
		ID:           schema.ActiveTimerID,
		SessionID:    lt.SessionID,
		Phase:        phase,
		PresetID:     lt.PresetID,
		StartedAt:    lt.StartedAt.millis(),
		EndsAt:       lt.EndsAt.millis(),
		TotalMinutes: lt.TotalMinutes,
	}
}
