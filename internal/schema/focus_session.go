package schema

import (
	"time"
)

// 预设 ID
const (
	PresetQuick    = "quick"
	PresetStandard = "standard"
	PresetDeep     = "deep"
)

// PresetMinutes 各预设的专注时长（分钟）
var PresetMinutes = map[string]int{
	PresetQuick:    15,
	PresetStandard: 25,
	PresetDeep:     50,
}

// IsValidPreset 判断预设 ID 是否合法
func IsValidPreset(id string) bool {
	_, ok := PresetMinutes[id]
	return ok
}

// FocusSession 一次结束（完成或提前结束）的专注会话，写入后不再修改
// 数据量级：千级/年
type FocusSession struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	PresetID     string    `gorm:"size:20;index" json:"preset_id"`
	StartedAt    int64     `gorm:"index" json:"started_at"`         // Unix 时间戳（毫秒）
	EndsAt       int64     `json:"ends_at"`                         // 计划结束时间（毫秒）
	CompletedAt  *int64    `json:"completed_at"`                    // 仅完成的会话有值
	WasCompleted bool      `gorm:"index" json:"was_completed"`      // 是否完整跑完预设时长
	TotalMinutes int       `gorm:"not null" json:"total_minutes"`   // 实际专注分钟数
	Date         string    `gorm:"size:10;index" json:"date"`       // YYYY-MM-DD（冗余字段，started_at 的本地日期）
	LocalHour    int       `gorm:"index" json:"local_hour"`         // started_at 的本地小时（冗余字段）
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (FocusSession) TableName() string {
	return "focus_sessions"
}

// FillDerived 根据 started_at 填充冗余的日期与小时字段
func (s *FocusSession) FillDerived() {
	if s == nil || s.StartedAt <= 0 {
		return
	}
	s.Date = DateOf(s.StartedAt)
	s.LocalHour = HourOf(s.StartedAt)
}

// IsDeep 完成的 deep 预设会话
func (s *FocusSession) IsDeep() bool {
	return s.WasCompleted && s.PresetID == PresetDeep
}
