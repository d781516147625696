package schema

import "time"

// FocusSettingsID 设置的单行主键
const FocusSettingsID = 1

// FocusSettings 专注设置（单行，ID=1）
// 引擎只读取 DailyGoal；计时器读取休息相关字段。
type FocusSettings struct {
	ID                   int       `gorm:"primaryKey" json:"-"`
	DailyGoal            int       `gorm:"not null;default:4" json:"daily_goal" validate:"min=1,max=24"`
	BreakDurationMinutes int       `gorm:"not null;default:5" json:"break_duration_minutes" validate:"min=1,max=60"`
	AutoBreakEnabled     bool      `gorm:"not null" json:"auto_break_enabled"`
	NotificationsEnabled bool      `gorm:"not null" json:"notifications_enabled"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName 指定表名
func (FocusSettings) TableName() string {
	return "focus_settings"
}

// DefaultFocusSettings 默认设置
func DefaultFocusSettings() FocusSettings {
	return FocusSettings{
		ID:                   FocusSettingsID,
		DailyGoal:            4,
		BreakDurationMinutes: 5,
		AutoBreakEnabled:     true,
		NotificationsEnabled: true,
	}
}
