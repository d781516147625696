package schema

import "time"

// ActiveTimerID 进行中计时器的单行主键
const ActiveTimerID = 1

// ActiveTimer 进行中的计时器（单行，ID=1）
// 每次阶段切换覆盖写入；回到 idle 时删除。
type ActiveTimer struct {
	ID           int       `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"size:64" json:"session_id"`
	Phase        string    `gorm:"size:20" json:"phase"`
	PresetID     string    `gorm:"size:20" json:"preset_id"`
	StartedAt    int64     `json:"started_at"` // 毫秒
	EndsAt       int64     `json:"ends_at"`    // 毫秒
	TotalMinutes int       `json:"total_minutes"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (ActiveTimer) TableName() string {
	return "active_timer"
}
