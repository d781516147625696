package schema

import "time"

// DailyStats 每日聚合（派生数据，可由 focus_sessions 完全重建）
type DailyStats struct {
	Date              string    `gorm:"primaryKey;size:10" json:"date"` // YYYY-MM-DD
	TotalSessions     int       `gorm:"not null;default:0" json:"total_sessions"`
	CompletedSessions int       `gorm:"not null;default:0" json:"completed_sessions"`
	TotalMinutes      int       `gorm:"not null;default:0" json:"total_minutes"`
	QuickSessions     int       `gorm:"not null;default:0" json:"quick_sessions"`    // 完成的 quick 会话
	StandardSessions  int       `gorm:"not null;default:0" json:"standard_sessions"` // 完成的 standard 会话
	DeepSessions      int       `gorm:"not null;default:0" json:"deep_sessions"`     // 完成的 deep 会话
	MetGoal           bool      `gorm:"not null;default:false;index" json:"met_goal"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (DailyStats) TableName() string {
	return "daily_stats"
}

// SameAggregate 比较聚合字段（忽略更新时间）
func (d DailyStats) SameAggregate(o DailyStats) bool {
	d.UpdatedAt = time.Time{}
	o.UpdatedAt = time.Time{}
	return d == o
}
