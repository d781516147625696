package schema

import "time"

// StreakID 连续天数记录的单行主键
const StreakID = 1

// StreakData 连续专注天数（单行，ID=1），仅由完成的会话推导
type StreakData struct {
	ID              int       `gorm:"primaryKey" json:"-"`
	CurrentStreak   int       `gorm:"not null;default:0" json:"current_streak"`
	BestStreak      int       `gorm:"not null;default:0" json:"best_streak"`
	LastActiveDate  string    `gorm:"size:10" json:"last_active_date"`
	StreakStartDate string    `gorm:"size:10" json:"streak_start_date"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName 指定表名
func (StreakData) TableName() string {
	return "streak_data"
}

// CurrentAsOf 以 today 为参照的当前连续天数。
// 今天没有会话但昨天有时不算中断；间隔超过一天则为 0。
func (s StreakData) CurrentAsOf(today string) int {
	if s.LastActiveDate == "" || s.CurrentStreak == 0 {
		return 0
	}
	gap, err := DaysBetween(s.LastActiveDate, today)
	if err != nil || gap > 1 {
		return 0
	}
	return s.CurrentStreak
}

// SameStreak 比较连续天数字段（忽略 ID 与更新时间）
func (s StreakData) SameStreak(o StreakData) bool {
	return s.CurrentStreak == o.CurrentStreak &&
		s.BestStreak == o.BestStreak &&
		s.LastActiveDate == o.LastActiveDate &&
		s.StreakStartDate == o.StreakStartDate
}
