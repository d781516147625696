package schema

import "time"

// 成就判定类型
const (
	CriteriaThreshold  = "threshold"
	CriteriaStreak     = "streak"
	CriteriaCumulative = "cumulative"
	CriteriaRate       = "rate"
	CriteriaPattern    = "pattern"
)

// 累计类成就的统计口径
const (
	UnitSessions     = "sessions"
	UnitDeepSessions = "deep_sessions"
	UnitMinutes      = "minutes"
)

// AchievementDefinition 成就定义（静态目录，初始化时写入一次，用户不可修改）
// 数据量级：十级
type AchievementDefinition struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Category      string    `gorm:"size:30;index" json:"category" yaml:"category"`
	CriteriaType  string    `gorm:"size:20" json:"criteria_type" yaml:"criteria_type"`
	CriteriaValue int       `gorm:"not null" json:"criteria_value" yaml:"criteria_value"`
	CriteriaUnit  string    `gorm:"size:20" json:"criteria_unit,omitempty" yaml:"criteria_unit"`
	MinSample     int       `gorm:"not null;default:0" json:"min_sample,omitempty" yaml:"min_sample"` // 仅 rate 类型使用
	SortOrder     int       `gorm:"index" json:"sort_order" yaml:"sort_order"`
	IsHidden      bool      `gorm:"not null;default:false" json:"is_hidden" yaml:"is_hidden"`
	Title         string    `gorm:"size:100" json:"title" yaml:"title"`
	Description   string    `gorm:"size:255" json:"description" yaml:"description"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"-" yaml:"-"`
}

// TableName 指定表名
func (AchievementDefinition) TableName() string {
	return "achievement_definitions"
}

// AchievementProgress 成就进度（每个定义一行）
// 单调性：IsUnlocked 一旦为 true 不再回退，UnlockedAt 只在首次解锁时写入。
type AchievementProgress struct {
	AchievementID   string    `gorm:"primaryKey;size:64" json:"achievement_id"`
	CurrentProgress int       `gorm:"not null;default:0" json:"current_progress"`
	TargetValue     int       `gorm:"not null;default:0" json:"target_value"`
	IsUnlocked      bool      `gorm:"not null;default:false;index" json:"is_unlocked"`
	UnlockedAt      *int64    `json:"unlocked_at"` // 毫秒
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName 指定表名
func (AchievementProgress) TableName() string {
	return "achievement_progress"
}
