package service

import (
	"context"

	"github.com/yuqie6/FocusMirror/internal/eventbus"
	"github.com/yuqie6/FocusMirror/internal/repository"
	"github.com/yuqie6/FocusMirror/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

type SessionRepository interface {
	Upsert(ctx context.Context, session *schema.FocusSession) error
	UpsertBatch(ctx context.Context, sessions []schema.FocusSession) error
	GetByID(ctx context.Context, id string) (*schema.FocusSession, error)
	GetByDate(ctx context.Context, date string) ([]schema.FocusSession, error)
	ListAll(ctx context.Context) ([]schema.FocusSession, error)
	ListRecent(ctx context.Context, limit int) ([]schema.FocusSession, error)
	ListCompletedDates(ctx context.Context) ([]string, error)
	Totals(ctx context.Context) (repository.SessionTotals, error)
	HasCompletedBeforeHour(ctx context.Context, hour int) (bool, error)
	HasCompletedFromHour(ctx context.Context, hour int) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountByIDs(ctx context.Context, ids []string) (int64, error)
}

type DailyStatsRepository interface {
	Upsert(ctx context.Context, stats *schema.DailyStats) error
	GetByDate(ctx context.Context, date string) (*schema.DailyStats, error)
	ListAll(ctx context.Context) ([]schema.DailyStats, error)
	GetByDateRange(ctx context.Context, startDate, endDate string) ([]schema.DailyStats, error)
	ListMetGoalDates(ctx context.Context) ([]string, error)
	DeleteByDate(ctx context.Context, date string) error
	DeleteAll(ctx context.Context) error
}

type StreakRepository interface {
	Get(ctx context.Context) (*schema.StreakData, error)
	Save(ctx context.Context, s *schema.StreakData) error
	Delete(ctx context.Context) error
}

type AchievementRepository interface {
	SeedDefinitions(ctx context.Context, defs []schema.AchievementDefinition) error
	ListDefinitions(ctx context.Context) ([]schema.AchievementDefinition, error)
	GetProgress(ctx context.Context, id string) (*schema.AchievementProgress, error)
	ListProgress(ctx context.Context) ([]schema.AchievementProgress, error)
	UpsertProgressBatch(ctx context.Context, items []schema.AchievementProgress) error
	ResetProgress(ctx context.Context) error
}

type ActiveTimerRepository interface {
	Get(ctx context.Context) (*schema.ActiveTimer, error)
	Save(ctx context.Context, t *schema.ActiveTimer) error
	Delete(ctx context.Context) error
}

type SettingsRepository interface {
	Get(ctx context.Context) (*schema.FocusSettings, error)
	Save(ctx context.Context, s *schema.FocusSettings) error
}

type MetaRepository interface {
	GetLegacyImportVersion(ctx context.Context) (int, error)
	SetLegacyImportVersion(ctx context.Context, version int) error
}

// Storage 持久化层入口；Transaction 内 fn 拿到的 Storage 上所有读写属于同一事务
type Storage interface {
	Sessions() SessionRepository
	DailyStats() DailyStatsRepository
	Streak() StreakRepository
	Achievements() AchievementRepository
	ActiveTimer() ActiveTimerRepository
	Settings() SettingsRepository
	Meta() MetaRepository
	Transaction(ctx context.Context, fn func(tx Storage) error) error
}

// Publisher 进程内通知（eventbus.Hub 实现）
type Publisher interface {
	Publish(evt eventbus.Event)
}
