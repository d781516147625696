package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合同一连接（或同一事务）上的全部仓储
type Store struct {
	db *gorm.DB

	Sessions     *SessionRepository
	DailyStats   *DailyStatsRepository
	Streak       *StreakRepository
	Achievements *AchievementRepository
	ActiveTimer  *ActiveTimerRepository
	Settings     *SettingsRepository
	Meta         *MetaRepository
}

// NewStore 基于 db 构建仓储集合
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Sessions:     NewSessionRepository(db),
		DailyStats:   NewDailyStatsRepository(db),
		Streak:       NewStreakRepository(db),
		Achievements: NewAchievementRepository(db),
		ActiveTimer:  NewActiveTimerRepository(db),
		Settings:     NewSettingsRepository(db),
		Meta:         NewMetaRepository(db),
	}
}

// Transaction 在事务中执行 fn；fn 拿到的 Store 上所有读写都走同一事务，返回错误即整体回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
