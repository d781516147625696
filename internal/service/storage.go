package service

import (
	"context"

	"github.com/yuqie6/FocusMirror/internal/repository"
)

type repoStorage struct {
	store *repository.Store
}

// NewRepositoryStorage 将 repository.Store 适配为 Storage
func NewRepositoryStorage(store *repository.Store) Storage {
	return &repoStorage{store: store}
}

func (s *repoStorage) Sessions() SessionRepository         { return s.store.Sessions }
func (s *repoStorage) DailyStats() DailyStatsRepository    { return s.store.DailyStats }
func (s *repoStorage) Streak() StreakRepository            { return s.store.Streak }
func (s *repoStorage) Achievements() AchievementRepository { return s.store.Achievements }
func (s *repoStorage) ActiveTimer() ActiveTimerRepository  { return s.store.ActiveTimer }
func (s *repoStorage) Settings() SettingsRepository        { return s.store.Settings }
func (s *repoStorage) Meta() MetaRepository                { return s.store.Meta }

func (s *repoStorage) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		return fn(&repoStorage{store: tx})
	})
}
