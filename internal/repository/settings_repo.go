package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/FocusMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository 专注设置单行仓储
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository 创建仓储
func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get 读取设置（无记录返回 nil）
func (r *SettingsRepository) Get(ctx context.Context) (*schema.FocusSettings, error) {
	var s schema.FocusSettings
	if err := r.db.WithContext(ctx).First(&s, schema.FocusSettingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询设置失败: %w", err)
	}
	return &s, nil
}

// Save 覆盖写入
func (r *SettingsRepository) Save(ctx context.Context, s *schema.FocusSettings) error {
	if s == nil {
		return fmt.Errorf("settings is nil")
	}
	s.ID = schema.FocusSettingsID
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"daily_goal", "break_duration_minutes", "auto_break_enabled", "notifications_enabled", "updated_at",
		}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("写入设置失败: %w", err)
	}
	return nil
}
