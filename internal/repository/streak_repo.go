package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/FocusMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StreakRepository 连续天数单行仓储
type StreakRepository struct {
	db *gorm.DB
}

// NewStreakRepository 创建仓储
func NewStreakRepository(db *gorm.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// Get 读取连续天数（无记录返回 nil）
func (r *StreakRepository) Get(ctx context.Context) (*schema.StreakData, error) {
	var s schema.StreakData
	if err := r.db.WithContext(ctx).First(&s, schema.StreakID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询连续天数失败: %w", err)
	}
	return &s, nil
}

// Save 覆盖写入单行
func (r *StreakRepository) Save(ctx context.Context, s *schema.StreakData) error {
	if s == nil {
		return fmt.Errorf("streak is nil")
	}
	s.ID = schema.StreakID
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_streak", "best_streak", "last_active_date", "streak_start_date", "updated_at",
		}),
	}).Create(s).Error
	if err != nil {
		return fmt.Errorf("写入连续天数失败: %w", err)
	}
	return nil
}

// Delete 删除单行（重算前清理）
func (r *StreakRepository) Delete(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Delete(&schema.StreakData{}, schema.StreakID).Error; err != nil {
		return fmt.Errorf("删除连续天数失败: %w", err)
	}
	return nil
}
