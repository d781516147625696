package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/FocusMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActiveTimerRepository 进行中计时器单行仓储
type ActiveTimerRepository struct {
	db *gorm.DB
}

// NewActiveTimerRepository 创建仓储
func NewActiveTimerRepository(db *gorm.DB) *ActiveTimerRepository {
	return &ActiveTimerRepository{db: db}
}

// Get 读取进行中的计时器（无记录返回 nil）
func (r *ActiveTimerRepository) Get(ctx context.Context) (*schema.ActiveTimer, error) {
	var t schema.ActiveTimer
	if err := r.db.WithContext(ctx).First(&t, schema.ActiveTimerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询计时器失败: %w", err)
	}
	return &t, nil
}

// Save 覆盖写入
func (r *ActiveTimerRepository) Save(ctx context.Context, t *schema.ActiveTimer) error {
	if t == nil {
		return fmt.Errorf("active timer is nil")
	}
	t.ID = schema.ActiveTimerID
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"session_id", "phase", "preset_id", "started_at", "ends_at", "total_minutes", "updated_at",
		}),
	}).Create(t).Error
	if err != nil {
		return fmt.Errorf("写入计时器失败: %w", err)
	}
	return nil
}

// Delete 回到 idle 时删除
func (r *ActiveTimerRepository) Delete(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Delete(&schema.ActiveTimer{}, schema.ActiveTimerID).Error; err != nil {
		return fmt.Errorf("删除计时器失败: %w", err)
	}
	return nil
}
