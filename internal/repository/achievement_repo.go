package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/FocusMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AchievementRepository 成就定义与进度仓储
type AchievementRepository struct {
	db *gorm.DB
}

// NewAchievementRepository 创建仓储
func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// SeedDefinitions 写入成就目录；已存在的定义保持不变
func (r *AchievementRepository) SeedDefinitions(ctx context.Context, defs []schema.AchievementDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	rows := append([]schema.AchievementDefinition(nil), defs...)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&rows).Error; err != nil {
		return fmt.Errorf("写入成就目录失败: %w", err)
	}
	return nil
}

// ListDefinitions 按 sort_order 返回全部定义
func (r *AchievementRepository) ListDefinitions(ctx context.Context) ([]schema.AchievementDefinition, error) {
	var defs []schema.AchievementDefinition
	if err := r.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("查询成就目录失败: %w", err)
	}
	return defs, nil
}

// GetProgress 查询单个成就进度
func (r *AchievementRepository) GetProgress(ctx context.Context, id string) (*schema.AchievementProgress, error) {
	var p schema.AchievementProgress
	if err := r.db.WithContext(ctx).Where("achievement_id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询成就进度失败: %w", err)
	}
	return &p, nil
}

// ListProgress 返回全部进度行
func (r *AchievementRepository) ListProgress(ctx context.Context) ([]schema.AchievementProgress, error) {
	var out []schema.AchievementProgress
	if err := r.db.WithContext(ctx).Order("achievement_id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询成就进度失败: %w", err)
	}
	return out, nil
}

// monotonicProgressClause 解锁标记只做 OR，unlocked_at 只保留第一次写入的值
func monotonicProgressClause() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "achievement_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"current_progress": gorm.Expr("excluded.current_progress"),
			"target_value":     gorm.Expr("excluded.target_value"),
			"is_unlocked":      gorm.Expr("MAX(achievement_progress.is_unlocked, excluded.is_unlocked)"),
			"unlocked_at":      gorm.Expr("COALESCE(achievement_progress.unlocked_at, excluded.unlocked_at)"),
			"updated_at":       gorm.Expr("excluded.updated_at"),
		}),
	}
}

// UpsertProgress 单调写入进度
func (r *AchievementRepository) UpsertProgress(ctx context.Context, p *schema.AchievementProgress) error {
	if p == nil || p.AchievementID == "" {
		return fmt.Errorf("achievement progress 缺少 id")
	}
	if err := r.db.WithContext(ctx).Clauses(monotonicProgressClause()).Create(p).Error; err != nil {
		return fmt.Errorf("写入成就进度失败: %w", err)
	}
	return nil
}

// UpsertProgressBatch 批量单调写入（在事务中）
func (r *AchievementRepository) UpsertProgressBatch(ctx context.Context, items []schema.AchievementProgress) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range items {
			if err := tx.Clauses(monotonicProgressClause()).Create(&items[i]).Error; err != nil {
				return fmt.Errorf("批量写入成就进度失败: %w", err)
			}
		}
		return nil
	})
}

// ResetProgress 清零进度数值；解锁状态与解锁时间保留
func (r *AchievementRepository) ResetProgress(ctx context.Context) error {
	if err := r.db.WithContext(ctx).
		Model(&schema.AchievementProgress{}).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Update("current_progress", 0).Error; err != nil {
		return fmt.Errorf("重置成就进度失败: %w", err)
	}
	return nil
}
