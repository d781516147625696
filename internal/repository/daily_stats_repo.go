package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/FocusMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyStatsRepository 每日聚合仓储
type DailyStatsRepository struct {
	db *gorm.DB
}

// NewDailyStatsRepository 创建仓储
func NewDailyStatsRepository(db *gorm.DB) *DailyStatsRepository {
	return &DailyStatsRepository{db: db}
}

// Upsert 按日期插入或整行覆盖
func (r *DailyStatsRepository) Upsert(ctx context.Context, stats *schema.DailyStats) error {
	if stats == nil || stats.Date == "" {
		return fmt.Errorf("daily stats 缺少日期")
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_sessions", "completed_sessions", "total_minutes",
			"quick_sessions", "standard_sessions", "deep_sessions",
			"met_goal", "updated_at",
		}),
	}).Create(stats).Error
	if err != nil {
		return fmt.Errorf("写入每日统计失败: %w", err)
	}
	return nil
}

// GetByDate 按日期获取
func (r *DailyStatsRepository) GetByDate(ctx context.Context, date string) (*schema.DailyStats, error) {
	var stats schema.DailyStats
	err := r.db.WithContext(ctx).Where("date = ?", date).First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询每日统计失败: %w", err)
	}
	return &stats, nil
}

// ListAll 按日期升序返回全部聚合
func (r *DailyStatsRepository) ListAll(ctx context.Context) ([]schema.DailyStats, error) {
	var out []schema.DailyStats
	if err := r.db.WithContext(ctx).Order("date ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询每日统计失败: %w", err)
	}
	return out, nil
}

// GetByDateRange 获取日期范围内的聚合（闭区间，倒序）
func (r *DailyStatsRepository) GetByDateRange(ctx context.Context, startDate, endDate string) ([]schema.DailyStats, error) {
	var out []schema.DailyStats
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", startDate, endDate).
		Order("date DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询日期范围统计失败: %w", err)
	}
	return out, nil
}

// ListMetGoalDates 达成每日目标的日期，倒序
func (r *DailyStatsRepository) ListMetGoalDates(ctx context.Context) ([]string, error) {
	var dates []string
	if err := r.db.WithContext(ctx).
		Model(&schema.DailyStats{}).
		Where("met_goal = ?", true).
		Order("date DESC").
		Pluck("date", &dates).Error; err != nil {
		return nil, fmt.Errorf("查询达标日期失败: %w", err)
	}
	return dates, nil
}

// DeleteByDate 删除某天的聚合
func (r *DailyStatsRepository) DeleteByDate(ctx context.Context, date string) error {
	if err := r.db.WithContext(ctx).Where("date = ?", date).Delete(&schema.DailyStats{}).Error; err != nil {
		return fmt.Errorf("删除每日统计失败: %w", err)
	}
	return nil
}

// DeleteAll 清空派生聚合（不影响会话日志）
func (r *DailyStatsRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&schema.DailyStats{}).Error; err != nil {
		return fmt.Errorf("清空每日统计失败: %w", err)
	}
	return nil
}
