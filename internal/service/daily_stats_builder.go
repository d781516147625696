package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

// DailyStatsBuilder 从会话日志重算每日聚合（整行重算，不做增量累加）
type DailyStatsBuilder struct {
	sessions SessionRepository
	stats    DailyStatsRepository
}

// NewDailyStatsBuilder 基于 store（可为事务内的 Storage）创建
func NewDailyStatsBuilder(store Storage) *DailyStatsBuilder {
	return &DailyStatsBuilder{sessions: store.Sessions(), stats: store.DailyStats()}
}

// RebuildDate 重算某一天的聚合并写入；当天已无会话时删除聚合，返回 nil
func (b *DailyStatsBuilder) RebuildDate(ctx context.Context, date string, dailyGoal int) (*schema.DailyStats, error) {
	sessions, err := b.sessions.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, b.stats.DeleteByDate(ctx, date)
	}
	row := aggregateDay(date, sessions, dailyGoal)
	if err := b.stats.Upsert(ctx, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// RebuildAll 按日志中出现的每个日期重算聚合
func (b *DailyStatsBuilder) RebuildAll(ctx context.Context, dailyGoal int) ([]schema.DailyStats, error) {
	all, err := b.sessions.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string][]schema.FocusSession)
	for _, s := range all {
		if s.Date == "" {
			s.FillDerived()
		}
		byDate[s.Date] = append(byDate[s.Date], s)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]schema.DailyStats, 0, len(dates))
	for _, d := range dates {
		row := aggregateDay(d, byDate[d], dailyGoal)
		if err := b.stats.Upsert(ctx, &row); err != nil {
			return nil, fmt.Errorf("重建 %s 聚合失败: %w", d, err)
		}
		out = append(out, row)
	}
	return out, nil
}

// aggregateDay 单日聚合。RebuildDate 与 RebuildAll 共用，保证两条路径结果一致。
func aggregateDay(date string, sessions []schema.FocusSession, dailyGoal int) schema.DailyStats {
	row := schema.DailyStats{Date: date}
	for _, s := range sessions {
		row.TotalSessions++
		row.TotalMinutes += s.TotalMinutes
		if !s.WasCompleted {
			continue
		}
		row.CompletedSessions++
		switch s.PresetID {
		case schema.PresetQuick:
			row.QuickSessions++
		case schema.PresetStandard:
			row.StandardSessions++
		case schema.PresetDeep:
			row.DeepSessions++
		}
	}
	row.MetGoal = dailyGoal > 0 && row.CompletedSessions >= dailyGoal
	return row
}
