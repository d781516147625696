package service

import (
	"context"
	"math"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

// 时间段判定边界（本地小时）
const (
	earlyBeforeHour = 9
	lateFromHour    = 22
)

// StatsSnapshot 一次成就评估使用的全局统计
type StatsSnapshot struct {
	TotalSessions          int     `json:"total_sessions"`
	TotalCompletedSessions int     `json:"total_completed_sessions"`
	TotalMinutes           int     `json:"total_minutes"`       // 全部专注分钟（含提前结束）
	TotalDeepSessions      int     `json:"total_deep_sessions"` // 完成的 deep 会话
	CompletionRate         float64 `json:"completion_rate"`     // 百分比，保留一位小数
	CurrentStreak          int     `json:"current_streak"`
	BestStreak             int     `json:"best_streak"`
	TodayCompleted         int     `json:"today_completed"`
	TodayDeep              int     `json:"today_deep"`
	TodayMetGoal           bool    `json:"today_met_goal"`
	ConsecutiveGoalDays    int     `json:"consecutive_goal_days"`
	HasEarlySession        bool    `json:"has_early_session"`
	HasLateSession         bool    `json:"has_late_session"`
}

// buildSnapshot 汇总日志与派生表；streak 为刚写入的存储值
func buildSnapshot(ctx context.Context, store Storage, streak schema.StreakData, today string) (StatsSnapshot, error) {
	var snap StatsSnapshot

	totals, err := store.Sessions().Totals(ctx)
	if err != nil {
		return snap, err
	}
	snap.TotalSessions = int(totals.TotalSessions)
	snap.TotalCompletedSessions = int(totals.CompletedSessions)
	snap.TotalMinutes = int(totals.TotalMinutes)
	snap.TotalDeepSessions = int(totals.DeepSessions)
	snap.CompletionRate = completionRate(snap.TotalCompletedSessions, snap.TotalSessions)

	snap.CurrentStreak = streak.CurrentStreak
	snap.BestStreak = streak.BestStreak

	day, err := store.DailyStats().GetByDate(ctx, today)
	if err != nil {
		return snap, err
	}
	if day != nil {
		snap.TodayCompleted = day.CompletedSessions
		snap.TodayDeep = day.DeepSessions
		snap.TodayMetGoal = day.MetGoal
	}

	goalDates, err := store.DailyStats().ListMetGoalDates(ctx)
	if err != nil {
		return snap, err
	}
	snap.ConsecutiveGoalDays, err = consecutiveDaysFrom(goalDates, today)
	if err != nil {
		return snap, err
	}

	if snap.HasEarlySession, err = store.Sessions().HasCompletedBeforeHour(ctx, earlyBeforeHour); err != nil {
		return snap, err
	}
	if snap.HasLateSession, err = store.Sessions().HasCompletedFromHour(ctx, lateFromHour); err != nil {
		return snap, err
	}
	return snap, nil
}

func completionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}

// consecutiveDaysFrom 从 today 往回数连续天数（降序日期）；最近一天是昨天时同样计入
func consecutiveDaysFrom(desc []string, today string) (int, error) {
	// 晚于 today 的日期（时钟回拨）不参与计数
	for len(desc) > 0 && desc[0] > today {
		desc = desc[1:]
	}
	if len(desc) == 0 {
		return 0, nil
	}
	gap, err := schema.DaysBetween(desc[0], today)
	if err != nil {
		return 0, err
	}
	if gap > 1 {
		return 0, nil
	}
	count := 1
	for i := 1; i < len(desc); i++ {
		d, err := schema.DaysBetween(desc[i], desc[i-1])
		if err != nil {
			return 0, err
		}
		if d != 1 {
			break
		}
		count++
	}
	return count, nil
}
