package service

import (
	"context"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

// StreakTracker 维护连续专注天数（只统计完成的会话）
type StreakTracker struct {
	sessions SessionRepository
	streak   StreakRepository
}

// NewStreakTracker 基于 store（可为事务内的 Storage）创建
func NewStreakTracker(store Storage) *StreakTracker {
	return &StreakTracker{sessions: store.Sessions(), streak: store.Streak()}
}

// Current 读取存储的连续天数；无记录时返回零值
func (t *StreakTracker) Current(ctx context.Context) (schema.StreakData, error) {
	cur, err := t.streak.Get(ctx)
	if err != nil {
		return schema.StreakData{}, err
	}
	if cur == nil {
		return schema.StreakData{ID: schema.StreakID}, nil
	}
	return *cur, nil
}

// Apply 增量更新：会话需已写入日志。
// 日期早于 lastActiveDate 的补录会话退回全量扫描，保证与 Rebuild 结果一致。
func (t *StreakTracker) Apply(ctx context.Context, session *schema.FocusSession) (schema.StreakData, error) {
	cur, err := t.Current(ctx)
	if err != nil {
		return cur, err
	}
	if session == nil || !session.WasCompleted {
		return cur, nil
	}
	date := session.Date
	if date == "" {
		date = schema.DateOf(session.StartedAt)
	}

	if cur.LastActiveDate == "" || cur.CurrentStreak == 0 {
		next := schema.StreakData{
			ID:              schema.StreakID,
			CurrentStreak:   1,
			BestStreak:      max(cur.BestStreak, 1),
			LastActiveDate:  date,
			StreakStartDate: date,
		}
		return next, t.streak.Save(ctx, &next)
	}

	gap, err := schema.DaysBetween(cur.LastActiveDate, date)
	if err != nil {
		return cur, err
	}
	switch {
	case gap == 0:
		return cur, nil
	case gap < 0:
		return t.Rebuild(ctx)
	case gap == 1:
		cur.CurrentStreak++
	default:
		cur.CurrentStreak = 1
		cur.StreakStartDate = date
	}
	cur.ID = schema.StreakID
	cur.LastActiveDate = date
	cur.BestStreak = max(cur.BestStreak, cur.CurrentStreak)
	return cur, t.streak.Save(ctx, &cur)
}

// Rebuild 按完成日期全量扫描重算；日志中没有完成会话时删除记录
func (t *StreakTracker) Rebuild(ctx context.Context) (schema.StreakData, error) {
	dates, err := t.sessions.ListCompletedDates(ctx)
	if err != nil {
		return schema.StreakData{}, err
	}
	next, err := streakFromDates(dates)
	if err != nil {
		return schema.StreakData{}, err
	}
	if next.LastActiveDate == "" {
		return next, t.streak.Delete(ctx)
	}
	return next, t.streak.Save(ctx, &next)
}

// streakFromDates 输入为去重后的降序日期。第一段连续区间即当前连续天数。
func streakFromDates(desc []string) (schema.StreakData, error) {
	out := schema.StreakData{ID: schema.StreakID}
	if len(desc) == 0 {
		return out, nil
	}

	out.LastActiveDate = desc[0]
	run := 1
	runStart := desc[0]
	first := true
	for i := 1; i < len(desc); i++ {
		gap, err := schema.DaysBetween(desc[i], desc[i-1])
		if err != nil {
			return out, err
		}
		if gap <= 1 {
			run++
			runStart = desc[i]
			continue
		}
		if first {
			out.CurrentStreak = run
			out.StreakStartDate = runStart
			first = false
		}
		out.BestStreak = max(out.BestStreak, run)
		run = 1
		runStart = desc[i]
	}
	if first {
		out.CurrentStreak = run
		out.StreakStartDate = runStart
	}
	out.BestStreak = max(out.BestStreak, run)
	return out, nil
}
