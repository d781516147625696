package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/yuqie6/FocusMirror/internal/schema"
	"github.com/yuqie6/FocusMirror/internal/service"
)

// sessionCmd 会话命令
func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "专注会话",
	}
	cmd.AddCommand(sessionAddCmd())
	cmd.AddCommand(sessionListCmd())
	return cmd
}

// sessionAddCmd 手动补记一次会话
func sessionAddCmd() *cobra.Command {
	var (
		id      string
		preset  string
		start   string
		minutes int
		aborted bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "补记一次专注会话（相同 ID 重复提交不会重复计数）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireWritable(); err != nil {
				return err
			}
			startedAt, err := parseLocalTime(start)
			if err != nil {
				return err
			}
			session, err := buildSession(id, preset, startedAt, minutes, aborted)
			if err != nil {
				return err
			}

			res, err := core.Services.Engine.ProcessSession(context.Background(), session)
			if err != nil {
				fmt.Printf("❌ 记录失败: %v\n", err)
				return err
			}
			fmt.Printf("✅ 已记录会话 %s (%s, %d 分钟)\n", session.ID, session.PresetID, session.TotalMinutes)
			printProcessResult(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "会话 ID（默认自动生成）")
	cmd.Flags().StringVarP(&preset, "preset", "p", schema.PresetStandard, "预设 (quick/standard/deep)")
	cmd.Flags().StringVar(&start, "start", "", "开始时间 (YYYY-MM-DD HH:MM 或 RFC3339)，默认为预设时长之前")
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "提前结束时的专注分钟数")
	cmd.Flags().BoolVar(&aborted, "aborted", false, "提前结束")

	return cmd
}

func buildSession(id, preset string, startedAt time.Time, minutes int, aborted bool) (*schema.FocusSession, error) {
	total, ok := schema.PresetMinutes[preset]
	if !ok {
		return nil, fmt.Errorf("未知预设: %s", preset)
	}
	if startedAt.IsZero() {
		startedAt = time.Now().Add(-time.Duration(total) * time.Minute)
	}
	if id == "" {
		id = uuid.NewString()
	}

	endsAt := startedAt.Add(time.Duration(total) * time.Minute)
	session := &schema.FocusSession{
		ID:        id,
		PresetID:  preset,
		StartedAt: startedAt.UnixMilli(),
		EndsAt:    endsAt.UnixMilli(),
	}
	if aborted {
		if minutes < 0 || minutes > total {
			return nil, fmt.Errorf("专注分钟数需在 0-%d 之间", total)
		}
		session.TotalMinutes = minutes
		return session, nil
	}
	completedAt := endsAt.UnixMilli()
	session.WasCompleted = true
	session.CompletedAt = &completedAt
	session.TotalMinutes = total
	return session, nil
}

func parseLocalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间: %s", s)
}

// sessionListCmd 最近的会话
func sessionListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "最近的专注会话",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := core.Store.Sessions().ListRecent(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("📚 还没有专注记录")
				return nil
			}
			for _, s := range sessions {
				mark := "✅"
				if !s.WasCompleted {
					mark = "⏹️ "
				}
				fmt.Printf("%s %s %s %-8s %3d 分钟  %s\n",
					mark, s.Date, service.FormatSessionRange(s), s.PresetID, s.TotalMinutes, s.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "显示条数")
	return cmd
}

func printProcessResult(res *service.AchievementProcessResult) {
	if res == nil {
		return
	}
	snap := res.Snapshot
	fmt.Printf("   今日完成 %d 次，累计 %d 次 (%d 分钟)，连续 %d 天\n",
		snap.TodayCompleted, snap.TotalCompletedSessions, snap.TotalMinutes, res.StreakData.CurrentStreak)
}
