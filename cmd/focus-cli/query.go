package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/FocusMirror/internal/schema"
)

// recomputeCmd 从会话日志重建全部派生数据
func recomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "从会话日志重建每日统计、连续天数与成就进度",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireWritable(); err != nil {
				return err
			}
			fmt.Println("🔄 正在重建派生数据...")
			res, err := core.Services.Engine.RecomputeAll(context.Background())
			if err != nil {
				fmt.Printf("❌ 重建失败: %v\n", err)
				return err
			}
			fmt.Printf("✅ 重建完成，共 %d 次会话\n", res.Snapshot.TotalSessions)
			printProcessResult(res)
			return nil
		},
	}
}

// streakCmd 连续天数
func streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "查看连续专注天数",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := core.Services.Engine.GetStreakData(context.Background())
			if err != nil {
				return err
			}
			if s.CurrentStreak == 0 {
				fmt.Printf("🔥 当前连续 0 天 (最佳 %d 天)\n", s.BestStreak)
				return nil
			}
			fmt.Printf("🔥 当前连续 %d 天 (自 %s)，最佳 %d 天\n", s.CurrentStreak, s.StreakStartDate, s.BestStreak)
			fmt.Printf("   最近专注: %s\n", s.LastActiveDate)
			return nil
		},
	}
}

// achievementsCmd 成就列表
func achievementsCmd() *cobra.Command {
	var all bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "achievements",
		Short: "查看成就进度",
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := core.Services.Engine.ListAchievements(context.Background(), all)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(views)
			}

			unlocked := 0
			category := ""
			for _, v := range views {
				if v.Definition.Category != category {
					category = v.Definition.Category
					fmt.Printf("\n📂 %s\n", category)
				}
				p := v.Progress
				if p.IsUnlocked {
					unlocked++
					at := ""
					if p.UnlockedAt != nil {
						at = time.UnixMilli(*p.UnlockedAt).Format("2006-01-02")
					}
					fmt.Printf("  🏆 %s  %s\n", v.Definition.Title, at)
					continue
				}
				fmt.Printf("  🔒 %s %s %d/%d\n", v.Definition.Title, progressBar(p.CurrentProgress, p.TargetValue), p.CurrentProgress, p.TargetValue)
			}
			fmt.Printf("\n已解锁 %d/%d\n", unlocked, len(views))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "包含未解锁的隐藏成就")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

// statsCmd 每日统计
func statsCmd() *cobra.Command {
	var date string
	var days int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "查看每日统计",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if days > 1 {
				end := date
				if end == "" {
					end = schema.DateOf(time.Now().UnixMilli())
				}
				start, err := schema.AddDays(end, -(days - 1))
				if err != nil {
					return err
				}
				rows, err := core.Store.DailyStats().GetByDateRange(ctx, start, end)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(rows)
				}
				fmt.Printf("📊 %s ~ %s\n", start, end)
				for _, d := range rows {
					goal := "  "
					if d.MetGoal {
						goal = "🎯"
					}
					fmt.Printf("  %s %s 完成 %d/%d 次，%d 分钟\n", d.Date, goal, d.CompletedSessions, d.TotalSessions, d.TotalMinutes)
				}
				return nil
			}

			day, err := core.Services.Engine.GetDailyStats(ctx, date)
			if err != nil {
				return err
			}
			snap, err := core.Services.Engine.GetSnapshot(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(map[string]any{"day": day, "snapshot": snap})
			}

			fmt.Printf("📅 %s\n", day.Date)
			fmt.Printf("  • 完成: %d 次 (共 %d 次)\n", day.CompletedSessions, day.TotalSessions)
			fmt.Printf("  • 专注: %d 分钟\n", day.TotalMinutes)
			fmt.Printf("  • 预设: quick %d / standard %d / deep %d\n", day.QuickSessions, day.StandardSessions, day.DeepSessions)
			if day.MetGoal {
				fmt.Println("  • 🎯 已达成每日目标")
			}
			fmt.Printf("\n📈 总计\n")
			fmt.Printf("  • 完成会话: %d 次 / %d 次 (完成率 %.1f%%)\n", snap.TotalCompletedSessions, snap.TotalSessions, snap.CompletionRate)
			fmt.Printf("  • 专注时长: %d 分钟 (%.1f 小时)\n", snap.TotalMinutes, float64(snap.TotalMinutes)/60)
			fmt.Printf("  • 深度专注: %d 次\n", snap.TotalDeepSessions)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "指定日期 (YYYY-MM-DD)，默认今天")
	cmd.Flags().IntVarP(&days, "days", "d", 1, "统计天数（截止 --date）")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

func progressBar(cur, target int) string {
	const width = 10
	if target <= 0 {
		return ""
	}
	filled := cur * width / target
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
