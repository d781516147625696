package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/FocusMirror/internal/schema"
	"github.com/yuqie6/FocusMirror/internal/service"
	"github.com/yuqie6/FocusMirror/internal/timer"
)

// timerCmd 计时器命令
func timerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "驱动专注计时器",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "查看当前计时器（会补记挂起期间到期的专注）",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := core.Services.Timer.Load(context.Background())
			if err != nil {
				return err
			}
			printTimerResult(res)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "select <quick|standard|deep>",
		Short: "选择预设",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimer(func(ctx context.Context) (*service.TimerResult, error) {
				return core.Services.Timer.Select(ctx, args[0])
			})
		},
	})

	var preset string
	start := &cobra.Command{
		Use:   "start",
		Short: "开始专注",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runTimer(func(ctx context.Context) (*service.TimerResult, error) {
				return core.Services.Timer.Start(ctx, preset)
			})
			if errors.Is(err, service.ErrTimerBusy) {
				fmt.Println("⚠️  已有进行中的计时器，先结束或跳过休息")
			}
			return err
		},
	}
	start.Flags().StringVarP(&preset, "preset", "p", "", "预设 (quick/standard/deep)，默认使用已选预设")
	cmd.AddCommand(start)

	simple := []struct {
		use   string
		short string
		kind  timer.EventKind
	}{
		{"tick", "按当前时间推进", timer.EventTick},
		{"seal", "请求提前结束", timer.EventBreakSeal},
		{"confirm", "确认提前结束", timer.EventConfirmEndEarly},
		{"cancel", "取消提前结束，继续专注", timer.EventCancelEndEarly},
		{"skip", "跳过休息", timer.EventSkipBreak},
		{"accelerate", "调试：加快刷新间隔", timer.EventDebugAccelerate},
	}
	for _, s := range simple {
		kind := s.kind
		sub := &cobra.Command{
			Use:   s.use,
			Short: s.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTimer(func(ctx context.Context) (*service.TimerResult, error) {
					return core.Services.Timer.Dispatch(ctx, timer.Event{Kind: kind})
				})
			},
		}
		if kind == timer.EventDebugAccelerate {
			sub.Hidden = true
		}
		cmd.AddCommand(sub)
	}

	return cmd
}

func runTimer(fn func(ctx context.Context) (*service.TimerResult, error)) error {
	if err := requireWritable(); err != nil {
		return err
	}
	res, err := fn(context.Background())
	if res != nil {
		printTimerResult(res)
	}
	return err
}

func printTimerResult(res *service.TimerResult) {
	s := res.State
	switch s.Phase {
	case timer.PhaseIdle:
		fmt.Printf("⏸️  空闲 (已选预设: %s, %d 分钟)\n", s.SelectedPreset, schema.PresetMinutes[s.SelectedPreset])
	case timer.PhaseFocusing:
		fmt.Printf("🎯 专注中 [%s] 剩余 %s (结束于 %s)\n", s.PresetID, formatRemaining(s), s.EndsAt.Format("15:04"))
	case timer.PhaseEndedEarly:
		fmt.Printf("❓ 等待确认提前结束 [%s] 剩余 %s\n", s.PresetID, formatRemaining(s))
	case timer.PhaseBreak:
		fmt.Printf("☕ 休息中 剩余 %s (结束于 %s)\n", formatRemaining(s), s.EndsAt.Format("15:04"))
	}
	if s.TickInterval != timer.DefaultTickInterval && s.Phase != timer.PhaseIdle {
		fmt.Printf("   刷新间隔: %s\n", s.TickInterval)
	}
	if res.Achievements != nil {
		snap := res.Achievements.Snapshot
		fmt.Printf("   今日完成 %d 次，连续 %d 天\n", snap.TodayCompleted, res.Achievements.StreakData.CurrentStreak)
	}
}

func formatRemaining(s timer.State) string {
	remaining := s.Remaining
	if remaining <= 0 && !s.EndsAt.IsZero() {
		remaining = time.Until(s.EndsAt)
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining.Round(time.Second).String()
}
