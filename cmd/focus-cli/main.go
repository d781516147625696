package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuqie6/FocusMirror/internal/bootstrap"
	"github.com/yuqie6/FocusMirror/internal/eventbus"
	"github.com/yuqie6/FocusMirror/internal/pkg/buildinfo"
)

var (
	cfgFile string
	core    *bootstrap.Core
	events  <-chan eventbus.Event
	stopSub context.CancelFunc
)

// 不需要打开数据库的命令
const skipCoreAnnotation = "skip-core"

func main() {
	rootCmd := &cobra.Command{
		Use:     "focus",
		Short:   "FocusMirror - 专注计时与成就统计",
		Long:    `FocusMirror 记录专注会话，维护每日统计、连续天数与成就进度，并可从旧版数据一次性迁移。`,
		Version: buildinfo.String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipCoreAnnotation] != "" {
				return nil
			}
			var err error
			core, err = bootstrap.NewCore(cfgFile)
			if err != nil {
				slog.Error("初始化失败", "error", err)
				return err
			}
			// 打印命令执行期间的通知
			var ctx context.Context
			ctx, stopSub = context.WithCancel(context.Background())
			events = core.Hub.Subscribe(ctx, 64)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			printNotifications()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")

	rootCmd.AddCommand(timerCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(recomputeCmd())
	rootCmd.AddCommand(streakCmd())
	rootCmd.AddCommand(achievementsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(diagnosticsCmd())

	err := rootCmd.Execute()
	if stopSub != nil {
		stopSub()
	}
	if core != nil {
		_ = core.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

// printNotifications 取出已到达的通知，不阻塞
func printNotifications() {
	if events == nil {
		return
	}
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			printEvent(evt)
		default:
			return
		}
	}
}

func printEvent(evt eventbus.Event) {
	switch evt.Type {
	case eventbus.TypeAchievementUnlocked:
		fmt.Printf("🏆 解锁成就: %v\n", evt.Data["title"])
	case eventbus.TypeSessionRecorded:
		if evt.Data["completed"] == true {
			fmt.Printf("✅ 已记录完成的专注 (%v 分钟)\n", evt.Data["total_minutes"])
		} else {
			fmt.Printf("⏹️  已记录提前结束的专注 (%v 分钟)\n", evt.Data["total_minutes"])
		}
	case eventbus.TypeTimerPhaseChanged:
		slog.Debug("阶段切换", "from", evt.Data["from"], "to", evt.Data["to"])
	}
}

// requireWritable 写命令前检查数据库状态
func requireWritable() error {
	if err := core.RequireWritable(); err != nil {
		fmt.Printf("❌ %v\n", err)
		return err
	}
	return nil
}
