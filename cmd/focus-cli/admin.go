package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuqie6/FocusMirror/internal/pkg/config"
	"github.com/yuqie6/FocusMirror/internal/service"
)

// migrateCmd 旧版数据迁移
func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "从旧版键值数据一次性导入（旧数据只读不删除）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireWritable(); err != nil {
				return err
			}
			m, err := core.NewMigrator(dir)
			if err != nil {
				fmt.Printf("❌ %v\n", err)
				return err
			}
			report, err := m.Run(context.Background())
			if err != nil {
				switch {
				case errors.Is(err, service.ErrVerificationFailed):
					fmt.Println("❌ 校验失败，已回滚，下次运行会重试")
				case errors.Is(err, service.ErrInvalidLegacySession):
					fmt.Printf("❌ %v，未导入任何数据\n", err)
				default:
					fmt.Printf("❌ 迁移失败: %v\n", err)
				}
				return err
			}
			if report.AlreadyApplied {
				fmt.Println("✅ 旧版数据已导入过，跳过")
				return nil
			}
			fmt.Printf("✅ 导入 %d 个会话 (来源 %d 条，去重后 %d)\n",
				report.ImportedSessions, report.SourceSessions, report.DistinctSessions)
			if report.SettingsImported {
				fmt.Println("   • 已导入设置")
			}
			if report.ActiveTimerImported {
				fmt.Println("   • 已导入进行中的计时器")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "legacy-dir", "", "旧版数据目录（默认使用配置 legacy.dir）")
	return cmd
}

// settingsCmd 专注设置
func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "查看或修改专注设置",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "查看设置",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := core.Services.Settings.Get(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("⚙️  每日目标: %d 次\n", s.DailyGoal)
			fmt.Printf("   休息时长: %d 分钟\n", s.BreakDurationMinutes)
			fmt.Printf("   自动休息: %v\n", s.AutoBreakEnabled)
			fmt.Printf("   通知: %v\n", s.NotificationsEnabled)
			return nil
		},
	})

	var (
		dailyGoal     int
		breakMinutes  int
		autoBreak     bool
		notifications bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "修改设置（只更新指定的项）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireWritable(); err != nil {
				return err
			}
			var patch service.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("daily-goal") {
				patch.DailyGoal = &dailyGoal
			}
			if flags.Changed("break-minutes") {
				patch.BreakDurationMinutes = &breakMinutes
			}
			if flags.Changed("auto-break") {
				patch.AutoBreakEnabled = &autoBreak
			}
			if flags.Changed("notifications") {
				patch.NotificationsEnabled = &notifications
			}
			s, err := core.Services.Settings.Update(context.Background(), patch)
			if err != nil {
				fmt.Printf("❌ %v\n", err)
				return err
			}
			fmt.Printf("✅ 已保存 (每日目标 %d 次，休息 %d 分钟)\n", s.DailyGoal, s.BreakDurationMinutes)
			return nil
		},
	}
	set.Flags().IntVar(&dailyGoal, "daily-goal", 4, "每日目标次数 (1-24)")
	set.Flags().IntVar(&breakMinutes, "break-minutes", 5, "休息时长 (1-60 分钟)")
	set.Flags().BoolVar(&autoBreak, "auto-break", true, "专注完成后自动进入休息")
	set.Flags().BoolVar(&notifications, "notifications", true, "启用通知")
	cmd.AddCommand(set)

	return cmd
}

// configCmd 配置文件
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "写出默认配置",
		Annotations: map[string]string{skipCoreAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			if _, err := os.Stat(path); err == nil && !force {
				fmt.Printf("⚠️  配置文件已存在: %s (使用 --force 覆盖)\n", path)
				return nil
			}
			if err := config.WriteFile(path, config.Default()); err != nil {
				fmt.Printf("❌ %v\n", err)
				return err
			}
			fmt.Printf("✅ 已写入 %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "覆盖已有配置")
	cmd.AddCommand(initCmd)

	return cmd
}
