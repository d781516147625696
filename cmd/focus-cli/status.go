package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuqie6/FocusMirror/internal/observability"
	"github.com/yuqie6/FocusMirror/internal/pkg/config"
)

// statusCmd 运行状态
func statusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "查看数据库、计时器与迁移状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := observability.BuildStatus(context.Background(), core)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(st)
			}

			fmt.Printf("🩺 %s %s (%s, %s) 状态: %s\n", st.App.Name, st.App.Version, st.App.Commit, st.App.Channel, st.Health.Overall)
			for _, r := range st.Health.Reasons {
				fmt.Printf("   ⚠️  %s\n", r)
			}
			fmt.Printf("  • 数据库: %s (schema v%d)\n", st.Storage.DBPath, st.Storage.SchemaVersion)
			fmt.Printf("  • 会话: %d 条，每日统计 %d 天\n", st.Storage.Sessions, st.Storage.DailyStatsDays)
			fmt.Printf("  • 计时器: %s\n", st.Timer.Phase)
			fmt.Printf("  • 旧版数据导入: %v (v%d)\n", st.Legacy.Imported, st.Legacy.ImportVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}

// diagnosticsCmd 导出诊断包
func diagnosticsCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "导出诊断包 (zip)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := cfgFile
			if cfgPath == "" {
				cfgPath, _ = config.DefaultConfigPath()
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("创建诊断包失败: %w", err)
			}
			if err := observability.WriteDiagnosticsZip(context.Background(), f, core, cfgPath); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("✅ 已导出 %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "focus-diagnostics.zip", "输出路径")
	return cmd
}
