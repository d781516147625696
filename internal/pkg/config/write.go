package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// DefaultConfigPath 可执行文件旁的 config/config.yaml
func DefaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, "config", "config.yaml"), nil
}

// WriteFile 以 Load 可读回的键名写出配置
func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	rateMinSamples := cfg.Achievements.RateMinSamples
	if rateMinSamples == nil {
		rateMinSamples = map[string]int{}
	}

	payload := map[string]any{
		"app": map[string]any{
			"name":      cfg.App.Name,
			"version":   cfg.App.Version,
			"log_level": cfg.App.LogLevel,
			"log_path":  cfg.App.LogPath,
		},
		"storage": map[string]any{
			"db_path": cfg.Storage.DBPath,
		},
		"legacy": map[string]any{
			"dir": cfg.Legacy.Dir,
		},
		"focus": map[string]any{
			"daily_goal":             cfg.Focus.DailyGoal,
			"break_duration_minutes": cfg.Focus.BreakDurationMinutes,
			"auto_break_enabled":     cfg.Focus.AutoBreakEnabled,
			"notifications_enabled":  cfg.Focus.NotificationsEnabled,
		},
		"timer": map[string]any{
			"debug_acceleration": cfg.Timer.DebugAcceleration,
		},
		"achievements": map[string]any{
			"rate_min_samples": rateMinSamples,
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
