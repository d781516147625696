package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yuqie6/FocusMirror/internal/schema"
)

// Config 应用配置
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Legacy       LegacyConfig       `mapstructure:"legacy"`
	Focus        FocusConfig        `mapstructure:"focus"`
	Timer        TimerConfig        `mapstructure:"timer"`
	Achievements AchievementsConfig `mapstructure:"achievements"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LegacyConfig 旧版键值存储位置（迁移时读取）
type LegacyConfig struct {
	Dir string `mapstructure:"dir"`
}

// FocusConfig 首次运行时设置行的默认值
type FocusConfig struct {
	DailyGoal            int  `mapstructure:"daily_goal"`
	BreakDurationMinutes int  `mapstructure:"break_duration_minutes"`
	AutoBreakEnabled     bool `mapstructure:"auto_break_enabled"`
	NotificationsEnabled bool `mapstructure:"notifications_enabled"`
}

// TimerConfig 计时器配置
type TimerConfig struct {
	DebugAcceleration bool `mapstructure:"debug_acceleration"`
}

// AchievementsConfig 成就引擎配置
type AchievementsConfig struct {
	// RateMinSamples 按成就 id 覆盖完成率类成就的最小样本数
	RateMinSamples map[string]int `mapstructure:"rate_min_samples"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量，例如 FOCUS_STORAGE_DB_PATH
	v.SetEnvPrefix("FOCUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	if cfg.Legacy.Dir != "" {
		cfg.Legacy.Dir = resolvePath(cfg.Legacy.Dir)
	}
	if cfg.App.LogPath != "" {
		cfg.App.LogPath = resolvePath(cfg.App.LogPath)
	}

	return &cfg, nil
}

// Default 不读文件和环境变量的默认配置
func Default() *Config {
	d := schema.DefaultFocusSettings()
	return &Config{
		App: AppConfig{
			Name:     "focus-mirror",
			Version:  "0.1.0",
			LogLevel: "info",
		},
		Storage: StorageConfig{DBPath: "./data/focus.db"},
		Focus: FocusConfig{
			DailyGoal:            d.DailyGoal,
			BreakDurationMinutes: d.BreakDurationMinutes,
			AutoBreakEnabled:     d.AutoBreakEnabled,
			NotificationsEnabled: d.NotificationsEnabled,
		},
		Achievements: AchievementsConfig{RateMinSamples: map[string]int{}},
	}
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	d := Default()

	// App
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.version", d.App.Version)
	v.SetDefault("app.log_level", d.App.LogLevel)
	v.SetDefault("app.log_path", "")

	// Storage
	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("legacy.dir", "")

	// Focus
	v.SetDefault("focus.daily_goal", d.Focus.DailyGoal)
	v.SetDefault("focus.break_duration_minutes", d.Focus.BreakDurationMinutes)
	v.SetDefault("focus.auto_break_enabled", d.Focus.AutoBreakEnabled)
	v.SetDefault("focus.notifications_enabled", d.Focus.NotificationsEnabled)

	v.SetDefault("timer.debug_acceleration", false)
}

// FocusDefaults 转换为设置行默认值
func (c *Config) FocusDefaults() *schema.FocusSettings {
	return &schema.FocusSettings{
		ID:                   schema.FocusSettingsID,
		DailyGoal:            c.Focus.DailyGoal,
		BreakDurationMinutes: c.Focus.BreakDurationMinutes,
		AutoBreakEnabled:     c.Focus.AutoBreakEnabled,
		NotificationsEnabled: c.Focus.NotificationsEnabled,
	}
}

// resolvePath 解析相对路径为绝对路径
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	// 获取可执行文件目录
	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}
