package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

// SettingsService 读写专注设置（单行）
type SettingsService struct {
	repo     SettingsRepository
	defaults schema.FocusSettings
	validate *validator.Validate
}

// SettingsPatch 部分更新；nil 字段保持不变
type SettingsPatch struct {
	DailyGoal            *int
	BreakDurationMinutes *int
	AutoBreakEnabled     *bool
	NotificationsEnabled *bool
}

// NewSettingsService defaults 用于首次运行以及存储值不合法时的回退
func NewSettingsService(repo SettingsRepository, defaults *schema.FocusSettings) *SettingsService {
	v := validator.New()
	d := schema.DefaultFocusSettings()
	if defaults != nil {
		candidate := *defaults
		candidate.ID = schema.FocusSettingsID
		if err := v.Struct(&candidate); err == nil {
			d = candidate
		} else {
			slog.Warn("默认设置不合法，使用内置默认值", "error", err)
		}
	}
	return &SettingsService{repo: repo, defaults: d, validate: v}
}

// Get 读取设置；不存在或不合法时返回默认值（不写回）
func (s *SettingsService) Get(ctx context.Context) (schema.FocusSettings, error) {
	cur, err := s.repo.Get(ctx)
	if err != nil {
		return s.defaults, err
	}
	if cur == nil {
		return s.defaults, nil
	}
	if err := s.validate.Struct(cur); err != nil {
		slog.Warn("存储的设置不合法，使用默认值", "error", err)
		return s.defaults, nil
	}
	return *cur, nil
}

// Update 应用部分更新并保存
func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch) (schema.FocusSettings, error) {
	cur, err := s.Get(ctx)
	if err != nil {
		return cur, err
	}
	if patch.DailyGoal != nil {
		cur.DailyGoal = *patch.DailyGoal
	}
	if patch.BreakDurationMinutes != nil {
		cur.BreakDurationMinutes = *patch.BreakDurationMinutes
	}
	if patch.AutoBreakEnabled != nil {
		cur.AutoBreakEnabled = *patch.AutoBreakEnabled
	}
	if patch.NotificationsEnabled != nil {
		cur.NotificationsEnabled = *patch.NotificationsEnabled
	}
	return cur, s.Save(ctx, cur)
}

// Save 校验后整行保存
func (s *SettingsService) Save(ctx context.Context, settings schema.FocusSettings) error {
	settings.ID = schema.FocusSettingsID
	if err := s.validate.Struct(&settings); err != nil {
		return fmt.Errorf("设置不合法: %w", err)
	}
	return s.repo.Save(ctx, &settings)
}

// Normalize 校验外部来源（如旧版数据）的设置，不合法时返回默认值
func (s *SettingsService) Normalize(settings *schema.FocusSettings) schema.FocusSettings {
	if settings == nil {
		return s.defaults
	}
	out := *settings
	out.ID = schema.FocusSettingsID
	if err := s.validate.Struct(&out); err != nil {
		slog.Warn("设置不合法，使用默认值", "error", err)
		return s.defaults
	}
	return out
}
