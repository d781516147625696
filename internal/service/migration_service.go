package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuqie6/FocusMirror/internal/legacy"
	"github.com/yuqie6/FocusMirror/internal/timer"
)

// LegacyImportVersion 当前旧版数据导入版本；存储的版本号不小于它时跳过导入
const LegacyImportVersion = 1

// ErrVerificationFailed 导入后的会话数与来源不一致
var ErrVerificationFailed = errors.New("迁移校验失败")

// ErrInvalidLegacySession 来源中存在无法导入的会话记录
var ErrInvalidLegacySession = errors.New("旧版会话记录不合法")

// MigrationReport 迁移结果
type MigrationReport struct {
	AlreadyApplied      bool `json:"already_applied"`
	SourceSessions      int  `json:"source_sessions"`   // 来源记录数（含重复 ID）
	DistinctSessions    int  `json:"distinct_sessions"` // 去重后的来源记录数（含不合法记录）
	SkippedSessions     int  `json:"skipped_sessions"`  // 字段不合法被跳过
	ImportedSessions    int  `json:"imported_sessions"` // 校验时表中存在的来源 ID 数
	SettingsImported    bool `json:"settings_imported"`
	ActiveTimerImported bool `json:"active_timer_imported"`
}

// Migrator 一次性把旧版键值数据导入关系库。旧版数据只读，永不删除。
type Migrator struct {
	store    Storage
	engine   *AchievementEngine
	settings *SettingsService
	source   legacy.Reader
}

// NewMigrator 创建迁移器
func NewMigrator(store Storage, engine *AchievementEngine, settings *SettingsService, source legacy.Reader) *Migrator {
	return &Migrator{store: store, engine: engine, settings: settings, source: source}
}

// Run 执行迁移。失败时版本标记保持未设置，下次启动会重试。
func (m *Migrator) Run(ctx context.Context) (*MigrationReport, error) {
	report := &MigrationReport{}

	version, err := m.store.Meta().GetLegacyImportVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version >= LegacyImportVersion {
		report.AlreadyApplied = true
		return report, nil
	}

	snap, err := legacy.Export(m.source, m.settings.Normalize(nil))
	if err != nil {
		return nil, fmt.Errorf("导出旧版数据失败: %w", err)
	}
	report.SourceSessions = len(snap.Sessions) + snap.Skipped
	report.DistinctSessions = len(snap.SourceIDs) + snap.Skipped
	report.SkippedSessions = snap.Skipped

	// 不合法记录无法落表，继续导入必然少数据
	if snap.Skipped > 0 {
		err := fmt.Errorf("%w: 来源 %d 条，其中 %d 条无法导入", ErrInvalidLegacySession, report.DistinctSessions, snap.Skipped)
		slog.Error("旧版数据迁移失败", "error", err)
		return report, err
	}

	if len(snap.Sessions) == 0 {
		slog.Info("旧版数据无会话，标记迁移完成")
		if err := m.store.Meta().SetLegacyImportVersion(ctx, LegacyImportVersion); err != nil {
			return nil, err
		}
		return report, nil
	}

	err = m.store.Transaction(ctx, func(tx Storage) error {
		if err := tx.Sessions().UpsertBatch(ctx, snap.Sessions); err != nil {
			return err
		}

		if snap.Settings != nil {
			settings := m.settings.Normalize(snap.Settings)
			if err := tx.Settings().Save(ctx, &settings); err != nil {
				return err
			}
			report.SettingsImported = true
		}

		if snap.ActiveTimer != nil {
			if _, ok := timer.FromRow(snap.ActiveTimer, ""); ok {
				if err := tx.ActiveTimer().Save(ctx, snap.ActiveTimer); err != nil {
					return err
				}
				report.ActiveTimerImported = true
			} else {
				slog.Warn("旧版计时器不合法，忽略", "phase", snap.ActiveTimer.Phase, "session_id", snap.ActiveTimer.SessionID)
			}
		}

		// 提交前校验：每个来源 ID 都必须已落表
		n, err := tx.Sessions().CountByIDs(ctx, snap.SourceIDs)
		if err != nil {
			return err
		}
		report.ImportedSessions = int(n)
		if int(n) != len(snap.SourceIDs) {
			return fmt.Errorf("%w: 来源 %d 条，已导入 %d 条", ErrVerificationFailed, len(snap.SourceIDs), n)
		}
		return nil
	})
	if err != nil {
		slog.Error("旧版数据迁移失败，已回滚", "error", err)
		return report, err
	}

	if _, err := m.engine.RecomputeAll(ctx); err != nil {
		return report, fmt.Errorf("迁移后重建派生数据失败: %w", err)
	}
	if err := m.store.Meta().SetLegacyImportVersion(ctx, LegacyImportVersion); err != nil {
		return report, err
	}
	slog.Info("旧版数据迁移完成",
		"sessions", report.ImportedSessions,
		"duplicates", report.SourceSessions-report.DistinctSessions,
	)
	return report, nil
}
