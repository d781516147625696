package bootstrap

import (
	"context"
	"log/slog"
)

// runStartup 启动时的旧版迁移与派生数据恢复。失败只记录，不阻止启动；迁移版本未设置时下次启动重试。
func (c *Core) runStartup(ctx context.Context) {
	if c.DB == nil || c.DB.SafeMode {
		return
	}

	if c.Cfg.Legacy.Dir != "" {
		m, err := c.NewMigrator("")
		if err == nil {
			_, err = m.Run(ctx)
		}
		if err != nil {
			c.StartupError = err.Error()
			slog.Error("启动时旧版数据迁移失败，下次启动重试", "dir", c.Cfg.Legacy.Dir, "error", err)
			return
		}
	}

	if err := c.recoverDerived(ctx); err != nil {
		c.StartupError = err.Error()
		slog.Error("启动时恢复派生数据失败", "error", err)
	}
}

// recoverDerived 会话日志非空而每日聚合缺失时全量重算
func (c *Core) recoverDerived(ctx context.Context) error {
	n, err := c.Store.Sessions().Count(ctx)
	if err != nil || n == 0 {
		return err
	}
	days, err := c.Store.DailyStats().ListAll(ctx)
	if err != nil || len(days) > 0 {
		return err
	}
	slog.Warn("派生数据缺失，从会话日志重建", "sessions", n)
	_, err = c.Services.Engine.RecomputeAll(ctx)
	return err
}
