package observability

import (
	"context"
	"errors"
	"time"

	"github.com/yuqie6/FocusMirror/internal/bootstrap"
	"github.com/yuqie6/FocusMirror/internal/eventbus"
	"github.com/yuqie6/FocusMirror/internal/pkg/buildinfo"
	"github.com/yuqie6/FocusMirror/internal/service"
)

var ErrNotReady = errors.New("core not ready")

// Status 运行状态快照（诊断用）
type Status struct {
	App       AppStatus           `json:"app"`
	Storage   StorageStatus       `json:"storage"`
	Engine    service.EngineStats `json:"engine"`
	Events    eventbus.HubStats   `json:"events"`
	Timer     TimerStatus         `json:"timer"`
	Legacy    LegacyStatus        `json:"legacy"`
	Health    HealthStatus        `json:"health"`
	CreatedAt int64               `json:"created_at"`
}

type AppStatus struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Channel string `json:"channel"`
}

type StorageStatus struct {
	DBPath         string `json:"db_path"`
	SchemaVersion  int    `json:"schema_version"`
	SafeMode       bool   `json:"safe_mode"`
	MigrationError string `json:"migration_error,omitempty"`
	Sessions       int64  `json:"sessions"`
	DailyStatsDays int    `json:"daily_stats_days"`
}

type TimerStatus struct {
	Phase     string `json:"phase"`
	SessionID string `json:"session_id,omitempty"`
	EndsAt    int64  `json:"ends_at,omitempty"`
}

type LegacyStatus struct {
	Dir           string `json:"dir,omitempty"`
	ImportVersion int    `json:"import_version"`
	Imported      bool   `json:"imported"`
}

type HealthStatus struct {
	Overall string   `json:"overall"` // ok / degraded / error
	Reasons []string `json:"reasons,omitempty"`
}

// BuildStatus 只读汇总；单项查询失败记入 Health 而不中断
func BuildStatus(ctx context.Context, core *bootstrap.Core) (*Status, error) {
	if core == nil || core.Cfg == nil || core.DB == nil || core.Store == nil {
		return nil, ErrNotReady
	}
	cfg := core.Cfg

	st := &Status{
		App: AppStatus{
			Name:    cfg.App.Name,
			Version: buildinfo.Version,
			Commit:  buildinfo.Commit,
			Channel: buildinfo.Channel,
		},
		Storage: StorageStatus{
			DBPath:         cfg.Storage.DBPath,
			SchemaVersion:  core.DB.SchemaVersion,
			SafeMode:       core.DB.SafeMode,
			MigrationError: core.DB.MigrationError,
		},
		Legacy:    LegacyStatus{Dir: cfg.Legacy.Dir},
		Health:    HealthStatus{Overall: "ok"},
		CreatedAt: time.Now().UnixMilli(),
	}

	if core.DB.SafeMode {
		st.Health.add("error", "数据库迁移失败，处于安全模式")
	}
	if core.StartupError != "" {
		st.Health.add("degraded", "启动迁移或恢复失败: "+core.StartupError)
	}

	if n, err := core.Store.Sessions().Count(ctx); err == nil {
		st.Storage.Sessions = n
	} else {
		st.Health.add("degraded", "统计会话失败: "+err.Error())
	}
	if days, err := core.Store.DailyStats().ListAll(ctx); err == nil {
		st.Storage.DailyStatsDays = len(days)
	} else {
		st.Health.add("degraded", "读取每日统计失败: "+err.Error())
	}

	if v, err := core.Store.Meta().GetLegacyImportVersion(ctx); err == nil {
		st.Legacy.ImportVersion = v
		st.Legacy.Imported = v >= service.LegacyImportVersion
	} else {
		st.Health.add("degraded", "读取迁移版本失败: "+err.Error())
	}

	// 只看存储的行，不触发恢复补记
	if row, err := core.Store.ActiveTimer().Get(ctx); err == nil {
		st.Timer.Phase = "idle"
		if row != nil {
			st.Timer = TimerStatus{Phase: row.Phase, SessionID: row.SessionID, EndsAt: row.EndsAt}
		}
	} else {
		st.Health.add("degraded", "读取计时器失败: "+err.Error())
	}

	if core.Services.Engine != nil {
		st.Engine = core.Services.Engine.Stats()
		if st.Engine.Errors > 0 {
			st.Health.add("degraded", "成就引擎出现错误: "+st.Engine.LastError)
		}
	}
	st.Events = core.Hub.Stats()

	return st, nil
}

func (h *HealthStatus) add(level, reason string) {
	h.Reasons = append(h.Reasons, reason)
	if h.Overall == "error" {
		return
	}
	if level == "error" || h.Overall == "ok" {
		h.Overall = level
	}
}
