package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yuqie6/FocusMirror/internal/eventbus"
	"github.com/yuqie6/FocusMirror/internal/legacy"
	"github.com/yuqie6/FocusMirror/internal/pkg/buildinfo"
	"github.com/yuqie6/FocusMirror/internal/pkg/config"
	"github.com/yuqie6/FocusMirror/internal/pkg/instance"
	"github.com/yuqie6/FocusMirror/internal/repository"
	"github.com/yuqie6/FocusMirror/internal/service"
)

// Core 持有跨命令共享的核心依赖
type Core struct {
	Cfg       *config.Config
	DB        *repository.Database
	Store     service.Storage
	Hub       *eventbus.Hub
	LogCloser io.Closer

	// StartupError 启动迁移或恢复失败的原因；为空表示正常
	StartupError string

	lock *instance.Lock

	Services struct {
		Engine   *service.AchievementEngine
		Settings *service.SettingsService
		Timer    *service.TimerService
	}
}

// NewCore 加载配置、打开数据库并装配服务
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return NewCoreWithConfig(cfg)
}

// NewCoreWithConfig 使用已加载的配置装配服务
func NewCoreWithConfig(cfg *config.Config) (*Core, error) {
	logCloser, _ := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})

	c := &Core{Cfg: cfg, LogCloser: logCloser}

	// 同一数据目录只允许一个写入者
	lock, err := instance.Acquire(filepath.Dir(cfg.Storage.DBPath), "focus")
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.lock = lock

	db, err := repository.NewDatabase(cfg.Storage.DBPath)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.DB = db
	c.Store = service.NewRepositoryStorage(repository.NewStore(db.DB))
	c.Hub = eventbus.NewHub()

	catalog, err := service.DefaultCatalog(cfg.Achievements.RateMinSamples)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Services.Settings = service.NewSettingsService(c.Store.Settings(), cfg.FocusDefaults())
	c.Services.Engine, err = service.NewAchievementEngine(c.Store, catalog, &service.AchievementEngineConfig{
		Publisher: c.Hub,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Services.Timer = service.NewTimerService(c.Store, c.Services.Settings, c.Services.Engine, &service.TimerServiceConfig{
		AllowDebug: cfg.Timer.DebugAcceleration && !buildinfo.IsProduction(),
		Publisher:  c.Hub,
	})

	c.runStartup(context.Background())
	return c, nil
}

// NewMigrator 为指定旧版数据目录创建迁移器；dir 为空时使用配置中的 legacy.dir
func (c *Core) NewMigrator(dir string) (*service.Migrator, error) {
	if dir == "" {
		dir = c.Cfg.Legacy.Dir
	}
	if dir == "" {
		return nil, fmt.Errorf("未指定旧版数据目录")
	}
	source, err := legacy.OpenFileStore(dir)
	if err != nil {
		return nil, err
	}
	return service.NewMigrator(c.Store, c.Services.Engine, c.Services.Settings, source), nil
}

// RequireWritable 安全模式下拒绝写入
func (c *Core) RequireWritable() error {
	if c.DB != nil && c.DB.SafeMode {
		return fmt.Errorf("数据库处于安全模式，禁止写入: %s", c.DB.MigrationError)
	}
	return nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	if c.lock != nil {
		_ = c.lock.Release()
	}
	if c.LogCloser != nil {
		_ = c.LogCloser.Close()
	}
	return dbErr
}
