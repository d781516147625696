package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yuqie6/FocusMirror/internal/eventbus"
	"github.com/yuqie6/FocusMirror/internal/schema"
)

// AchievementProcessResult 一次处理（单个会话或全量重算）的结果
type AchievementProcessResult struct {
	NewlyUnlocked   []schema.AchievementDefinition `json:"newly_unlocked"`
	UpdatedProgress []schema.AchievementProgress   `json:"updated_progress"`
	StreakData      schema.StreakData              `json:"streak_data"`
	Snapshot        StatsSnapshot                  `json:"snapshot"`
}

// AchievementView 成就定义与进度（CLI 展示用）
type AchievementView struct {
	Definition schema.AchievementDefinition `json:"definition"`
	Progress   schema.AchievementProgress   `json:"progress"`
}

// AchievementEngineConfig 引擎配置
type AchievementEngineConfig struct {
	Now       func() time.Time // 默认 time.Now
	Publisher Publisher        // 可选，解锁通知
}

// AchievementEngine 会话写入、派生数据维护与成就评估。
// 所有写操作串行执行，且在同一事务中完成。
type AchievementEngine struct {
	store     Storage
	catalog   *Catalog
	now       func() time.Time
	publisher Publisher
	validate  *validator.Validate

	mu         sync.Mutex
	seeded     bool // 受 mu 保护
	processed  atomic.Int64
	errorCount atomic.Int64
	lastErrMsg atomic.Value // string
}

// EngineStats 引擎运行统计
type EngineStats struct {
	Processed int64  `json:"processed"`
	Errors    int64  `json:"errors"`
	LastError string `json:"last_error,omitempty"`
}

// NewAchievementEngine 创建引擎；catalog 为空时使用内置目录
func NewAchievementEngine(store Storage, catalog *Catalog, cfg *AchievementEngineConfig) (*AchievementEngine, error) {
	if store == nil {
		return nil, errors.New("store 不能为空")
	}
	if catalog == nil {
		c, err := DefaultCatalog(nil)
		if err != nil {
			return nil, err
		}
		catalog = c
	}
	if cfg == nil {
		cfg = &AchievementEngineConfig{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AchievementEngine{
		store:     store,
		catalog:   catalog,
		now:       now,
		publisher: cfg.Publisher,
		validate:  validator.New(),
	}, nil
}

// Catalog 当前使用的成就目录
func (e *AchievementEngine) Catalog() *Catalog {
	return e.catalog
}

// Stats 运行统计
func (e *AchievementEngine) Stats() EngineStats {
	msg, _ := e.lastErrMsg.Load().(string)
	return EngineStats{Processed: e.processed.Load(), Errors: e.errorCount.Load(), LastError: msg}
}

func (e *AchievementEngine) noteError(err error) {
	if err == nil {
		return
	}
	e.errorCount.Add(1)
	e.lastErrMsg.Store(err.Error())
}

// ensureSeeded 首次使用时写入成就定义（已存在的行保留）；调用方持有 mu
func (e *AchievementEngine) ensureSeeded(ctx context.Context) error {
	if e.seeded {
		return nil
	}
	if err := e.store.Achievements().SeedDefinitions(ctx, e.catalog.Definitions()); err != nil {
		return err
	}
	e.seeded = true
	return nil
}

// ProcessSession 写入会话并更新当天聚合、连续天数与全部成就进度
func (e *AchievementEngine) ProcessSession(ctx context.Context, session *schema.FocusSession) (*AchievementProcessResult, error) {
	if session == nil {
		return nil, errors.New("session 不能为空")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureSeeded(ctx); err != nil {
		e.noteError(err)
		return nil, err
	}

	s := *session
	s.FillDerived()

	var result *AchievementProcessResult
	err := e.store.Transaction(ctx, func(tx Storage) error {
		old, err := tx.Sessions().GetByID(ctx, s.ID)
		if err != nil {
			return err
		}
		if err := tx.Sessions().Upsert(ctx, &s); err != nil {
			return err
		}

		goal := e.dailyGoal(ctx, tx)
		builder := NewDailyStatsBuilder(tx)
		if _, err := builder.RebuildDate(ctx, s.Date, goal); err != nil {
			return err
		}
		// 覆盖写入改了日期或完成状态：旧日期的聚合与增量连续天数都已失效
		replaced := old != nil && (old.Date != s.Date || old.WasCompleted != s.WasCompleted)
		if replaced && old.Date != s.Date {
			if _, err := builder.RebuildDate(ctx, old.Date, goal); err != nil {
				return err
			}
		}

		tracker := NewStreakTracker(tx)
		var streak schema.StreakData
		if replaced {
			streak, err = tracker.Rebuild(ctx)
		} else {
			streak, err = tracker.Apply(ctx, &s)
		}
		if err != nil {
			return fmt.Errorf("更新连续天数失败: %w", err)
		}
		result, err = e.evaluate(ctx, tx, streak)
		return err
	})
	if err != nil {
		e.noteError(err)
		return nil, fmt.Errorf("处理会话 %s 失败: %w", s.ID, err)
	}

	e.processed.Add(1)
	e.publishUnlocks(result)
	slog.Debug("会话已处理", "id", s.ID, "preset", s.PresetID, "completed", s.WasCompleted, "unlocked", len(result.NewlyUnlocked))
	return result, nil
}

// RecomputeAll 清空派生数据后从日志全量重建。
// 成就解锁状态与解锁时间保留，只重置进度数值。
func (e *AchievementEngine) RecomputeAll(ctx context.Context) (*AchievementProcessResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureSeeded(ctx); err != nil {
		e.noteError(err)
		return nil, err
	}

	var result *AchievementProcessResult
	err := e.store.Transaction(ctx, func(tx Storage) error {
		if err := tx.DailyStats().DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Streak().Delete(ctx); err != nil {
			return err
		}
		if err := tx.Achievements().ResetProgress(ctx); err != nil {
			return err
		}

		goal := e.dailyGoal(ctx, tx)
		days, err := NewDailyStatsBuilder(tx).RebuildAll(ctx, goal)
		if err != nil {
			return err
		}
		streak, err := NewStreakTracker(tx).Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("重建连续天数失败: %w", err)
		}
		result, err = e.evaluate(ctx, tx, streak)
		if err == nil {
			slog.Info("派生数据已重建", "days", len(days), "current_streak", streak.CurrentStreak, "best_streak", streak.BestStreak)
		}
		return err
	})
	if err != nil {
		e.noteError(err)
		return nil, fmt.Errorf("全量重算失败: %w", err)
	}
	e.publishUnlocks(result)
	return result, nil
}

// GetStreakData 以今天为参照的连续天数（只读）
func (e *AchievementEngine) GetStreakData(ctx context.Context) (schema.StreakData, error) {
	cur, err := NewStreakTracker(e.store).Current(ctx)
	if err != nil {
		return cur, err
	}
	cur.CurrentStreak = cur.CurrentAsOf(e.today())
	return cur, nil
}

// GetAllProgress 按目录顺序返回进度，隐藏且未解锁的成就不返回（只读）
func (e *AchievementEngine) GetAllProgress(ctx context.Context) ([]schema.AchievementProgress, error) {
	views, err := e.ListAchievements(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]schema.AchievementProgress, 0, len(views))
	for _, v := range views {
		out = append(out, v.Progress)
	}
	return out, nil
}

// ListAchievements 定义与进度合并；includeHidden=false 时过滤隐藏且未解锁项
func (e *AchievementEngine) ListAchievements(ctx context.Context, includeHidden bool) ([]AchievementView, error) {
	rows, err := e.store.Achievements().ListProgress(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]schema.AchievementProgress, len(rows))
	for _, r := range rows {
		byID[r.AchievementID] = r
	}

	entries := append([]CatalogEntry(nil), e.catalog.Entries()...)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].SortOrder < entries[j].SortOrder })

	out := make([]AchievementView, 0, len(entries))
	for _, entry := range entries {
		p, ok := byID[entry.ID]
		if !ok {
			p = schema.AchievementProgress{AchievementID: entry.ID, TargetValue: entry.CriteriaValue}
		}
		if entry.IsHidden && !p.IsUnlocked && !includeHidden {
			continue
		}
		out = append(out, AchievementView{Definition: entry.AchievementDefinition, Progress: p})
	}
	return out, nil
}

// GetDailyStats 某天的聚合；无记录时返回空聚合
func (e *AchievementEngine) GetDailyStats(ctx context.Context, date string) (schema.DailyStats, error) {
	if date == "" {
		date = e.today()
	}
	row, err := e.store.DailyStats().GetByDate(ctx, date)
	if err != nil {
		return schema.DailyStats{}, err
	}
	if row == nil {
		return schema.DailyStats{Date: date}, nil
	}
	return *row, nil
}

// GetSnapshot 当前统计快照（只读）；连续天数与 GetStreakData 同样以今天为参照
func (e *AchievementEngine) GetSnapshot(ctx context.Context) (StatsSnapshot, error) {
	streak, err := e.GetStreakData(ctx)
	if err != nil {
		return StatsSnapshot{}, err
	}
	return buildSnapshot(ctx, e.store, streak, e.today())
}

func (e *AchievementEngine) today() string {
	return schema.DateOf(e.now().UnixMilli())
}

// dailyGoal 读取当前每日目标；缺失或不合法时使用默认值
func (e *AchievementEngine) dailyGoal(ctx context.Context, store Storage) int {
	def := schema.DefaultFocusSettings()
	settings, err := store.Settings().Get(ctx)
	if err != nil {
		slog.Warn("读取设置失败，使用默认每日目标", "error", err)
		return def.DailyGoal
	}
	if settings == nil {
		return def.DailyGoal
	}
	if err := e.validate.Struct(settings); err != nil {
		slog.Warn("设置不合法，使用默认每日目标", "error", err)
		return def.DailyGoal
	}
	return settings.DailyGoal
}

// evaluate 生成快照并评估全部成就，单调写入进度
func (e *AchievementEngine) evaluate(ctx context.Context, tx Storage, streak schema.StreakData) (*AchievementProcessResult, error) {
	snap, err := buildSnapshot(ctx, tx, streak, e.today())
	if err != nil {
		return nil, fmt.Errorf("生成统计快照失败: %w", err)
	}

	existing, err := tx.Achievements().ListProgress(ctx)
	if err != nil {
		return nil, err
	}
	prev := make(map[string]schema.AchievementProgress, len(existing))
	for _, p := range existing {
		prev[p.AchievementID] = p
	}

	nowMs := e.now().UnixMilli()
	result := &AchievementProcessResult{StreakData: streak, Snapshot: snap}
	items := make([]schema.AchievementProgress, 0, len(e.catalog.Entries()))
	for _, entry := range e.catalog.Entries() {
		progress, unlocked := evaluateEntry(entry, snap)
		next := schema.AchievementProgress{
			AchievementID:   entry.ID,
			CurrentProgress: progress,
			TargetValue:     entry.CriteriaValue,
		}
		old, seen := prev[entry.ID]
		switch {
		case seen && old.IsUnlocked:
			next.IsUnlocked = true
			next.UnlockedAt = old.UnlockedAt
			if next.UnlockedAt == nil {
				next.UnlockedAt = &nowMs
			}
		case unlocked:
			at := nowMs
			next.IsUnlocked = true
			next.UnlockedAt = &at
			result.NewlyUnlocked = append(result.NewlyUnlocked, entry.AchievementDefinition)
		}
		items = append(items, next)
	}

	if err := tx.Achievements().UpsertProgressBatch(ctx, items); err != nil {
		return nil, err
	}
	result.UpdatedProgress = items
	return result, nil
}

// evaluateEntry 单个成就的进度与是否达成
func evaluateEntry(entry CatalogEntry, snap StatsSnapshot) (int, bool) {
	target := entry.CriteriaValue
	switch entry.CriteriaType {
	case schema.CriteriaThreshold, schema.CriteriaCumulative:
		v := cumulativeValue(entry.CriteriaUnit, snap)
		return v, v >= target
	case schema.CriteriaStreak:
		return snap.CurrentStreak, snap.CurrentStreak >= target
	case schema.CriteriaRate:
		progress := int(snap.CompletionRate)
		ok := snap.TotalCompletedSessions >= entry.MinSample && snap.CompletionRate >= float64(target)
		return progress, ok
	case schema.CriteriaPattern:
		return evaluatePattern(entry.Pattern, target, snap)
	}
	return 0, false
}

func cumulativeValue(unit string, snap StatsSnapshot) int {
	switch unit {
	case schema.UnitDeepSessions:
		return snap.TotalDeepSessions
	case schema.UnitMinutes:
		return snap.TotalMinutes
	default:
		return snap.TotalCompletedSessions
	}
}

func evaluatePattern(kind PatternKind, target int, snap StatsSnapshot) (int, bool) {
	switch kind {
	case PatternMorningRitual:
		return boolProgress(snap.HasEarlySession)
	case PatternNightOwl:
		return boolProgress(snap.HasLateSession)
	case PatternPerfectDay:
		return snap.TodayCompleted, snap.TodayCompleted >= target
	case PatternPerfectWeek:
		return snap.ConsecutiveGoalDays, snap.ConsecutiveGoalDays >= target
	case PatternDeepMarathon:
		return snap.TodayDeep, snap.TodayDeep >= target
	}
	return 0, false
}

func boolProgress(b bool) (int, bool) {
	if b {
		return 1, true
	}
	return 0, false
}

func (e *AchievementEngine) publishUnlocks(result *AchievementProcessResult) {
	if e.publisher == nil || result == nil {
		return
	}
	for _, def := range result.NewlyUnlocked {
		slog.Info("成就解锁", "id", def.ID, "title", def.Title)
		e.publisher.Publish(eventbus.Event{
			Type: eventbus.TypeAchievementUnlocked,
			Data: map[string]any{"id": def.ID, "title": def.Title, "category": def.Category},
		})
	}
}
