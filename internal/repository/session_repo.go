package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/FocusMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionRepository 专注会话日志仓储（只追加；按 id 幂等）
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话仓储
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SessionTotals 全量会话统计
type SessionTotals struct {
	TotalSessions     int64
	CompletedSessions int64
	TotalMinutes      int64
	DeepSessions      int64 // 完成的 deep 会话
}

const batchChunkSize = 200

func validateSession(session *schema.FocusSession) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	if session.ID == "" {
		return fmt.Errorf("session id 不能为空")
	}
	if session.StartedAt <= 0 {
		return fmt.Errorf("session %s 缺少开始时间", session.ID)
	}
	if !schema.IsValidPreset(session.PresetID) {
		return fmt.Errorf("session %s 预设 %q 未知", session.ID, session.PresetID)
	}
	if session.TotalMinutes < 0 {
		return fmt.Errorf("session %s 分钟数为负", session.ID)
	}
	return nil
}

func upsertSessionClause() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"preset_id", "started_at", "ends_at", "completed_at", "was_completed",
			"total_minutes", "date", "local_hour", "updated_at",
		}),
	}
}

// Upsert 写入会话；相同 id 重复写入时覆盖而不是新增（迁移与正常写入都可安全重试）
func (r *SessionRepository) Upsert(ctx context.Context, session *schema.FocusSession) error {
	if err := validateSession(session); err != nil {
		return err
	}
	session.FillDerived()
	if err := r.db.WithContext(ctx).Clauses(upsertSessionClause()).Create(session).Error; err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}

// UpsertBatch 批量幂等写入（分块）。批内重复 id 以最后一条为准。
func (r *SessionRepository) UpsertBatch(ctx context.Context, sessions []schema.FocusSession) error {
	if len(sessions) == 0 {
		return nil
	}

	// 同一条 INSERT 内出现重复主键会被 SQLite 拒绝，先按 id 去重
	index := make(map[string]int, len(sessions))
	unique := make([]schema.FocusSession, 0, len(sessions))
	for i := range sessions {
		s := sessions[i]
		if err := validateSession(&s); err != nil {
			return err
		}
		s.FillDerived()
		if pos, ok := index[s.ID]; ok {
			unique[pos] = s
			continue
		}
		index[s.ID] = len(unique)
		unique = append(unique, s)
	}

	for start := 0; start < len(unique); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(unique) {
			end = len(unique)
		}
		chunk := unique[start:end]
		if err := r.db.WithContext(ctx).Clauses(upsertSessionClause()).Create(&chunk).Error; err != nil {
			return fmt.Errorf("批量写入会话失败: %w", err)
		}
	}
	return nil
}

// GetByID 按 ID 查询会话
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*schema.FocusSession, error) {
	var session schema.FocusSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}
	return &session, nil
}

// GetByDate 按本地日期查询会话
func (r *SessionRepository) GetByDate(ctx context.Context, date string) ([]schema.FocusSession, error) {
	var sessions []schema.FocusSession
	if err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("started_at ASC, id ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}
	return sessions, nil
}

// ListAll 按开始时间升序返回全部会话
func (r *SessionRepository) ListAll(ctx context.Context) ([]schema.FocusSession, error) {
	var sessions []schema.FocusSession
	if err := r.db.WithContext(ctx).Order("started_at ASC, id ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}
	return sessions, nil
}

// ListRecent 最近的会话（按开始时间倒序）
func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]schema.FocusSession, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []schema.FocusSession
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("查询最近会话失败: %w", err)
	}
	return sessions, nil
}

// ListCompletedDates 含至少一次完成会话的日期，倒序
func (r *SessionRepository) ListCompletedDates(ctx context.Context) ([]string, error) {
	var dates []string
	if err := r.db.WithContext(ctx).
		Model(&schema.FocusSession{}).
		Where("was_completed = ?", true).
		Distinct().
		Order("date DESC").
		Pluck("date", &dates).Error; err != nil {
		return nil, fmt.Errorf("查询活跃日期失败: %w", err)
	}
	return dates, nil
}

// Totals 全量统计
func (r *SessionRepository) Totals(ctx context.Context) (SessionTotals, error) {
	var out SessionTotals
	err := r.db.WithContext(ctx).
		Model(&schema.FocusSession{}).
		Select(
			"COUNT(*) AS total_sessions, "+
				"COALESCE(SUM(CASE WHEN was_completed = ? THEN 1 ELSE 0 END), 0) AS completed_sessions, "+
				"COALESCE(SUM(total_minutes), 0) AS total_minutes, "+
				"COALESCE(SUM(CASE WHEN was_completed = ? AND preset_id = ? THEN 1 ELSE 0 END), 0) AS deep_sessions",
			true, true, schema.PresetDeep,
		).
		Scan(&out).Error
	if err != nil {
		return SessionTotals{}, fmt.Errorf("统计会话失败: %w", err)
	}
	return out, nil
}

// HasCompletedBeforeHour 是否存在本地小时早于 hour 开始的完成会话
func (r *SessionRepository) HasCompletedBeforeHour(ctx context.Context, hour int) (bool, error) {
	return r.existsCompleted(ctx, "local_hour < ?", hour)
}

// HasCompletedFromHour 是否存在本地小时不早于 hour 开始的完成会话
func (r *SessionRepository) HasCompletedFromHour(ctx context.Context, hour int) (bool, error) {
	return r.existsCompleted(ctx, "local_hour >= ?", hour)
}

func (r *SessionRepository) existsCompleted(ctx context.Context, cond string, hour int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&schema.FocusSession{}).
		Where("was_completed = ?", true).
		Where(cond, hour).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("查询时段会话失败: %w", err)
	}
	return count > 0, nil
}

// Count 会话总行数
func (r *SessionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&schema.FocusSession{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计会话失败: %w", err)
	}
	return count, nil
}

// CountByIDs 统计给定 id 中已存在于日志的数量（分块查询）
func (r *SessionRepository) CountByIDs(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&schema.FocusSession{}).
			Where("id IN ?", ids[start:end]).
			Count(&count).Error; err != nil {
			return 0, fmt.Errorf("统计会话失败: %w", err)
		}
		total += count
	}
	return total, nil
}
