package service

import (
	"time"

	"github.com/yuqie6/FocusMirror/internal/schema"
)

// FormatTimeRangeMs 以本地时间格式化 HH:MM-HH:MM，区间不合法时返回空串
func FormatTimeRangeMs(startMs, endMs int64) string {
	if startMs <= 0 || endMs <= 0 || endMs <= startMs {
		return ""
	}
	start := time.UnixMilli(startMs).Format("15:04")
	end := time.UnixMilli(endMs).Format("15:04")
	return start + "-" + end
}

// FormatSessionRange 会话的实际区间：完成的会话到 completed_at，提前结束的按专注分钟数推算
func FormatSessionRange(s schema.FocusSession) string {
	end := s.EndsAt
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	} else if !s.WasCompleted {
		end = s.StartedAt + int64(s.TotalMinutes)*time.Minute.Milliseconds()
	}
	return FormatTimeRangeMs(s.StartedAt, end)
}
