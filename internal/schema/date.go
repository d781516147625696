package schema

import (
	"fmt"
	"time"
)

// DateLayout 日期键格式
const DateLayout = "2006-01-02"

// DateOf 返回毫秒时间戳对应的本地日期（YYYY-MM-DD）
func DateOf(ms int64) string {
	return time.UnixMilli(ms).In(time.Local).Format(DateLayout)
}

// HourOf 返回毫秒时间戳对应的本地小时（0-23）
func HourOf(ms int64) int {
	return time.UnixMilli(ms).In(time.Local).Hour()
}

// AddDays 日期键加减天数。按 UTC 解析，避免夏令时切换造成的 23/25 小时偏差。
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("解析日期失败: %w", err)
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// DaysBetween 返回 to - from 的自然日差
func DaysBetween(from, to string) (int, error) {
	a, err := time.Parse(DateLayout, from)
	if err != nil {
		return 0, fmt.Errorf("解析日期失败: %w", err)
	}
	b, err := time.Parse(DateLayout, to)
	if err != nil {
		return 0, fmt.Errorf("解析日期失败: %w", err)
	}
	return int(b.Sub(a).Hours() / 24), nil
}
