//go:build windows

package instance

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Acquire 使用命名互斥量；Local\ 将范围限制在当前会话，dir 仅用于区分数据目录
func Acquire(dir, name string) (*Lock, error) {
	mutexName := `Local\FocusMirror_` + name + "_" + sanitize(dir)
	mutex, err := windows.CreateMutex(nil, false, windows.StringToUTF16Ptr(mutexName))
	if err != nil {
		if err == windows.ERROR_ALREADY_EXISTS {
			if mutex != 0 {
				_ = windows.CloseHandle(mutex)
			}
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("创建互斥量失败: %w", err)
	}
	return &Lock{release: func() error {
		return windows.CloseHandle(mutex)
	}}, nil
}

// 互斥量名称不允许反斜杠
func sanitize(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == '\\' || r == ':' || r == '/' {
			out[i] = '_'
		}
	}
	return string(out)
}
