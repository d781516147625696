// Package instance 保证同一数据库只被一个进程写入。
package instance

import "errors"

// ErrAlreadyRunning 另一个进程已持有锁
var ErrAlreadyRunning = errors.New("已有实例在运行")

// Lock 进程级单实例锁
type Lock struct {
	release func() error
}

// Release 释放锁；可重复调用
func (l *Lock) Release() error {
	if l == nil || l.release == nil {
		return nil
	}
	fn := l.release
	l.release = nil
	return fn()
}
