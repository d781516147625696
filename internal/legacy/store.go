// Package legacy 读取旧版扁平键值存储（目录下每个键一个 <key>.json 文件）。只读，不修改任何文件。
package legacy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// 旧版存储使用的键
const (
	KeySessions    = "sessions"
	KeySettings    = "settings"
	KeyProfile     = "profile"
	KeyActiveTimer = "activeTimer"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStore 目录形式的只读键值存储
type FileStore struct {
	BaseDir string
}

// OpenFileStore 打开目录；目录不存在时返回错误
func OpenFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("旧版数据目录不能为空")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("打开旧版数据目录失败: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s 不是目录", dir)
	}
	return &FileStore{BaseDir: dir}, nil
}

func (s *FileStore) keyPath(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("非法的键: %q", key)
	}
	return filepath.Join(s.BaseDir, key+".json"), nil
}

// Get 读取键对应的原始值；键不存在时返回 nil, nil
func (s *FileStore) Get(key string) ([]byte, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取 %s 失败: %w", key, err)
	}
	return data, nil
}

// Keys 列出目录中的全部键
func (s *FileStore) Keys() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.BaseDir, "*.json"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		keys = append(keys, base[:len(base)-len(".json")])
	}
	return keys, nil
}
