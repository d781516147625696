package observability

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/yuqie6/FocusMirror/internal/bootstrap"
)

// WriteDiagnosticsZip 打包状态、配置与最近日志
func WriteDiagnosticsZip(ctx context.Context, w io.Writer, core *bootstrap.Core, configPath string) error {
	if core == nil || core.Cfg == nil {
		return ErrNotReady
	}

	status, err := BuildStatus(ctx, core)
	if err != nil {
		return err
	}
	return WriteDiagnosticsZipWithStatus(w, core, status, configPath)
}

// WriteDiagnosticsZipWithStatus 使用已生成的状态打包
func WriteDiagnosticsZipWithStatus(w io.Writer, core *bootstrap.Core, status *Status, configPath string) error {
	if core == nil || core.Cfg == nil {
		return ErrNotReady
	}
	if status == nil {
		return errors.New("status is nil")
	}

	zw := zip.NewWriter(w)

	_ = addZipJSON(zw, "status.json", status)
	_ = addZipText(zw, "README.txt", buildDiagReadme())

	if strings.TrimSpace(configPath) != "" {
		if b, err := os.ReadFile(configPath); err == nil {
			_ = addZipText(zw, "config/config.yaml", string(b))
		} else {
			_ = addZipText(zw, "config/ERROR.txt", "读取配置失败: "+err.Error())
		}
	}

	if logPath := core.Cfg.App.LogPath; logPath != "" {
		if tail, err := readTail(logPath, 256*1024); err == nil {
			_ = addZipText(zw, "logs/tail.log", tail)
		} else {
			_ = addZipText(zw, "logs/ERROR.txt", "读取日志失败: "+err.Error())
		}
	}

	return zw.Close()
}

func addZipJSON(zw *zip.Writer, name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return addZipBytes(zw, name, b)
}

func addZipText(zw *zip.Writer, name, text string) error {
	return addZipBytes(zw, name, []byte(text))
}

func addZipBytes(zw *zip.Writer, name string, b []byte) error {
	f, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = f.Write(b)
	return err
}

// readTail 读取文件末尾至多 limit 字节
func readTail(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	offset := int64(0)
	if info.Size() > limit {
		offset = info.Size() - limit
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", err
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func buildDiagReadme() string {
	return strings.Join([]string{
		"FocusMirror 诊断包",
		"",
		"status.json   运行状态（数据库、计时器、迁移、引擎错误统计）",
		"config/       当前使用的配置文件",
		"logs/         最近的日志（仅配置 app.log_path 时）",
		"",
		"不包含会话明细。",
		"",
	}, "\n")
}
