package buildinfo

// Version 在 Release 构建时通过 -ldflags 注入，例如：
// -X github.com/yuqie6/FocusMirror/internal/pkg/buildinfo.Version=v0.1.0
var Version = "v0.1.0-dev"

// Commit 在 Release 构建时可选注入 git commit，例如：
// -X github.com/yuqie6/FocusMirror/internal/pkg/buildinfo.Commit=abcdef1
var Commit = "unknown"

// Channel 发布渠道：dev / beta / release
var Channel = "dev"

// IsProduction release 渠道下禁用调试能力（如计时加速）
func IsProduction() bool {
	return Channel == "release"
}

// String 版本摘要
func String() string {
	return Version + " (" + Commit + ", " + Channel + ")"
}
