package config

import "fmt"

// 通过 -ldflags "-X github.com/anoixa/media-server/config.Version=release" 注入
var (
	Version    string = "dev"
	CommitHash string = ""
)

// IsProduction 判断是否为生产环境
// 生产环境：Version 为 "release" 且 CommitHash 不为空
func IsProduction() bool {
	return Version == "release" && CommitHash != ""
}

// IsDevelopment 判断是否为开发环境
func IsDevelopment() bool {
	return Version == "dev"
}

// BuildInfo 返回 "version (commit)" 形式的构建信息
func BuildInfo() string {
	commit := CommitHash
	if commit == "" {
		commit = "n/a"
	}
	return fmt.Sprintf("%s (%s)", Version, commit)
}
