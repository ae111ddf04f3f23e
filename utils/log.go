package utils

import (
	"log"
	"strings"
	"unicode"

	"github.com/anoixa/media-server/config"
)

// LogIfDev 仅在开发版本输出日志
func LogIfDev(v ...any) {
	if config.IsDevelopment() {
		log.Println(v...)
	}
}

// LogIfDevf 仅在开发版本输出格式化日志
func LogIfDevf(format string, v ...any) {
	if config.IsDevelopment() {
		log.Printf(format, v...)
	}
}

// SanitizeLogMessage 去除不可打印字符，防止日志注入
func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == '\n' || r == '\t' {
			sb.WriteRune(' ')
		} else if unicode.IsPrint(r) || unicode.IsGraphic(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SanitizeLogFilename 截断并清洗客户端提供的文件名
func SanitizeLogFilename(name string) string {
	if len(name) > 100 {
		name = name[:100] + "..."
	}
	return SanitizeLogMessage(name)
}
