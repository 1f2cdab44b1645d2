package logger

import (
	"log/slog"
	"os"
	"strings"
)

// NewDefault 创建输出到标准错误的文本日志记录器。
//
// 参数:
//
//	level: 日志级别字符串 debug / info / warn / error，无法识别时回退 info
//
// 返回值:
//
//	*slog.Logger: 日志记录器
func NewDefault(level string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})
	return slog.New(handler)
}
