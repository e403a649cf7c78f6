package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// gormWriter 把 GORM 的 SQL 日志转进 zap, 慢查询和错误单独分级
type gormWriter struct {
	base func() *zap.Logger
}

// GormWriter 供 gormlogger.New 使用, 每次写入时读取当前根logger
func GormWriter() gormlogger.Writer {
	return gormWriter{base: func() *zap.Logger { return Log.Named("gorm") }}
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	l := w.base()
	switch {
	case strings.Contains(msg, "[error]"):
		l.Error(msg)
	case strings.Contains(msg, "SLOW SQL") || strings.Contains(msg, "[warn]"):
		l.Warn(msg)
	default:
		l.Info(msg)
	}
}
