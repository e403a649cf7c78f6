package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"buildbuddy-admin/internal/pkg/config"
)

// Log 根logger, 各组件通过 L() 注入
var Log *zap.Logger

// log 包级快捷函数使用, 多跳过一层调用栈
var log *zap.Logger

var (
	rootOnce sync.Once
	rootDir  string
)

// moduleRoot 向上查找 go.mod 所在目录, 找不到时返回空
func moduleRoot() string {
	rootOnce.Do(func() {
		dir, err := os.Getwd()
		if err != nil {
			return
		}
		for {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				rootDir = dir
				return
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				return
			}
			dir = parent
		}
	})
	return rootDir
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

// callerEncoder 输出相对模块根目录的路径, 例如 internal/service/shift_service.go:98
func callerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	if !caller.Defined {
		enc.AppendString("undefined")
		return
	}
	if root := moduleRoot(); root != "" {
		if rel, err := filepath.Rel(root, caller.File); err == nil && !strings.HasPrefix(rel, "..") {
			enc.AppendString(fmt.Sprintf("%s:%d", filepath.ToSlash(rel), caller.Line))
			return
		}
	}
	enc.AppendString(caller.TrimmedPath())
}

// newEncoder console 格式带颜色, json 格式给日志采集用
func newEncoder(format string) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       timeEncoder,
		EncodeDuration:   zapcore.MillisDurationEncoder,
		EncodeCaller:     callerEncoder,
		ConsoleSeparator: " ",
	}
	if format == "json" {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func newSyncer(cfg *config.LogConfig) (zapcore.WriteSyncer, error) {
	if cfg.Output == "stdout" || cfg.FilePath == "" {
		return zapcore.Lock(os.Stdout), nil
	}
	if dir := filepath.Dir(cfg.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
	}
	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}
	return zapcore.AddSync(file), nil
}

// Init 初始化日志, 无法识别的级别按 info 处理
func Init(cfg *config.LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	syncer, err := newSyncer(cfg)
	if err != nil {
		return err
	}

	use(zap.New(zapcore.NewCore(newEncoder(cfg.Format), syncer, level),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).Named("buildbuddy"))
	return nil
}

// use 替换根logger
func use(l *zap.Logger) {
	Log = l
	log = l.WithOptions(zap.AddCallerSkip(1))
}

// Close 刷新缓冲
func Close() error {
	if err := Log.Sync(); err != nil {
		return fmt.Errorf("close log error: %w", err)
	}
	return nil
}

func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }

// L 根logger
func L() *zap.Logger {
	return Log
}

func init() {
	// 未调用 Init(例如单元测试)时不输出
	use(zap.NewNop())
}
