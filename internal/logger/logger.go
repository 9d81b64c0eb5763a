package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// sink 保存当前输出目标与格式，两者任一变化都会重建 handler。
type sink struct {
	mu     sync.RWMutex
	w      io.Writer
	json   bool
	logger *slog.Logger
}

var (
	level   slog.LevelVar
	current = &sink{w: os.Stdout}
)

func init() {
	level.Set(slog.LevelInfo)
	current.rebuild()
}

func (s *sink) rebuild() {
	w := s.w
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: &level}
	if s.json {
		s.logger = slog.New(slog.NewJSONHandler(w, opts))
		return
	}
	s.logger = slog.New(slog.NewTextHandler(w, opts))
}

func (s *sink) get() *slog.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}

// SetOutput 切换日志输出（例如 stdout + 文件的 MultiWriter）。
func SetOutput(w io.Writer) {
	current.mu.Lock()
	current.w = w
	current.rebuild()
	current.mu.Unlock()
}

// SetFormat 选择 text 或 json 格式，未知值按 text 处理。
func SetFormat(format string) {
	current.mu.Lock()
	current.json = strings.EqualFold(strings.TrimSpace(format), "json")
	current.rebuild()
	current.mu.Unlock()
}

// SetLevel 设置全局级别，未知值按 info 处理。
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

// Logger 返回当前 slog.Logger，供需要结构化字段的调用方使用。
func Logger() *slog.Logger {
	return current.get()
}

// Trace 返回带 trace 字段的 logger，同一次决策的日志可按 trace 过滤。
func Trace(traceID string) *slog.Logger {
	return current.get().With("trace", traceID)
}

func Debugf(format string, v ...any) {
	current.get().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	current.get().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	current.get().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	current.get().Error(fmt.Sprintf(format, v...))
}

// DebugLines 逐行输出推理说明，仅在 debug 级别生效。
func DebugLines(l *slog.Logger, lines []string) {
	if l == nil {
		l = current.get()
	}
	for i, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			l.Debug(line, "step", i+1)
		}
	}
}
