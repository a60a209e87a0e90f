// Package trace 在 context 中传递 trace ID，日志每行带 trace=id 便于排查；底层为 zerolog。
package trace

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey int

const traceIDKey ctxKey = 0

const traceIDLen = 8

var (
	loggerMu sync.RWMutex
	logger   = newLogger(os.Stderr, zerolog.InfoLevel)
)

func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	if f, ok := w.(*os.File); ok && (f == os.Stderr || f == os.Stdout) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.DateTime}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// ParseLevel 将 debug|info|warn|error 转为 zerolog 级别，未知按 info。
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup 替换全局输出与级别；测试可传 io.Discard。
func Setup(w io.Writer, level string) {
	l := newLogger(w, ParseLevel(level))
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:traceIDLen]
}

func event(ctx context.Context, lvl zerolog.Level) *zerolog.Event {
	id := TraceID(ctx)
	if id == "" {
		id = "-"
	}
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	return l.WithLevel(lvl).Str("trace", id)
}

// Log 打 info 日志，每行固定带 trace=id，便于 grep。
func Log(ctx context.Context, format string, args ...interface{}) {
	event(ctx, zerolog.InfoLevel).Msg(fmt.Sprintf(format, args...))
}

func Debug(ctx context.Context, format string, args ...interface{}) {
	event(ctx, zerolog.DebugLevel).Msg(fmt.Sprintf(format, args...))
}

func Warn(ctx context.Context, format string, args ...interface{}) {
	event(ctx, zerolog.WarnLevel).Msg(fmt.Sprintf(format, args...))
}
