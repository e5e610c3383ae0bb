// Package logger 提供结构化日志功能
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ContextKey 用于从 context 中提取值的键类型
type ContextKey string

// 预定义的 context 键
const (
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
)

// contextKeys 按输出顺序排列
var contextKeys = []ContextKey{RequestIDKey, UserIDKey}

var defaultLogger atomic.Pointer[slog.Logger]

// Options 日志器选项
type Options struct {
	Level  string
	Format string
	// Writer 为空时输出到 stdout
	Writer io.Writer
}

// New 创建日志器，记录时自动附加 context 中的请求与追踪信息
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     parseLevel(opts.Level),
		AddSource: true,
	}

	var base slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		base = slog.NewJSONHandler(w, handlerOpts)
	} else {
		base = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(contextHandler{Handler: base})
}

// Init 初始化全局日志器
func Init(level string, format string) {
	SetDefault(New(Options{Level: level, Format: format}))
}

// SetDefault 替换全局日志器
func SetDefault(l *slog.Logger) {
	defaultLogger.Store(l)
	slog.SetDefault(l)
}

// Default 返回全局日志器
func Default() *slog.Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := New(Options{Level: "info", Format: "json"})
	defaultLogger.CompareAndSwap(nil, l)
	return defaultLogger.Load()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// contextHandler 在 Handle 时从 context 读取 trace/request/user 信息
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.Handler.Handle(ctx, r)
	}

	// 优先使用活动 span，中间件注入的值作为兜底
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String(string(TraceIDKey), sc.TraceID().String()),
			slog.String(string(SpanIDKey), sc.SpanID().String()),
		)
	} else {
		addFromContext(ctx, &r, TraceIDKey, SpanIDKey)
	}
	addFromContext(ctx, &r, contextKeys...)

	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

func addFromContext(ctx context.Context, r *slog.Record, keys ...ContextKey) {
	for _, key := range keys {
		if v := ctx.Value(key); v != nil {
			r.AddAttrs(slog.Any(string(key), v))
		}
	}
}

// FromContext 返回绑定到 ctx 的日志器，适合一段代码内多次记录
func FromContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx}
}

// ContextLogger 绑定 context 的日志器
type ContextLogger struct {
	ctx context.Context
}

func (l *ContextLogger) Info(msg string, args ...any) { log(l.ctx, slog.LevelInfo, msg, args...) }
func (l *ContextLogger) Debug(msg string, args ...any) { log(l.ctx, slog.LevelDebug, msg, args...) }
func (l *ContextLogger) Warn(msg string, args ...any) { log(l.ctx, slog.LevelWarn, msg, args...) }

// Error 记录错误，err 为空时只记录消息
func (l *ContextLogger) Error(msg string, err error, args ...any) {
	log(l.ctx, slog.LevelError, msg, withError(err, args)...)
}

// WithContext 将日志上下文信息注入到 context
func WithContext(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

// Info 记录 INFO 级别日志
func Info(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelInfo, msg, args...)
}

// Debug 记录 DEBUG 级别日志
func Debug(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelDebug, msg, args...)
}

// Warn 记录 WARN 级别日志
func Warn(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelWarn, msg, args...)
}

// Error 记录 ERROR 级别日志
func Error(ctx context.Context, msg string, err error, args ...any) {
	log(ctx, slog.LevelError, msg, withError(err, args)...)
}

// Fatal 记录错误后退出进程
func Fatal(ctx context.Context, msg string, err error, args ...any) {
	log(ctx, slog.LevelError, msg, withError(err, args)...)
	os.Exit(1)
}

func withError(err error, args []any) []any {
	if err == nil {
		return args
	}
	return append(args, "error", err.Error())
}

// log 跳过包装函数，使 source 指向真正的调用方
func log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := Default()
	if !l.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}
