package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	AddSource bool

	// File, when set, replaces Output with a size-rotated log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// stdout carries the protocol, so logs default to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      slog.LevelInfo,
		Format:     "text",
		Output:     os.Stderr,
		AddSource:  false,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 14,
	}
}

var level = new(slog.LevelVar)

// Init installs the default logger. The returned closer releases the log
// file, if one was opened.
func Init(cfg Config) io.Closer {
	var closer io.Closer = nopCloser{}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		output = rotated
		closer = rotated
	}

	level.Set(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

// SetLevel changes the level of the installed logger without rebuilding it.
func SetLevel(l slog.Level) { level.Set(l) }

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

// ForComponent returns a logger tagged with the component name. It resolves
// the default handler on every record, so package-level loggers created
// before Init still follow the configured output.
func ForComponent(component string) *slog.Logger {
	return slog.New(&deferredHandler{
		attrs: []slog.Attr{slog.String("component", component)},
	})
}

func With(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}

type deferredHandler struct {
	attrs []slog.Attr
	group string
}

func (h *deferredHandler) target() slog.Handler {
	t := slog.Default().Handler().WithAttrs(h.attrs)
	if h.group != "" {
		t = t.WithGroup(h.group)
	}
	return t
}

func (h *deferredHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return slog.Default().Handler().Enabled(ctx, l)
}

func (h *deferredHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.target().Handle(ctx, r)
}

func (h *deferredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.group != "" {
		return h.target().WithAttrs(attrs)
	}
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &deferredHandler{attrs: merged}
}

func (h *deferredHandler) WithGroup(name string) slog.Handler {
	if h.group != "" {
		return h.target().WithGroup(name)
	}
	return &deferredHandler{attrs: h.attrs, group: name}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
