package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hatlonely/rse/log/writer"
	"github.com/hatlonely/rse/ref"
	"github.com/pkg/errors"
)

type SLogOptions struct {
	// Level 日志级别：debug, info, warn, error
	Level string `cfg:"level" def:"info" validate:"omitempty,oneof=debug info warn error"`
	// Format 输出格式：text, json
	Format string `cfg:"format" def:"text" validate:"omitempty,oneof=text json"`
	// Output 输出器，为空时输出到标准输出
	Output *ref.TypeOptions `cfg:"output"`
	// TimeFormat 时间格式，为空时使用 RFC3339
	TimeFormat string `cfg:"timeFormat"`
	AddSource  bool   `cfg:"addSource"`
	// Fields 每条日志都携带的字段
	Fields map[string]any `cfg:"fields"`
}

// SLog 基于 log/slog 的 Logger
type SLog struct {
	slogger *slog.Logger
}

func NewSLogWithOptions(options *SLogOptions) (*SLog, error) {
	if options == nil {
		options = &SLogOptions{}
	}

	var w io.Writer
	if options.Output != nil && options.Output.Type != "" {
		out, err := ref.NewWithTypeOptions[writer.Writer](options.Output, "github.com/hatlonely/rse/log/writer")
		if err != nil {
			return nil, errors.WithMessage(err, "create log writer failed")
		}
		w = out
	} else {
		out, err := writer.NewConsoleWriterWithOptions(nil)
		if err != nil {
			return nil, errors.WithMessage(err, "create console writer failed")
		}
		w = out
	}
	return NewSLogWithWriter(w, options)
}

// NewSLogWithWriter 输出到指定的 io.Writer，options.Output 被忽略
func NewSLogWithWriter(w io.Writer, options *SLogOptions) (*SLog, error) {
	if options == nil {
		options = &SLogOptions{}
	}

	level, err := parseLevel(options.Level)
	if err != nil {
		return nil, err
	}
	handlerOptions := &slog.HandlerOptions{
		Level:     level,
		AddSource: options.AddSource,
	}
	if options.TimeFormat != "" && options.TimeFormat != time.RFC3339 {
		timeFormat := options.TimeFormat
		handlerOptions.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(a.Key, a.Value.Time().Format(timeFormat))
			}
			return a
		}
	}

	var handler slog.Handler
	switch strings.ToLower(options.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOptions)
	case "text", "":
		handler = slog.NewTextHandler(w, handlerOptions)
	default:
		return nil, errors.Errorf("unsupported log format: %s", options.Format)
	}

	slogger := slog.New(handler)
	if len(options.Fields) > 0 {
		args := make([]any, 0, len(options.Fields)*2)
		for k, v := range options.Fields {
			args = append(args, k, v)
		}
		slogger = slogger.With(args...)
	}
	return &SLog{slogger: slogger}, nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("unknown log level: %s", level)
}

func (l *SLog) Debug(msg string, args ...any) { l.slogger.Debug(msg, args...) }
func (l *SLog) Info(msg string, args ...any)  { l.slogger.Info(msg, args...) }
func (l *SLog) Warn(msg string, args ...any)  { l.slogger.Warn(msg, args...) }
func (l *SLog) Error(msg string, args ...any) { l.slogger.Error(msg, args...) }

func (l *SLog) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, args...)
}

func (l *SLog) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, args...)
}

func (l *SLog) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, args...)
}

func (l *SLog) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, args...)
}

func (l *SLog) With(args ...any) Logger {
	return &SLog{slogger: l.slogger.With(args...)}
}

func (l *SLog) WithGroup(name string) Logger {
	return &SLog{slogger: l.slogger.WithGroup(name)}
}
