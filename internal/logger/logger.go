// Package logger builds the slog loggers used by the rehash tools.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

type ctxKey struct{}

type Handler int

const (
	JSONHandler Handler = iota
	TextHandler
	DevHandler
)

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

type Opt func(o *opts)

type opts struct {
	writer  io.Writer
	level   slog.Level
	handler Handler
}

func WithLevel(lvl slog.Level) Opt {
	return func(o *opts) {
		o.level = lvl
	}
}

func WithWriter(w io.Writer) Opt {
	return func(o *opts) {
		o.writer = w
	}
}

func WithHandler(h Handler) Opt {
	return func(o *opts) {
		o.handler = h
	}
}

// ParseLevel maps trace, debug, info, warn and error to slog levels. Any
// other value yields info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// HandlerFromEnv reads LOG_HANDLER (json, text, dev). The default is dev.
func HandlerFromEnv() Handler {
	switch strings.ToLower(os.Getenv("LOG_HANDLER")) {
	case "json":
		return JSONHandler
	case "txt", "text":
		return TextHandler
	default:
		return DevHandler
	}
}

// New returns a logger configured from LOG_HANDLER and LOG_LEVEL, then
// from opts.
func New(opt ...Opt) *slog.Logger {
	o := &opts{
		writer:  os.Stderr,
		level:   ParseLevel(os.Getenv("LOG_LEVEL")),
		handler: HandlerFromEnv(),
	}
	for _, apply := range opt {
		apply(o)
	}

	replace := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.LevelKey && len(groups) == 0 {
			if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
				return slog.String(a.Key, "TRACE")
			}
		}
		return a
	}

	switch o.handler {
	case DevHandler:
		return slog.New(tint.NewHandler(o.writer, &tint.Options{
			Level:      o.level,
			TimeFormat: "[15:04:05.000]",
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.LevelKey && len(groups) == 0 {
					if lvl, ok := a.Value.Any().(slog.Level); ok {
						switch lvl {
						case LevelTrace:
							return tint.Attr(13, slog.String(a.Key, "TRC"))
						case LevelDebug:
							return tint.Attr(3, slog.String(a.Key, "DBG"))
						case LevelInfo:
							return tint.Attr(14, slog.String(a.Key, "INF"))
						}
					}
				}
				return a
			},
		}))
	case TextHandler:
		return slog.New(slog.NewTextHandler(o.writer, &slog.HandlerOptions{Level: o.level, ReplaceAttr: replace}))
	default:
		return slog.New(slog.NewJSONHandler(o.writer, &slog.HandlerOptions{Level: o.level, ReplaceAttr: replace}))
	}
}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in ctx, or a new one if none is stored.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return New()
}

// Void returns a logger that discards everything.
func Void() *slog.Logger {
	return New(WithWriter(io.Discard))
}
