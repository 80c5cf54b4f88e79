// Package log carries a cdr.dev/slog logger on the context.
package log

import (
	"context"
	stdlog "log"
	"os"
	"runtime/debug"
	"testing"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	"cdr.dev/slog/sloggers/slogtest"

	"oss.terrastruct.com/umlcanvas/lib/env"
)

// fallback is used by contexts that were never given a logger.
var fallback = slog.Make(sloghuman.Sink(os.Stderr)).Named("umlcanvas")

func init() {
	stdlog.SetOutput(slog.Stdlib(context.Background(), fallback, slog.LevelInfo).Writer())
}

type ctxKey struct{}

func logger(ctx context.Context) slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(slog.Logger); ok {
		return l
	}
	fallback.Warn(ctx, "no logger on context, see lib/log.With", slog.F("stack", string(debug.Stack())))
	return fallback
}

func With(ctx context.Context, l slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithTB logs through t. DEBUG turns on debug entries.
func WithTB(ctx context.Context, t testing.TB, opts *slogtest.Options) context.Context {
	l := slogtest.Make(t, opts)
	if env.Debug() {
		l = l.Leveled(slog.LevelDebug)
	}
	return With(ctx, l)
}

// WithFields attaches fields to every later entry logged through ctx.
func WithFields(ctx context.Context, fields ...slog.Field) context.Context {
	return With(ctx, logger(ctx).With(fields...))
}

func Leveled(ctx context.Context, level slog.Level) context.Context {
	return With(ctx, logger(ctx).Leveled(level))
}

func Debug(ctx context.Context, msg string, fields ...slog.Field) {
	slog.Helper()
	logger(ctx).Debug(ctx, msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...slog.Field) {
	slog.Helper()
	logger(ctx).Info(ctx, msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...slog.Field) {
	slog.Helper()
	logger(ctx).Warn(ctx, msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...slog.Field) {
	slog.Helper()
	logger(ctx).Error(ctx, msg, fields...)
}
