// Package logger provides the structured, levelled logger used across
// FarmDirect, built on log/slog.
//
// Request handlers get a logger that already carries the request id:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("order status updated", "order_id", id)
//
// Long-lived components tag their lines instead:
//
//	log := logger.Component("realtime")
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/farmdirect/farmdirect/config"
)

var L *slog.Logger

// base is the console handler; EnableMongoSink fans out from it.
var base slog.Handler

func init() {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	if config.IsProduction() {
		opts.Level = slog.LevelInfo
		base = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		base = slog.NewTextHandler(os.Stdout, opts)
	}

	L = slog.New(base)
	slog.SetDefault(L)
}

// EnableMongoSink mirrors every record into uri/db "logs" in addition to
// stdout. The returned func flushes the queue and disconnects.
func EnableMongoSink(uri, db string) (func(), error) {
	mh, err := NewMongoHandler(uri, db, "logs")
	if err != nil {
		return nil, fmt.Errorf("logger: mongo sink: %w", err)
	}
	L = slog.New(NewMultiHandler(base, mh))
	slog.SetDefault(L)
	return mh.Close, nil
}

// Component returns the base logger tagged with component=name.
func Component(name string) *slog.Logger {
	return L.With("component", name)
}

type ctxKey struct{}

// WithCtx returns the request-scoped logger stored by the Logger middleware,
// or the base logger when there is none.
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores log in ctx for WithCtx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }

func Info(msg string, args ...any) { L.Info(msg, args...) }

func Warn(msg string, args ...any) { L.Warn(msg, args...) }

func Error(msg string, args ...any) { L.Error(msg, args...) }
