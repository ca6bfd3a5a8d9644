// Package logger configures the application slog logger and provides a request-scoped logger.
//
// In the dev environment logs are written with tint (coloured, human readable);
// all other environments use the slog JSON handler.
//
// Each request handled by the RequestLogging middleware gets its own logger (tagged with the request id)
// stored on the request context. Handlers retrieve it with ContextRequestLogger and can add attributes
// to the final request log line with ContextWithLogAttrs.
package logger

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/lmittmann/tint"
)

// LevelNone disables logging when used as the handler level.
const LevelNone = slog.Level(12)

// ParseLogLevel converts a LOG_LEVEL string to a slog.Level.
// Unknown values default to debug.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "off":
		return LevelNone
	default:
		return slog.LevelDebug
	}
}

// InitLogger creates the application logger and installs it as the slog default.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	l := NewLogger(os.Stdout, level, environment)
	slog.SetDefault(l)
	return l
}

// NewLogger creates a logger writing to w without changing the slog default.
func NewLogger(w io.Writer, level slog.Level, environment string) *slog.Logger {
	if level == LevelNone {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if environment == "dev" {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

type contextKey int

const (
	loggerKey contextKey = iota
	attrsKey
)

// logAttrs collects attributes added during request processing
type logAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextRequestLogger returns the request-scoped logger, or the default logger if none is set.
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ContextWithLogger returns a copy of ctx carrying the supplied logger.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// ContextWithLogAttrs adds attributes to be included in the final request log line.
// It is a no-op when ctx was not prepared by RequestLogging.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	la, ok := ctx.Value(attrsKey).(*logAttrs)
	if !ok {
		return
	}
	la.mu.Lock()
	la.attrs = append(la.attrs, attrs...)
	la.mu.Unlock()
}

// RequestLogging creates the request-scoped logger and logs one line per completed request.
// It must be installed after middleware.RequestID.
func RequestLogging(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			reqLogger := base.With(slog.String("request_id", requestID))
			la := &logAttrs{}

			ctx := ContextWithLogger(r.Context(), reqLogger)
			ctx = context.WithValue(ctx, attrsKey, la)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			la.mu.Lock()
			attrs := append([]slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			}, la.attrs...)
			la.mu.Unlock()

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			reqLogger.LogAttrs(r.Context(), level, "request completed", attrs...)
		})
	}
}
