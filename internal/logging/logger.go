// Package logging configures log/slog and carries request ids through
// context so pipeline logs can be correlated with HTTP requests.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

type ctxKey struct{}

// Options selects the log level, the stderr format and an optional JSON log
// file.
type Options struct {
	Level  string
	Format string
	File   string
}

// Setup installs the default slog logger. Records go to stderr as text (or
// JSON when Format is "json") and, when File is set, are also appended to
// that file as JSON. The returned func closes the file.
func Setup(opts Options) (*slog.Logger, func() error) {
	logger, cleanup := build(os.Stderr, opts)
	slog.SetDefault(logger)
	return logger, cleanup
}

func build(stderr io.Writer, opts Options) (*slog.Logger, func() error) {
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var console slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		console = slog.NewJSONHandler(stderr, hopts)
	} else {
		console = slog.NewTextHandler(stderr, hopts)
	}

	if opts.File == "" {
		return slog.New(console), func() error { return nil }
	}

	file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(console)
		logger.Error("failed to open log file, using stderr only", "error", err, "file", opts.File)
		return logger, func() error { return nil }
	}

	return NewFanout(console, file, hopts.Level.Level()), file.Close
}

// NewFanout returns a logger writing to console and, as JSON, to w.
func NewFanout(console slog.Handler, w io.Writer, level slog.Level) *slog.Logger {
	fileHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(console, fileHandler))
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
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

// WithRequestID stores a request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// FromContext returns the default logger, with request_id attached when ctx
// carries one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := RequestID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}
	return logger
}

// WithFields returns a logger with additional structured fields.
//
//	log := logging.WithFields(ctx, "job_id", job.ID)
//	log.Info("stage complete", "stage", "detect")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
