// Package logger builds the process-wide structured logger. Output is one
// JSON object per line; every record carries the service and env so logs
// from different deployments can be told apart after aggregation.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	Service   string
	Env       string
	Level     string
	AddSource bool

	// Writer overrides the destination. Nil means stdout.
	Writer io.Writer
}

// New returns a configured logger. Installing it as the slog default is the
// caller's decision, not a side effect of construction.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     parseLevel(opts.Level),
		AddSource: opts.AddSource,
	})

	return slog.New(h).With(
		slog.String("service", opts.Service),
		slog.String("env", opts.Env),
	)
}

// parseLevel is forgiving: an unknown level means info rather than an error,
// so a typo in LOG_LEVEL never prevents startup.
func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
