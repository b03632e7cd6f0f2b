package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ServiceName is attached to every record as the "service" attribute.
const ServiceName = "e-cert-backend"

// Logger is the backend's structured logger.
type Logger struct {
	*slog.Logger
}

type Options struct {
	Level  int
	Format string // "text" (default) or "json"
	Output io.Writer
}

// New logs text records to stdout at level.
func New(level int) *Logger {
	return NewWithOptions(Options{Level: level})
}

func NewWithOptions(o Options) *Logger {
	out := o.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: slog.Level(o.Level)}

	var h slog.Handler
	if strings.EqualFold(o.Format, "json") {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return &Logger{Logger: slog.New(h).With("service", ServiceName)}
}

// Component tags the records of one subsystem, e.g. "auth" or "storage".
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}
