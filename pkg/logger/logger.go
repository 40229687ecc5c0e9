package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds a logger writing to out. Unknown levels fall back to info.
func New(out io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Setup installs the global logger used through zerolog/log.
func Setup(level, format, service string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = New(os.Stdout, level, format).With().Str("service", service).Logger()
}

// FromContext returns the global logger, tagged with the trace and span ids
// of the active span when there is one.
func FromContext(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		l = l.With().
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String()).
			Logger()
	}
	return &l
}
