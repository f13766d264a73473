package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line
const ServiceName = "blog-realtime-api"

// New creates a new zerolog logger with structured output.
// format "pretty" (or ENV=development) switches to console output.
func New(level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "pretty" || os.Getenv("ENV") == "development" {
		return build(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, level).
			With().
			Caller().
			Logger()
	}

	// JSON output for production
	return build(os.Stdout, level)
}

func build(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
