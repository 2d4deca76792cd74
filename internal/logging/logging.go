package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a zerolog logger configured for stdout at info level.
func New() zerolog.Logger {
	return NewWithLevel("info")
}

// NewWithLevel returns a JSON stdout logger. Unknown levels fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	return NewJSON(os.Stdout, level)
}

// NewJSON returns a JSON logger writing to out.
func NewJSON(out io.Writer, level string) zerolog.Logger {
	return zerolog.New(out).Level(parseLevel(level)).With().Timestamp().Logger()
}

// NewConsole returns a human readable logger for interactive terminals.
func NewConsole(out io.Writer, level string) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
