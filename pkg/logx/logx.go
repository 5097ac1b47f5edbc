// Package logx configures the zerolog logger used across the service.
package logx

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// New creates the root logger. In development the output is a human-readable
// console writer; everywhere else it is plain JSON lines on stdout.
func New(level, env string) zerolog.Logger {
	zerolog.TimeFieldFormat = consoleTimeFormat
	zerolog.ErrorFieldName = "err"

	var logger zerolog.Logger
	if strings.EqualFold(env, "development") {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: consoleTimeFormat}
		logger = zerolog.New(cw)
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(parseLevel(level, zerolog.InfoLevel)).With().Timestamp().Logger()
}

// Nop returns a logger that never writes anything. Handy in tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return def
	}
}
