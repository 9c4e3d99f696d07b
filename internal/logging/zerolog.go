package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewZerolog builds the logger used by the database and InfluxDB managers: console
// output with timestamps, plus plain output to file when one is given.
func NewZerolog(file io.Writer, level, component string) zerolog.Logger {
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: osStdout, TimeFormat: time.RFC3339},
	}
	if file != nil {
		writers = []io.Writer{
			zerolog.ConsoleWriter{Out: file, TimeFormat: time.RFC3339, NoColor: true},
		}
	}
	mlw := zerolog.MultiLevelWriter(writers...)

	return zerolog.New(mlw).
		Level(zerologLevel(level)).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func zerologLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Discard returns a zerolog logger that drops everything. Used when a manager is
// built without a configured logger.
func Discard() zerolog.Logger {
	return zerolog.New(io.Discard)
}
