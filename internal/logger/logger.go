package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

func New() zerolog.Logger {
	return build(os.Stdout, zerolog.DebugLevel)
}

func SetLevel(level zerolog.Level) zerolog.Logger {
	return build(os.Stdout, level)
}

// FromString builds a logger at the named level, falling back to info.
func FromString(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return SetLevel(lvl)
}

// Console is the human readable variant used by the admin CLI.
func Console(level zerolog.Level) zerolog.Logger {
	return build(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

func build(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(level)
}
