// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// InitDefault installs an info-level console logger on stderr. It is used
// before flags and config are parsed.
func InitDefault() {
	log.Logger = New(zerolog.InfoLevel, FormatConsole, os.Stderr, false)
}

// Init parses level and format, installs the result as log.Logger and
// returns it. w defaults to stderr.
func Init(level, format string, noColor bool, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "":
		format = FormatConsole
	case FormatConsole, FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want console or json", format)
	}

	if w == nil {
		w = os.Stderr
	}
	logger := New(lvl, format, w, noColor)
	log.Logger = logger
	return logger, nil
}

// New builds a logger without touching globals.
func New(level zerolog.Level, format string, w io.Writer, noColor bool) zerolog.Logger {
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: noColor}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
