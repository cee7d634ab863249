// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var root = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init initializes the root logger with the specified level and format.
// Format "text" renders human-readable console output; anything else is JSON.
func Init(level string, format string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if strings.ToLower(format) == "text" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}

	root = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// L returns the root logger.
func L() zerolog.Logger {
	return root
}

// With returns a logger tagged with a component name.
func With(component string) zerolog.Logger {
	return root.With().Str("component", component).Logger()
}
