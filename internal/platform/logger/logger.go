// Package logger provides configured zerolog loggers for the client.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to stderr, tagged with the component
// name. Stdout is left to command output.
func New(component string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().
		Str("component", component).
		Timestamp().
		Logger()
}

// Console returns a human-readable logger for interactive CLI use. Debug
// drops the level floor to Debug for that logger only.
func Console(component string, debug bool) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if debug {
		lvl = zerolog.DebugLevel
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(w).Level(lvl).With().
		Str("component", component).
		Timestamp().
		Logger()
}
