// Package logging configures the zerolog logger shared by the server and
// background workers.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a structured logger. In dev the output is human readable;
// everywhere else it is JSON.
func New(env, level string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if env == "dev" {
		w = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch s {
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
