// Package rlog wraps zerolog to give metarelay's components a consistent,
// structured logger: a single global instance initialized once from
// configuration, and per-component child loggers carrying a "component"
// field (and, where useful, a "repo" or "handler" field).
package rlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance, set up by Init.
var Logger zerolog.Logger

// Level is a metarelay log-level string, matching the config.yaml
// log_level values.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init configures the global logger. Called once at startup from the CLI's
// persistent-flag handling.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagging every entry with the given
// component name (e.g. "supervisor", "dispatcher", "store").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithRepo returns a child logger additionally tagging entries with the
// repo they concern.
func WithRepo(l zerolog.Logger, repo string) zerolog.Logger {
	return l.With().Str("repo", repo).Logger()
}

// WithHandler returns a child logger additionally tagging entries with the
// handler name they concern.
func WithHandler(l zerolog.Logger, handler string) zerolog.Logger {
	return l.With().Str("handler", handler).Logger()
}
