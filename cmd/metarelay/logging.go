package main

import (
	"strings"

	"github.com/metarelay/metarelay/internal/rlog"
)

// initLogging sets up a baseline logger from the --verbose flag alone, so
// that anything logged before a configuration file is loaded (including
// config-load failures themselves) is still visible.
func initLogging() {
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	rlog.Init(rlog.Config{Level: levelFor("", verbose)})
}

// reinitLoggingFromConfig re-initializes the logger once a configuration
// file's log_level is known, unless --verbose was passed (which always
// wins).
func reinitLoggingFromConfig(cfgLevel string, verbose bool) {
	rlog.Init(rlog.Config{Level: levelFor(cfgLevel, verbose)})
}

func levelFor(cfgLevel string, verbose bool) rlog.Level {
	if verbose {
		return rlog.DebugLevel
	}
	switch strings.ToLower(cfgLevel) {
	case "debug":
		return rlog.DebugLevel
	case "warn", "warning":
		return rlog.WarnLevel
	case "error":
		return rlog.ErrorLevel
	default:
		return rlog.InfoLevel
	}
}
