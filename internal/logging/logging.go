// Package logging bootstraps the zerolog logger used across every component
// after startup wiring completes.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/driftline/sentry/internal/config"
)

// New builds the root logger for a binary: "console" format writes a
// human-readable stream (for local runs), anything else writes structured
// JSON to stdout.
func New(cfg config.LoggingConfig, component string) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w = os.Stdout
	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(w).With().Timestamp().Logger()
	}

	return logger.With().Str("component", component).Logger()
}
