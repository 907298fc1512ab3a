package cliconfig

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Logger returns the CLI logger.
func Logger() zerolog.Logger {
	return logger
}

// SetLogLevel changes the CLI logger level. Unknown levels leave it unchanged.
func SetLogLevel(level string) {
	if lvl, err := zerolog.ParseLevel(level); err == nil && level != "" {
		logger = logger.Level(lvl)
	}
}
