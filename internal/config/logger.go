package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the application logger writing to stdout.
func NewLogger(cfg LoggerConfig) zerolog.Logger {
	return NewLoggerTo(os.Stdout, cfg)
}

// NewLoggerTo creates a logger writing to w. Unknown levels fall back to info.
func NewLoggerTo(w io.Writer, cfg LoggerConfig) zerolog.Logger {
	var level zerolog.Level
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("app", "portops").
		Logger()
}
