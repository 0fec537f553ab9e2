// Package telemetry configures the process-wide zerolog logger: JSON lines
// to stdout plus a size-rotated file under the application home directory.
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger settings.
type Config struct {
	Level      string // "debug" | "info" | "warn" | "error"
	Console    bool   // pretty console writer instead of raw JSON on stdout
	File       string // rotated log file path; empty disables file output
	MaxSizeMB  int
	MaxBackups int
}

// Init builds the logger. Settings are loaded once and passed down; there
// is no package-level mutable logger.
func Init(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if cfg.Console {
		out = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.TimeFormat = time.RFC3339
		})
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    ifZero(cfg.MaxSizeMB, 10),
			MaxBackups: ifZero(cfg.MaxBackups, 3),
		}
		out = zerolog.MultiLevelWriter(out, rotator)
	}

	logger := zerolog.New(out).With().Timestamp().Logger()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func ifZero(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}
