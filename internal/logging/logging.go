// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging options.
type Config struct {
	// Level is the minimum level to emit (trace, debug, info, warn, error).
	Level string `yaml:"level"`
	// File, when set, receives JSON log lines rotated by size.
	File string `yaml:"file"`
	// MaxSizeMB is the size of a log file before it is rotated.
	MaxSizeMB int `yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `yaml:"max_backups"`
	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `yaml:"max_age_days"`
	// Console disables the human readable stderr output when false.
	Console bool `yaml:"console"`
}

// DefaultConfig logs info and above to the console only.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  20,
		MaxBackups: 5,
		MaxAgeDays: 14,
		Console:    true,
	}
}

// Validate checks that the level parses.
func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	return nil
}

// Setup installs the global logger described by cfg and returns a function
// that closes the log file.
func Setup(cfg Config) (func() error, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	w, closer, err := writer(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return closer, nil
}

// writer builds the output for cfg. Console output goes to console.
func writer(cfg Config, console io.Writer) (io.Writer, func() error, error) {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly})
	}

	closer := func() error { return nil }
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		writers = append(writers, rotator)
		closer = rotator.Close
	}

	switch len(writers) {
	case 0:
		return io.Discard, closer, nil
	case 1:
		return writers[0], closer, nil
	default:
		return zerolog.MultiLevelWriter(writers...), closer, nil
	}
}
