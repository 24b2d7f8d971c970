// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog loggers used across fintrack.
//
// The TUI owns the terminal, so by default logs go to a rotating file under
// ~/.fintrack/logs. Console output is only used for --verbose CLI runs.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config contains logger configuration.
type Config struct {
	// Level sets the logging level (debug, info, warn, error).
	Level string
	// Pretty enables human-readable console output.
	Pretty bool
	// Output overrides the destination. When nil, File is used.
	Output io.Writer
	// File is the rotating log file path. Empty with a nil Output discards logs.
	File string
	// MaxSizeMB and MaxBackups control lumberjack rotation.
	MaxSizeMB  int
	MaxBackups int
}

// DefaultConfig returns a file-backed configuration at info level.
func DefaultConfig(file string) Config {
	return Config{
		Level:      "info",
		File:       file,
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New creates a new zerolog logger with the given configuration.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	output := cfg.Output
	if output == nil {
		output = fileWriter(cfg)
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
			NoColor:    cfg.Output == nil,
		}
	}

	return zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// NewWithComponent creates a logger with a component field.
func NewWithComponent(cfg Config, component string) zerolog.Logger {
	return New(cfg).With().Str("component", component).Logger()
}

// Component derives a child logger tagged with component.
func Component(parent zerolog.Logger, component string) zerolog.Logger {
	return parent.With().Str("component", component).Logger()
}

// Stderr is the logger used by --verbose CLI runs.
func Stderr(level string) zerolog.Logger {
	return New(Config{Level: level, Pretty: true, Output: os.Stderr})
}

func fileWriter(cfg Config) io.Writer {
	if cfg.File == "" {
		return io.Discard
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		Compress:   false,
	}
}
