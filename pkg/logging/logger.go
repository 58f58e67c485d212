// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Aleutian services.
//
// Built on Go's standard library slog package. Default output is stderr
// text for CLI compatibility; file logging writes JSON lines alongside,
// one file per service per day, with automatic directory creation.
//
// Basic usage:
//
//	logger := logging.Default()
//	logger.Info("workflow started", "run_id", runID)
//
// With file logging:
//
//	logger, err := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogDir:  "/var/log/insight",
//	    Service: "insight",
//	})
//	defer logger.Close()
//
// Logger does NOT redact sensitive data; callers must not log secrets.
//
// Thread Safety: Logger is safe for concurrent use.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// slogLevel maps Level onto slog's levels.
func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a config string to a Level. Unknown strings get Info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity emitted.
	Level Level

	// LogDir enables JSON file logging when non-empty. The directory is
	// created if missing.
	LogDir string

	// Service names the log file: {service}_{date}.log.
	Service string
}

// Logger wraps slog with optional file output.
type Logger struct {
	*slog.Logger

	mu   sync.Mutex
	file *os.File
}

// Default returns a stderr-only logger at Info level.
func Default() *Logger {
	logger, _ := New(Config{Level: LevelInfo})
	return logger
}

// New creates a logger from config.
//
// Description:
//
//	Always logs text to stderr. When LogDir is set, additionally writes
//	JSON lines to {LogDir}/{Service}_{YYYY-MM-DD}.log, creating the
//	directory as needed. A file that cannot be opened fails construction
//	rather than silently dropping the destination.
//
// Outputs:
//
//	*Logger - The configured logger.
//	error - Directory or file creation failure.
func New(cfg Config) (*Logger, error) {
	level := cfg.Level.slogLevel()

	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	logger := &Logger{}
	if cfg.LogDir == "" {
		logger.Logger = slog.New(stderrHandler)
		return logger, nil
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	service := cfg.Service
	if service == "" {
		service = "service"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(cfg.LogDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	logger.file = file
	logger.Logger = slog.New(newFanoutHandler(
		stderrHandler,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
	return logger, nil
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Writer returns the file destination for components that need raw output,
// or io.Discard when file logging is off.
func (l *Logger) Writer() io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return io.Discard
	}
	return l.file
}
