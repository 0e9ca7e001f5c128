// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type loggerKey struct{}

var (
	mu           sync.RWMutex
	globalLogger zerolog.Logger
)

func init() {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	globalLogger = newLogger(zerolog.New(os.Stderr), level)
	log.Logger = globalLogger
}

func newLogger(base zerolog.Logger, level zerolog.Level) zerolog.Logger {
	hostname, _ := os.Hostname()
	executable := "zapup"
	if pname, err := os.Executable(); err == nil {
		executable = filepath.Base(pname)
	}

	return base.With().
		Timestamp().
		Str("hostname", hostname).
		Str("executable", executable).
		Caller().
		Logger().
		Level(level)
}

// Configure replaces the global logger once configuration is loaded.
// An unparsable level keeps the current one. Pretty switches to the
// human readable console writer used for local development.
func Configure(level string, pretty bool) {
	mu.Lock()
	defer mu.Unlock()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = globalLogger.GetLevel()
	}

	base := zerolog.New(os.Stderr)
	if pretty {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	globalLogger = newLogger(base, lvl)
	log.Logger = globalLogger
}

// Ctx returns the request scoped logger, falling back to the global one.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	mu.RLock()
	defer mu.RUnlock()
	l := globalLogger
	return &l
}

func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// With returns a child of the global logger for a named component.
func With(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger.With().Str("component", component).Logger()
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := globalLogger
	return &l
}

// SetLevel updates the global log level
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = globalLogger.Level(level)
	log.Logger = globalLogger
}

func Fatal() *zerolog.Event {
	return current().Fatal()
}

func Error() *zerolog.Event {
	return current().Error()
}

func Warn() *zerolog.Event {
	return current().Warn()
}

func Info() *zerolog.Event {
	return current().Info()
}

func Debug() *zerolog.Event {
	return current().Debug()
}
