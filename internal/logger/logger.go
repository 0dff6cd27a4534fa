// Package logger wraps github.com/rs/zerolog behind the small leveled-log
// interface the rest of this module calls through, so call sites read the
// same as a printf-style logger while the wire format stays structured.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is a thin wrapper over a zerolog.Logger exposing printf-style
// leveled methods plus a structured-field builder for request-scoped tags.
type Logger struct {
	base zerolog.Logger
}

// New builds a Logger writing to out at the given level, tagging every
// event with component=name.
func New(out io.Writer, level Level, name string) *Logger {
	zl := zerolog.New(out).With().Timestamp().Str("component", name).Logger().Level(level.zerolog())
	return &Logger{base: zl}
}

// Default returns a stderr-backed, info-level logger tagged "entidb".
func Default() *Logger {
	return New(os.Stderr, LevelInfo, "entidb")
}

func (l *Logger) SetLevel(level Level) {
	l.base = l.base.Level(level.zerolog())
}

// With returns a child logger with an additional string field, mirroring
// zerolog's context-building idiom (used to tag a logger with e.g. the
// active segment id for the lifetime of an operation).
func (l *Logger) With(key, value string) *Logger {
	return &Logger{base: l.base.With().Str(key, value).Logger()}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.base.Debug().Msgf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.base.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.base.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.base.Error().Msgf(format, args...)
}
