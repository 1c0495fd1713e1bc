// Package log15adapter provides a logger that writes to a gopkg.in/inconshreveable/log15.v2 Logger.
package log15adapter

import (
	"context"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5/tracelog"
	log15 "gopkg.in/inconshreveable/log15.v2"
)

// Log15Logger interface defines the subset of log15.Logger that this adapter
// uses.
type Log15Logger interface {
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)
}

var _ Log15Logger = log15.Logger(nil)

type Logger struct {
	l Log15Logger
}

func NewLogger(l Log15Logger) *Logger {
	return &Logger{l: l}
}

func (l *Logger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	logArgs := make([]any, 0, 2*len(data)+2)
	for _, k := range slices.Sorted(maps.Keys(data)) {
		logArgs = append(logArgs, k, data[k])
	}

	switch level {
	case tracelog.LogLevelTrace:
		l.l.Debug(msg, append(logArgs, "PGFLUENT_LOG_LEVEL", level)...)
	case tracelog.LogLevelDebug:
		l.l.Debug(msg, logArgs...)
	case tracelog.LogLevelInfo:
		l.l.Info(msg, logArgs...)
	case tracelog.LogLevelWarn:
		l.l.Warn(msg, logArgs...)
	case tracelog.LogLevelError:
		l.l.Error(msg, logArgs...)
	default:
		l.l.Error(msg, append(logArgs, "INVALID_PGFLUENT_LOG_LEVEL", level)...)
	}
}
