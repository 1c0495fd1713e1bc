// Package logrusadapter provides a logger that writes to a github.com/sirupsen/logrus.Logger
// log.
package logrusadapter

import (
	"context"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/sirupsen/logrus"
)

type Logger struct {
	l          logrus.FieldLogger
	withFunc   func(context.Context, logrus.FieldLogger) logrus.FieldLogger
	skipModule bool
}

// option configures a Logger.
type option func(logger *Logger)

// WithContextFunc adds request scoped fields from ctx before each line is
// logged.
func WithContextFunc(withFunc func(context.Context, logrus.FieldLogger) logrus.FieldLogger) option {
	return func(logger *Logger) {
		logger.withFunc = withFunc
	}
}

// WithoutModule disables adding module=pgfluent to every line.
func WithoutModule() option {
	return func(logger *Logger) {
		logger.skipModule = true
	}
}

// NewLogger returns a tracelog.Logger writing to l. Fields are passed to
// logrus as is; the TextFormatter and JSONFormatter write them sorted by key.
func NewLogger(l logrus.FieldLogger, options ...option) *Logger {
	logger := &Logger{l: l}
	for _, opt := range options {
		opt(logger)
	}
	return logger
}

func (l *Logger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	logger := l.l
	if l.withFunc != nil {
		logger = l.withFunc(ctx, logger)
	}

	fields := make(logrus.Fields, len(data)+2)
	if !l.skipModule {
		fields["module"] = "pgfluent"
	}
	for k, v := range data {
		fields[k] = v
	}

	lvl, ok := logrusLevel(level)
	if !ok {
		fields["INVALID_PGFLUENT_LOG_LEVEL"] = level
	} else if level == tracelog.LogLevelTrace {
		fields["PGFLUENT_LOG_LEVEL"] = level
	}

	entry := logger.WithFields(fields)
	entry.Log(lvl, msg)
}

// logrusLevel maps level to a logrus level. logrus has a trace level but it is
// disabled by default, so trace is logged at debug. Unknown levels are logged
// at error.
func logrusLevel(level tracelog.LogLevel) (logrus.Level, bool) {
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		return logrus.DebugLevel, true
	case tracelog.LogLevelInfo:
		return logrus.InfoLevel, true
	case tracelog.LogLevelWarn:
		return logrus.WarnLevel, true
	case tracelog.LogLevelError:
		return logrus.ErrorLevel, true
	}
	return logrus.ErrorLevel, false
}
