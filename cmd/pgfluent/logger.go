package main

import (
	"fmt"
	"io"

	kitlog "github.com/go-kit/log"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent/log/kitlogadapter"
	"github.com/pgfluent/pgfluent/log/log15adapter"
	"github.com/pgfluent/pgfluent/log/logrusadapter"
	"github.com/pgfluent/pgfluent/log/zapadapter"
	"github.com/pgfluent/pgfluent/log/zerologadapter"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	log15 "gopkg.in/inconshreveable/log15.v2"
)

// newLogger returns a logger for backend writing to w. Levels are filtered by
// the log level of the configuration, so every backend accepts all levels.
func newLogger(backend string, w io.Writer) (tracelog.Logger, error) {
	switch backend {
	case "zap":
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(w),
			zapcore.DebugLevel,
		)
		return zapadapter.NewLogger(zap.New(core)), nil
	case "zerolog":
		return zerologadapter.NewLogger(zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(zerolog.TraceLevel).With().Timestamp().Logger()), nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(logrus.DebugLevel)
		return logrusadapter.NewLogger(l), nil
	case "kitlog":
		return kitlogadapter.NewLogger(kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))), nil
	case "log15":
		l := log15.New()
		l.SetHandler(log15.StreamHandler(w, log15.LogfmtFormat()))
		return log15adapter.NewLogger(l), nil
	}
	return nil, fmt.Errorf("unknown log backend %q", backend)
}
