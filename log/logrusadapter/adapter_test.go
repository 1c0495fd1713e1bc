package logrusadapter_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent/log/logrusadapter"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	logger := logrusadapter.NewLogger(l)

	logger.Log(context.Background(), tracelog.LogLevelError, "Query", map[string]any{"sql": "select 1"})
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "Query", entry.Message)
	assert.Equal(t, logrus.Fields{"module": "pgfluent", "sql": "select 1"}, entry.Data)

	logger.Log(context.Background(), tracelog.LogLevelTrace, "Query", nil)
	entry = hook.LastEntry()
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, tracelog.LogLevelTrace, entry.Data["PGFLUENT_LOG_LEVEL"])

	logger.Log(context.Background(), tracelog.LogLevel(42), "Query", nil)
	entry = hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, tracelog.LogLevel(42), entry.Data["INVALID_PGFLUENT_LOG_LEVEL"])

	hook.Reset()
	l.SetLevel(logrus.WarnLevel)
	logger.Log(context.Background(), tracelog.LogLevelInfo, "Query", nil)
	assert.Empty(t, hook.AllEntries())
}

func TestLoggerSortedText(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	logger := logrusadapter.NewLogger(l)
	logger.Log(context.Background(), tracelog.LogLevelInfo, "Query", map[string]any{"sql": "select 1", "rows": 1, "args": []any{}})

	assert.Equal(t, "level=info msg=Query args=\"[]\" module=pgfluent rows=1 sql=\"select 1\"\n", buf.String())
}

type ctxKey struct{}

func TestLoggerOptions(t *testing.T) {
	l, hook := test.NewNullLogger()
	logger := logrusadapter.NewLogger(l,
		logrusadapter.WithoutModule(),
		logrusadapter.WithContextFunc(func(ctx context.Context, fl logrus.FieldLogger) logrus.FieldLogger {
			if id, ok := ctx.Value(ctxKey{}).(string); ok {
				return fl.WithField("req_id", id)
			}
			return fl
		}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "42")
	logger.Log(ctx, tracelog.LogLevelWarn, "Query", map[string]any{"sql": "select 1"})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, logrus.Fields{"req_id": "42", "sql": "select 1"}, entry.Data)
}
