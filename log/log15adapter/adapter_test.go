package log15adapter_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent/log/log15adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	log15 "gopkg.in/inconshreveable/log15.v2"
)

func TestLogger(t *testing.T) {
	var records []*log15.Record
	l := log15.New()
	l.SetHandler(log15.FuncHandler(func(r *log15.Record) error {
		records = append(records, r)
		return nil
	}))
	logger := log15adapter.NewLogger(l)

	logger.Log(context.Background(), tracelog.LogLevelWarn, "skipping composite type", map[string]any{"type": "person", "reason": "unknown attribute type"})
	logger.Log(context.Background(), tracelog.LogLevelTrace, "Query", nil)

	require.Len(t, records, 2)
	assert.Equal(t, log15.LvlWarn, records[0].Lvl)
	assert.Equal(t, "skipping composite type", records[0].Msg)
	assert.Equal(t, []any{"reason", "unknown attribute type", "type", "person"}, records[0].Ctx)

	assert.Equal(t, log15.LvlDebug, records[1].Lvl)
	assert.Equal(t, []any{"PGFLUENT_LOG_LEVEL", tracelog.LogLevelTrace}, records[1].Ctx)
}
