package testingadapter_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent/log/testingadapter"
	"github.com/stretchr/testify/assert"
)

type recorder struct {
	args [][]any
}

func (r *recorder) Log(args ...any) {
	r.args = append(r.args, args)
}

func TestLogger(t *testing.T) {
	r := &recorder{}
	logger := testingadapter.NewLogger(r)
	logger.Log(context.Background(), tracelog.LogLevelInfo, "Query", map[string]any{"sql": "select 1", "rows": 1, "tag": ""})
	logger.Log(context.Background(), tracelog.LogLevelError, "Query", map[string]any{"err": `bad "x"`})
	logger.Log(context.Background(), tracelog.LogLevelDebug, "Query", nil)

	assert.Equal(t, [][]any{
		{`level=info msg=Query rows=1 sql="select 1" tag=""`},
		{`level=error msg=Query err="bad \"x\""`},
		{`level=debug msg=Query`},
	}, r.args)

	// testing.TB satisfies TestingLogger.
	testingadapter.NewLogger(t).Log(context.Background(), tracelog.LogLevelDebug, "Query", nil)
}
