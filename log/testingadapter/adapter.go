// Package testingadapter provides a logger that writes to a test or benchmark
// log.
package testingadapter

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/tracelog"
)

// TestingLogger interface defines the subset of testing.TB methods used by this
// adapter.
type TestingLogger interface {
	Log(args ...any)
}

type Logger struct {
	l TestingLogger
}

func NewLogger(l TestingLogger) *Logger {
	return &Logger{l: l}
}

// Log writes one logfmt line with the keys of data in sorted order, e.g.
// level=info msg=Query rows=1 sql="select 1".
func (l *Logger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	if h, ok := l.l.(interface{ Helper() }); ok {
		h.Helper()
	}

	var sb strings.Builder
	writePair(&sb, "level", level.String())
	writePair(&sb, "msg", msg)
	for _, k := range slices.Sorted(maps.Keys(data)) {
		writePair(&sb, k, fmt.Sprint(data[k]))
	}
	l.l.Log(sb.String())
}

func writePair(sb *strings.Builder, key, value string) {
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString(key)
	sb.WriteByte('=')
	if value == "" || strings.ContainsAny(value, " =\"\t\n") {
		value = strconv.Quote(value)
	}
	sb.WriteString(value)
}
