// Package namedsql lexes SQL containing :name placeholders and rebinds them to
// PostgreSQL positional parameters.
package namedsql

import (
	"fmt"
	"strconv"
	"strings"
)

// Part is either a string or a Placeholder. A string is raw SQL.
type Part any

// Placeholder is a named placeholder without its leading colon.
type Placeholder string

type Query struct {
	Parts []Part
}

// MissingParamError is returned by Rebind when the SQL references a placeholder
// that has no value.
type MissingParamError struct {
	Name string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("no value for placeholder :%s", e.Name)
}

// Parse splits sql into raw text and placeholders. Text inside string
// literals, quoted identifiers, dollar-quoted strings and comments is never
// treated as a placeholder, and neither is the second colon of a :: cast.
func Parse(sql string) *Query {
	l := &sqlLexer{src: sql, stateFn: rawState}
	for l.stateFn != nil {
		l.stateFn = l.stateFn(l)
	}
	return &Query{Parts: l.parts}
}

// Names returns the distinct placeholder names in order of first use.
func (q *Query) Names() []string {
	var names []string
	seen := make(map[Placeholder]struct{})
	for _, part := range q.Parts {
		if p, ok := part.(Placeholder); ok {
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				names = append(names, string(p))
			}
		}
	}
	return names
}

// String reassembles the query.
func (q *Query) String() string {
	var sb strings.Builder
	for _, part := range q.Parts {
		switch part := part.(type) {
		case string:
			sb.WriteString(part)
		case Placeholder:
			sb.WriteByte(':')
			sb.WriteString(string(part))
		}
	}
	return sb.String()
}

// Rebind replaces every placeholder with $n. A name used more than once is bound
// to the same position.
func (q *Query) Rebind(params map[string]any) (string, []any, error) {
	var sb strings.Builder
	args := make([]any, 0, len(params))
	positions := make(map[Placeholder]int, len(params))

	for _, part := range q.Parts {
		switch part := part.(type) {
		case string:
			sb.WriteString(part)
		case Placeholder:
			pos, ok := positions[part]
			if !ok {
				v, found := params[string(part)]
				if !found {
					return "", nil, &MissingParamError{Name: string(part)}
				}
				args = append(args, v)
				pos = len(args)
				positions[part] = pos
			}
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(pos))
		default:
			return "", nil, fmt.Errorf("invalid Part type: %T", part)
		}
	}

	return sb.String(), args, nil
}

// queryCacheCapacity bounds the number of statement templates kept by
// ParseCached.
const queryCacheCapacity = 512

var queryCache = newLRUCache(queryCacheCapacity)

// ParseCached is Parse with the result memoized by SQL text in a bounded LRU
// cache. Builders emit the same statement templates repeatedly so this avoids
// lexing them on every execution. Text that varies per call, such as SQL
// produced by expanding lists, should use Parse instead. The returned Query
// must not be modified.
func ParseCached(sql string) *Query {
	if q := queryCache.get(sql); q != nil {
		return q
	}
	q := Parse(sql)
	queryCache.put(sql, q)
	return q
}

type sqlLexer struct {
	src       string
	start     int
	pos       int
	nested    int    // multiline comment nesting level.
	dollarTag string // tag of the current dollar-quoted string including both $.
	stateFn   stateFn
	parts     []Part
}

type stateFn func(*sqlLexer) stateFn

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9')
}

func (l *sqlLexer) emitRaw(end int) {
	if end > l.start {
		l.parts = append(l.parts, l.src[l.start:end])
	}
}

func (l *sqlLexer) finish() stateFn {
	l.emitRaw(len(l.src))
	l.start = len(l.src)
	return nil
}

func rawState(l *sqlLexer) stateFn {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++

		switch c {
		case 'e', 'E':
			if l.pos < len(l.src) && l.src[l.pos] == '\'' && (l.pos < 2 || !isIdentChar(l.src[l.pos-2])) {
				l.pos++
				return escapeStringState
			}
		case '\'':
			return singleQuoteState
		case '"':
			return doubleQuoteState
		case '$':
			if tag, ok := l.dollarQuoteTag(); ok {
				l.dollarTag = tag
				l.pos += len(tag) - 1
				return dollarQuoteState
			}
		case ':':
			if l.pos < len(l.src) && l.src[l.pos] == ':' {
				l.pos++
				continue
			}
			if l.pos < len(l.src) && isIdentStart(l.src[l.pos]) {
				l.emitRaw(l.pos - 1)
				l.start = l.pos
				return placeholderState
			}
		case '-':
			if l.pos < len(l.src) && l.src[l.pos] == '-' {
				l.pos++
				return oneLineCommentState
			}
		case '/':
			if l.pos < len(l.src) && l.src[l.pos] == '*' {
				l.pos++
				return multilineCommentState
			}
		}
	}
	return l.finish()
}

// dollarQuoteTag reports whether a dollar-quote opening tag starts at the $
// just consumed.
func (l *sqlLexer) dollarQuoteTag() (string, bool) {
	if l.pos >= 2 && isIdentChar(l.src[l.pos-2]) {
		return "", false
	}
	i := l.pos
	if i < len(l.src) && '0' <= l.src[i] && l.src[i] <= '9' {
		return "", false
	}
	for i < len(l.src) && isIdentChar(l.src[i]) {
		i++
	}
	if i < len(l.src) && l.src[i] == '$' {
		return l.src[l.pos-1 : i+1], true
	}
	return "", false
}

func singleQuoteState(l *sqlLexer) stateFn {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		if c == '\'' {
			if l.pos < len(l.src) && l.src[l.pos] == '\'' {
				l.pos++
				continue
			}
			return rawState
		}
	}
	return l.finish()
}

func doubleQuoteState(l *sqlLexer) stateFn {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		if c == '"' {
			if l.pos < len(l.src) && l.src[l.pos] == '"' {
				l.pos++
				continue
			}
			return rawState
		}
	}
	return l.finish()
}

func escapeStringState(l *sqlLexer) stateFn {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos < len(l.src) {
				l.pos++
			}
		case '\'':
			if l.pos < len(l.src) && l.src[l.pos] == '\'' {
				l.pos++
				continue
			}
			return rawState
		}
	}
	return l.finish()
}

func dollarQuoteState(l *sqlLexer) stateFn {
	end := strings.Index(l.src[l.pos:], l.dollarTag)
	if end < 0 {
		l.pos = len(l.src)
		return l.finish()
	}
	l.pos += end + len(l.dollarTag)
	l.dollarTag = ""
	return rawState
}

// placeholderState consumes a placeholder name. The : must have already been
// consumed and the next byte must start an identifier.
func placeholderState(l *sqlLexer) stateFn {
	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}
	l.parts = append(l.parts, Placeholder(l.src[l.start:l.pos]))
	l.start = l.pos
	return rawState
}

func oneLineCommentState(l *sqlLexer) stateFn {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		if c == '\n' || c == '\r' {
			return rawState
		}
	}
	return l.finish()
}

func multilineCommentState(l *sqlLexer) stateFn {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		switch c {
		case '/':
			if l.pos < len(l.src) && l.src[l.pos] == '*' {
				l.pos++
				l.nested++
			}
		case '*':
			if l.pos < len(l.src) && l.src[l.pos] == '/' {
				l.pos++
				if l.nested == 0 {
					return rawState
				}
				l.nested--
			}
		}
	}
	return l.finish()
}
