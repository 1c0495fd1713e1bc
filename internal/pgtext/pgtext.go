// Package pgtext splits and quotes the text representation of PostgreSQL arrays
// and composite values.
//
// Information on the text format of arrays can be found in
// src/backend/utils/adt/arrayfuncs.c (array_in, array_out) and for composites in
// src/backend/utils/adt/rowtypes.c (record_in, record_out).
package pgtext

import (
	"fmt"
	"strings"
)

// Field is one top-level element of an array literal or one field of a
// composite literal.
type Field struct {
	// Text is the unescaped content. It is empty when Null is true.
	Text string

	// Null is true for an absent value.
	Null bool

	// Quoted is true when the raw field was enclosed in double quotes. A quoted
	// field is never a nested structure.
	Quoted bool
}

// MalformedError is returned when text is not bracketed by the expected
// delimiters or its quoting or nesting is unbalanced.
type MalformedError struct {
	Src    string
	Open   byte
	Close  byte
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %c...%c literal %q: %s", e.Open, e.Close, truncate(e.Src), e.Reason)
}

func truncate(s string) string {
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}

// SplitArray splits an array literal such as {a,"b,c",NULL} into its top-level
// elements. Nested arrays are returned as unquoted fields holding their own
// literal.
func SplitArray(src string) ([]Field, error) {
	return Split(src, '{', '}')
}

// SplitComposite splits a composite literal such as (a,,"b c") into its fields.
func SplitComposite(src string) ([]Field, error) {
	return Split(src, '(', ')')
}

// Split validates that src is bounded by open and close and splits its content
// on commas that are outside of double quotes and at zero {} and () depth.
//
// Composite semantics apply when open is '(': whitespace is significant, an
// empty unquoted field is NULL and "()" holds a single NULL field. Otherwise
// array semantics apply: unquoted elements are trimmed and "{}" has no elements.
func Split(src string, open, close byte) ([]Field, error) {
	s := strings.TrimSpace(src)
	if len(s) < 2 || s[0] != open || s[len(s)-1] != close {
		return nil, &MalformedError{Src: src, Open: open, Close: close, Reason: fmt.Sprintf("must start with '%c' and end with '%c'", open, close)}
	}

	composite := open == '('
	inner := s[1 : len(s)-1]
	if !composite && strings.TrimSpace(inner) == "" {
		return []Field{}, nil
	}

	raws, reason := scan(inner)
	if reason != "" {
		return nil, &MalformedError{Src: src, Open: open, Close: close, Reason: reason}
	}

	fields := make([]Field, len(raws))
	for i, raw := range raws {
		fields[i] = unescape(raw, composite)
	}

	return fields, nil
}

// scan returns the raw, still escaped fields of src. A non-empty reason is
// returned when the quoting or nesting of src is unbalanced.
func scan(src string) (raws []string, reason string) {
	var inQuotes bool
	var braces, parens int
	start := 0

	for i := 0; i < len(src); i++ {
		ch := src[i]

		if inQuotes {
			switch ch {
			case '\\':
				i++
			case '"':
				inQuotes = false
			}
			continue
		}

		switch ch {
		case '"':
			inQuotes = true
		case '\\':
			i++
		case '{':
			braces++
		case '}':
			braces--
		case '(':
			parens++
		case ')':
			parens--
		case ',':
			if braces == 0 && parens == 0 {
				raws = append(raws, src[start:i])
				start = i + 1
			}
		}

		if braces < 0 || parens < 0 {
			return nil, fmt.Sprintf("unbalanced '%c' at offset %d", ch, i+1)
		}
	}

	switch {
	case inQuotes:
		return nil, "unterminated quoted field"
	case braces != 0:
		return nil, "unbalanced '{'"
	case parens != 0:
		return nil, "unbalanced '('"
	}

	return append(raws, src[start:]), ""
}

func unescape(raw string, composite bool) Field {
	s := raw
	if !composite {
		s = strings.TrimSpace(raw)
	}

	if !composite && strings.HasPrefix(s, "{") {
		// A nested array keeps its escaping for the recursive split.
		return Field{Text: s}
	}

	if !strings.ContainsAny(s, `"\`) {
		if (composite && s == "") || strings.EqualFold(s, "NULL") {
			return Field{Null: true}
		}
		return Field{Text: s}
	}

	quoted := strings.HasPrefix(s, `"`)

	var sb strings.Builder
	sb.Grow(len(s))
	inQuotes := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '"' && inQuotes && i+1 < len(s) && s[i+1] == '"':
			// "" must be checked before the backslash rules as nested literals
			// can be doubly escaped.
			sb.WriteByte('"')
			i++
		case ch == '"':
			inQuotes = !inQuotes
		case ch == '\\' && i+1 < len(s):
			i++
			sb.WriteByte(s[i])
		default:
			sb.WriteByte(ch)
		}
	}

	return Field{Text: sb.String(), Quoted: quoted}
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(src string) string {
	return `"` + quoteReplacer.Replace(src) + `"`
}

func isSpace(ch byte) bool {
	// see array_isspace in src/backend/utils/adt/arrayfuncs.c
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v' || ch == '\f'
}

func containsSpace(src string) bool {
	for i := 0; i < len(src); i++ {
		if isSpace(src[i]) {
			return true
		}
	}
	return false
}

// QuoteArrayElementIfNeeded quotes src when it would otherwise be read back as
// something else: empty, NULL, whitespace or any array or composite delimiter.
func QuoteArrayElementIfNeeded(src string) string {
	if src == "" || strings.EqualFold(src, "NULL") || containsSpace(src) || strings.ContainsAny(src, `{}(),"\`) {
		return quote(src)
	}
	return src
}

// QuoteCompositeFieldIfNeeded is QuoteArrayElementIfNeeded for composite
// fields.
func QuoteCompositeFieldIfNeeded(src string) string {
	if src == "" || strings.EqualFold(src, "NULL") || containsSpace(src) || strings.ContainsAny(src, `(){},"\`) {
		return quote(src)
	}
	return src
}

// AppendArray appends an array literal built from already encoded elements.
// A nil element is written as NULL. Elements for which nested reports true are
// written verbatim; they must be array literals themselves.
func AppendArray(buf []byte, elems []*string, nested func(i int) bool) []byte {
	buf = append(buf, '{')
	for i, e := range elems {
		if i > 0 {
			buf = append(buf, ',')
		}
		switch {
		case e == nil:
			buf = append(buf, "NULL"...)
		case nested != nil && nested(i):
			buf = append(buf, *e...)
		default:
			buf = append(buf, QuoteArrayElementIfNeeded(*e)...)
		}
	}
	return append(buf, '}')
}

// AppendComposite appends a composite literal built from already encoded
// fields. A nil field is written as an empty field.
func AppendComposite(buf []byte, fields []*string) []byte {
	buf = append(buf, '(')
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		if f != nil {
			buf = append(buf, QuoteCompositeFieldIfNeeded(*f)...)
		}
	}
	return append(buf, ')')
}
