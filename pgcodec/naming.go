package pgcodec

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NamingConvention maps enum labels as stored in the database to Go
// identifiers and back. Each enum type has its own convention.
type NamingConvention interface {
	// Identifier converts a database label to a Go identifier.
	Identifier(label string) string

	// Label converts a Go identifier to a database label.
	Label(identifier string) string
}

var (
	// SnakePascal maps snake_case labels to PascalCase identifiers, e.g.
	// pending_review <-> PendingReview. It is the default convention.
	SnakePascal NamingConvention = snakePascal{}

	// Verbatim uses labels as identifiers unchanged.
	Verbatim NamingConvention = verbatim{}
)

// NamingConventionByName returns the convention registered under name:
// "snake_pascal" or "verbatim".
func NamingConventionByName(name string) (NamingConvention, bool) {
	switch strings.ToLower(name) {
	case "", "snake_pascal":
		return SnakePascal, true
	case "verbatim":
		return Verbatim, true
	}
	return nil, false
}

type verbatim struct{}

func (verbatim) Identifier(label string) string { return label }
func (verbatim) Label(identifier string) string { return identifier }

type snakePascal struct{}

func (snakePascal) Identifier(label string) string {
	title := cases.Title(language.Und)
	var sb strings.Builder
	for _, word := range strings.Split(strings.ToLower(label), "_") {
		sb.WriteString(title.String(word))
	}
	return sb.String()
}

// Label splits identifier before every upper case letter that follows a lower
// case letter or digit, before a run of digits that follows a letter, and
// before the last letter of a run of upper case letters that is followed by a
// lower case one (HTTPServer -> http_server, Level2Access -> level_2_access).
func (snakePascal) Label(identifier string) string {
	runes := []rune(identifier)
	var sb strings.Builder
	sb.Grow(len(identifier) + 4)

	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsUpper(r):
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			case unicode.IsDigit(r):
				if unicode.IsLetter(prev) {
					sb.WriteByte('_')
				}
			}
		}
		sb.WriteRune(r)
	}

	return cases.Lower(language.Und).String(sb.String())
}
