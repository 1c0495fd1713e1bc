package namedsql_test

import (
	"testing"

	"github.com/pgfluent/pgfluent/internal/namedsql"
)

func FuzzParse(f *testing.F) {
	f.Add("")
	f.Add("select :a, :b, :a")
	f.Add("select ':not', \":not\", $$ :not $$, $tag$ :not $tag$ -- :not\n:yes")
	f.Add("select e'\\' :not', x::int4, :y::text[]")
	f.Add("/* :not /* nested */ */ :yes :")
	f.Add("select 'unterminated :x")

	f.Fuzz(func(t *testing.T, input string) {
		q := namedsql.Parse(input)
		if got := q.String(); got != input {
			t.Errorf("got  %q", got)
			t.Fatalf("want %q", input)
		}

		names := q.Names()
		params := make(map[string]any, len(names))
		for _, name := range names {
			if name == "" {
				t.Fatalf("empty placeholder name in %q", input)
			}
			params[name] = name
		}

		_, args, err := q.Rebind(params)
		if err != nil {
			t.Fatalf("rebind %q: %v", input, err)
		}
		if len(args) != len(names) {
			t.Fatalf("rebind %q: got %d args for %d names", input, len(args), len(names))
		}
	})
}
