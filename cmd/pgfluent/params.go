package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// parseParams parses name=value pairs. Values are JSON; anything that is not
// valid JSON is taken as a string. JSON arrays become lists and JSON objects
// are bound as jsonb.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected name=value", pair)
		}

		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			v = raw
		}
		params[name] = v
	}
	return params, nil
}

// formatParams renders params sorted by name, one per line.
func formatParams(params map[string]any) string {
	var sb strings.Builder
	for _, name := range slices.Sorted(maps.Keys(params)) {
		fmt.Fprintf(&sb, "%s = %s\n", name, formatValue(params[name]))
	}
	return sb.String()
}

func formatValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
