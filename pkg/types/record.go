// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// listSeparator joins list values when a record is flattened to strings.
const listSeparator = "; "

// Walk calls fn for every leaf value in the record, depth first, with nested
// map keys joined by "." and in sorted key order. Lists are passed to fn
// whole. Walk never modifies the record.
func (r Record) Walk(fn func(path string, value any)) {
	walk("", map[string]any(r), fn)
}

func walk(prefix string, m map[string]any, fn func(string, any)) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch v := m[k].(type) {
		case map[string]any:
			walk(path, v, fn)
		case Record:
			walk(path, v, fn)
		default:
			fn(path, v)
		}
	}
}

// Flatten renders every leaf as a string keyed by its dotted path. Lists are
// joined with "; ", nil becomes "".
func (r Record) Flatten() map[string]string {
	out := make(map[string]string, len(r))
	r.Walk(func(path string, v any) {
		out[path] = FormatValue(v)
	})
	return out
}

// Empty reports whether every leaf of the record is nil or blank.
func (r Record) Empty() bool {
	empty := true
	r.Walk(func(_ string, v any) {
		if FormatValue(v) != "" {
			empty = false
		}
	})
	return empty
}

// Clone returns a shallow copy: top-level keys are new, nested values are
// shared with r.
func (r Record) Clone() Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FormatValue renders a JSON value for tables and CSV cells.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := FormatValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, listSeparator)
	case []string:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := strings.TrimSpace(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, listSeparator)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Columns returns the sorted union of flattened field paths across records.
func Columns(records []Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		r.Walk(func(path string, _ any) {
			if !seen[path] {
				seen[path] = true
				cols = append(cols, path)
			}
		})
	}
	sort.Strings(cols)
	return cols
}
