// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordFlatten(t *testing.T) {
	r := Record{
		"email":    []any{"a@example.com", "b@example.com"},
		"id":       json.Number("42"),
		"name":     nil,
		"location": map[string]any{"city": "Oslo", "zip": "0150"},
		"score":    1.5,
	}

	got := r.Flatten()
	assert.Equal(t, map[string]string{
		"email":         "a@example.com; b@example.com",
		"id":            "42",
		"name":          "",
		"location.city": "Oslo",
		"location.zip":  "0150",
		"score":         "1.5",
	}, got)
}

func TestRecordWalkOrder(t *testing.T) {
	r := Record{"b": 1, "a": map[string]any{"z": 1, "y": 2}, "c": 3}
	var paths []string
	r.Walk(func(p string, _ any) { paths = append(paths, p) })
	assert.Equal(t, []string{"a.y", "a.z", "b", "c"}, paths)
}

func TestRecordEmpty(t *testing.T) {
	assert.True(t, Record{}.Empty())
	assert.True(t, Record{"a": nil, "b": "  ", "c": []any{}}.Empty())
	assert.False(t, Record{"a": nil, "b": "x"}.Empty())
}

func TestRecordCloneIsIndependent(t *testing.T) {
	orig := Record{"email": "a@example.com"}
	c := orig.Clone()
	c["extra"] = "x"
	assert.NotContains(t, orig, "extra")
}

func TestColumns(t *testing.T) {
	cols := Columns([]Record{
		{"email": "a", "password": "p"},
		{"email": "b", "hashed_password": "h", "meta": map[string]any{"src": "x"}},
	})
	assert.Equal(t, []string{"email", "hashed_password", "meta.src", "password"}, cols)
}
