// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/credsearch/pkg/types"
)

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable([]types.Record{
		{"email": "a@example.com", "password": "hunter2"},
		{"email": "b@example.com", "hashed_password": strings.Repeat("a", 64)},
	}, 1200, &buf)

	out := buf.String()
	assert.Contains(t, out, "a@example.com")
	assert.Contains(t, out, "hashed_password")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "2 entries shown (1,200 total in API)")
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(nil, 0, &buf)
	assert.Equal(t, "No results found.\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON([]types.Record{{"email": "a@example.com"}}, &buf))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "a@example.com", got[0]["email"])
}
