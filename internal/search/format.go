// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pdiddy/credsearch/pkg/types"
)

// maxCellWidth truncates long values in the terminal table.
const maxCellWidth = 40

// FormatTable writes records as a human-readable table to w. Columns are
// the sorted union of field paths across all records.
func FormatTable(records []types.Record, total int, w io.Writer) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	cols := types.Columns(records)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"#"}
	for _, c := range cols {
		header = append(header, c)
	}
	t.AppendHeader(header)

	for i, r := range records {
		flat := r.Flatten()
		row := table.Row{i + 1}
		for _, c := range cols {
			row = append(row, truncate(flat[c], maxCellWidth))
		}
		t.AppendRow(row)
	}
	t.Render()

	fmt.Fprintf(w, "\n%s entries shown", humanize.Comma(int64(len(records))))
	if total > len(records) {
		fmt.Fprintf(w, " (%s total in API)", humanize.Comma(int64(total)))
	}
	fmt.Fprintln(w)
}

// FormatJSON writes records as indented JSON to w.
func FormatJSON(records []types.Record, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
