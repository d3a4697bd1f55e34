// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export cleans record sets and writes them as CSV, JSON, YAML, or
// a Markdown report.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/credsearch/pkg/types"
)

// CrackedSuffix marks files holding records with recovered plaintexts.
const CrackedSuffix = "_cracked"

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Clean drops records whose fields are all empty and records that repeat an
// earlier record exactly. Input order is kept and records are not copied.
func Clean(records []types.Record) []types.Record {
	out := make([]types.Record, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Empty() {
			continue
		}
		key, err := json.Marshal(r.Flatten())
		if err != nil {
			out = append(out, r)
			continue
		}
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		out = append(out, r)
	}
	return out
}

// FileName returns "<YYYY-MM-DD>_<query><suffix>.<ext>" with every character
// outside [a-zA-Z0-9._-] in the query replaced by '_'.
func FileName(date time.Time, query, suffix string, format types.OutputFormat) string {
	q := unsafeNameRe.ReplaceAllString(strings.TrimSpace(query), "_")
	return fmt.Sprintf("%s_%s%s.%s", date.Format("2006-01-02"), q, suffix, format)
}

// ParseFormats splits a comma-separated format list such as "csv,json".
func ParseFormats(s string) ([]types.OutputFormat, error) {
	var out []types.OutputFormat
	seen := make(map[types.OutputFormat]bool)
	for _, part := range strings.Split(s, ",") {
		f := types.OutputFormat(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		switch f {
		case types.FormatCSV, types.FormatJSON, types.FormatYAML, types.FormatMarkdown:
		case "markdown":
			f = types.FormatMarkdown
		case "yml":
			f = types.FormatYAML
		default:
			return nil, fmt.Errorf("unknown output format %q (want csv, json, yaml, or md)", part)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// WriteCSV writes one row per record under a header of every flattened
// field path.
func WriteCSV(w io.Writer, records []types.Record) error {
	cols := types.Columns(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range records {
		flat := r.Flatten()
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = flat[c]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []types.Record) error {
	if records == nil {
		records = []types.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteYAML writes records as a YAML sequence. Numbers decoded from the API
// are written as YAML numbers, not strings.
func WriteYAML(w io.Writer, records []types.Record) error {
	plain := make([]any, len(records))
	for i, r := range records {
		plain[i] = plainValue(map[string]any(r))
	}
	data, err := yaml.Marshal(plain)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// plainValue converts json.Number leaves so YAML renders them as numbers.
func plainValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case types.Record:
		return plainValue(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plainValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	}
	return v
}

// ReadJSON reads a record set written by WriteJSON.
func ReadJSON(r io.Reader) ([]types.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []types.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}

// WriteFile creates dir/name and hands it to write. The file is created
// with 0600 permissions because exports hold credentials.
func WriteFile(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

// Records writes records once per format and returns the paths written.
// Markdown is skipped here; it needs a Report.
func Records(dir string, date time.Time, query, suffix string, formats []types.OutputFormat, records []types.Record) ([]string, error) {
	var paths []string
	for _, f := range formats {
		var write func(io.Writer) error
		switch f {
		case types.FormatCSV:
			write = func(w io.Writer) error { return WriteCSV(w, records) }
		case types.FormatJSON:
			write = func(w io.Writer) error { return WriteJSON(w, records) }
		case types.FormatYAML:
			write = func(w io.Writer) error { return WriteYAML(w, records) }
		default:
			continue
		}
		path, err := WriteFile(dir, FileName(date, query, suffix, f), write)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
