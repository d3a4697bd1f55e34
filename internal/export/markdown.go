// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/pdiddy/credsearch/internal/detect"
	"github.com/pdiddy/credsearch/internal/merge"
	"github.com/pdiddy/credsearch/pkg/types"
)

// maxReportRows bounds the records table in a Markdown report.
const maxReportRows = 200

// JobFailure describes a crack job that did not complete.
type JobFailure struct {
	Engine   string
	HashType types.HashType
	State    string
	Reason   string
}

// Report is everything a Markdown report shows.
type Report struct {
	Query      string
	Date       time.Time
	Total      int
	Records    []types.Record
	Candidates []types.HashCandidate

	// Summary is nil when no cracking was attempted.
	Summary  *merge.Summary
	Failures []JobFailure
}

// FieldStat describes one flattened column.
type FieldStat struct {
	Field    string
	NonEmpty int
	Unique   int
}

// FieldStats counts non-empty and distinct values per column.
func FieldStats(records []types.Record) []FieldStat {
	cols := types.Columns(records)
	stats := make([]FieldStat, len(cols))
	for i, c := range cols {
		distinct := make(map[string]bool)
		for _, r := range records {
			v := r.Flatten()[c]
			if v == "" {
				continue
			}
			stats[i].NonEmpty++
			distinct[v] = true
		}
		stats[i].Field = c
		stats[i].Unique = len(distinct)
	}
	return stats
}

// WriteMarkdown renders rep as a Markdown report.
func WriteMarkdown(w io.Writer, rep Report) error {
	md := markdown.NewMarkdown(w)

	md.H1("Credential Search Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Query", "`" + rep.Query + "`"},
			{"Date", rep.Date.Format("2006-01-02 15:04:05 MST")},
			{"Entries in API", strconv.Itoa(rep.Total)},
			{"Records exported", strconv.Itoa(len(rep.Records))},
			{"Hash candidates", strconv.Itoa(len(rep.Candidates))},
		},
	})
	md.PlainText("")

	writeAlert(md, rep)
	writeFields(md, rep.Records)
	writeCandidates(md, rep.Candidates)
	writeCracking(md, rep)
	writeRecords(md, rep.Records)

	return md.Build()
}

func writeAlert(md *markdown.Markdown, rep Report) {
	switch {
	case rep.Summary != nil && rep.Summary.Cracked > 0:
		md.Cautionf("%d of %d hashes were cracked. This report contains plaintext credentials.",
			rep.Summary.Cracked, rep.Summary.Considered)
	case len(rep.Failures) > 0:
		md.Warningf("%d cracking job(s) did not complete.", len(rep.Failures))
	case len(rep.Records) == 0:
		md.Note("The search returned no records.")
	default:
		md.Importantf("This report contains breach data. Store it securely.")
	}
	md.PlainText("")
}

func writeFields(md *markdown.Markdown, records []types.Record) {
	md.H2("Field Summary")
	md.PlainText("")
	stats := FieldStats(records)
	if len(stats) == 0 {
		md.PlainText("No fields.")
		md.PlainText("")
		return
	}
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{s.Field, strconv.Itoa(s.NonEmpty), strconv.Itoa(s.Unique)}
	}
	md.Table(markdown.TableSet{Header: []string{"Field", "Non-empty", "Unique"}, Rows: rows})
	md.PlainText("")
}

func writeCandidates(md *markdown.Markdown, candidates []types.HashCandidate) {
	md.H2("Hash Fields")
	md.PlainText("")
	cols := detect.Columns(candidates)
	if len(cols) == 0 {
		md.PlainText("No hash fields detected.")
		md.PlainText("")
		return
	}
	rows := make([][]string, len(cols))
	for i, c := range cols {
		names := make([]string, len(c.Types))
		for j, t := range c.Types {
			names[j] = string(t)
		}
		rows[i] = []string{c.Field, strconv.Itoa(c.Count), strings.Join(names, ", ")}
	}
	md.Table(markdown.TableSet{Header: []string{"Field", "Values", "Types"}, Rows: rows})
	md.PlainText("")

	if n := unknownCount(candidates); n > 0 {
		md.Note(fmt.Sprintf("%d value(s) are typed unknown (%v): their shape fits several families or none. The engine auto-detects them.",
			n, types.ErrDetectionAmbiguous))
		md.PlainText("")
	}
}

func unknownCount(candidates []types.HashCandidate) int {
	n := 0
	for _, c := range candidates {
		if c.InferredType == types.HashUnknown {
			n++
		}
	}
	return n
}

func writeCracking(md *markdown.Markdown, rep Report) {
	if rep.Summary == nil && len(rep.Failures) == 0 {
		return
	}
	md.H2("Cracking")
	md.PlainText("")

	if s := rep.Summary; s != nil {
		rows := make([][]string, 0, len(s.ByType)+1)
		for _, t := range s.Types() {
			ts := s.ByType[t]
			rows = append(rows, []string{string(t), strconv.Itoa(ts.Considered), strconv.Itoa(ts.Cracked), strconv.Itoa(ts.Unresolved)})
		}
		rows = append(rows, []string{"**Total**", strconv.Itoa(s.Considered), strconv.Itoa(s.Cracked), strconv.Itoa(s.Unresolved)})
		md.Table(markdown.TableSet{Header: []string{"Type", "Considered", "Cracked", "Unresolved"}, Rows: rows})
		md.PlainText("")

		engines := s.Engines()
		if len(engines) > 0 {
			items := make([]string, len(engines))
			for i, e := range engines {
				items[i] = fmt.Sprintf("%s: %s", e, s.EngineElapsed[e].Round(time.Millisecond))
			}
			md.PlainText("Engine time:")
			md.PlainText("")
			md.BulletList(items...)
			md.PlainText("")
		}
	}

	if len(rep.Failures) > 0 {
		md.H3("Incomplete Jobs")
		md.PlainText("")
		failures := append([]JobFailure(nil), rep.Failures...)
		sort.SliceStable(failures, func(i, j int) bool { return failures[i].HashType < failures[j].HashType })
		rows := make([][]string, len(failures))
		for i, f := range failures {
			rows[i] = []string{f.Engine, string(f.HashType), f.State, f.Reason}
		}
		md.Table(markdown.TableSet{Header: []string{"Engine", "Type", "State", "Reason"}, Rows: rows})
		md.PlainText("")
	}
}

func writeRecords(md *markdown.Markdown, records []types.Record) {
	md.H2("Records")
	md.PlainText("")
	if len(records) == 0 {
		md.PlainText("No records.")
		md.PlainText("")
		return
	}

	shown := records
	if len(shown) > maxReportRows {
		shown = shown[:maxReportRows]
	}
	cols := types.Columns(shown)
	rows := make([][]string, len(shown))
	for i, r := range shown {
		flat := r.Flatten()
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = escapeCell(flat[c])
		}
		rows[i] = row
	}
	md.Table(markdown.TableSet{Header: cols, Rows: rows})
	md.PlainText("")
	if len(records) > len(shown) {
		md.PlainText(fmt.Sprintf("Showing %d of %d records; see the CSV or JSON export for the rest.", len(shown), len(records)))
		md.PlainText("")
	}
}

// escapeCell keeps values from breaking table syntax.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
