package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/pdiddy/credsearch/internal/crack"
	"github.com/pdiddy/credsearch/internal/export"
	"github.com/pdiddy/credsearch/internal/history"
	"github.com/pdiddy/credsearch/internal/merge"
	"github.com/pdiddy/credsearch/pkg/types"
)

// crackRun is what cracking one record set produced.
type crackRun struct {
	Records  []types.Record
	Summary  merge.Summary
	Failures []export.JobFailure
}

// crackRecords runs a crack session over candidates and merges the results
// into records. Failed jobs are reported, not returned: only a missing
// wordlist, an unusable engine, or an interrupted session is an error.
// Jobs are recorded under searchID when store is non-nil.
func crackRecords(ctx context.Context, cfg types.CrackConfig, records []types.Record, candidates []types.HashCandidate, store *history.Store, searchID string) (crackRun, error) {
	if cfg.Wordlist == "" {
		return crackRun{}, errors.New("cracking needs a wordlist: pass --wordlist or set crack.wordlist")
	}
	if _, err := os.Stat(cfg.Wordlist); err != nil {
		return crackRun{}, fmt.Errorf("wordlist: %w", err)
	}

	engine, err := crack.SelectEngine(cfg.Engine)
	if err != nil {
		return crackRun{}, err
	}
	force, selector := hashSelection(cfg.HashType)

	fmt.Fprintf(os.Stderr, "Cracking %s hash(es) with %s\n", humanize.Comma(int64(len(candidates))), engine.Name())

	var wg sync.WaitGroup
	sup := crack.NewSupervisor(cfg, logger)
	res, sessionErr := crack.RunSession(ctx, sup, engine, candidates, crack.SessionOptions{
		Wordlist: cfg.Wordlist,
		Force:    force,
		Selector: selector,
		Timeout:  cfg.Timeout,
		OnJob: func(j *crack.Job) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				followProgress(os.Stderr, j)
			}()
		},
	})
	wg.Wait()

	run := crackRun{}
	opts := []merge.Option{merge.WithCandidates(candidates)}
	for _, o := range res.Outcomes {
		if store != nil {
			recordJob(ctx, store, searchID, o)
		}
		if o.State != crack.Completed {
			run.Failures = append(run.Failures, jobFailure(o))
		}
		opts = append(opts, merge.WithEngineTime(o.Engine, o.Elapsed))
	}
	run.Records, run.Summary = merge.Merge(records, res.Results, opts...)

	for _, f := range run.Failures {
		color.New(color.FgYellow).Fprintf(os.Stderr, "  %s job for %s %s: %s\n", f.Engine, f.HashType, f.State, f.Reason)
	}
	return run, sessionErr
}

// hashSelection maps the --hash-type value to a forced family or a raw
// engine selector. Anything that is not a family name is passed through.
func hashSelection(s string) (types.HashType, string) {
	t, err := types.ParseHashType(s)
	if err != nil {
		return "", s
	}
	return t, ""
}

func followProgress(w io.Writer, j *crack.Job) {
	label := j.ID()
	if len(label) > 8 {
		label = label[:8]
	}
	for p := range j.Progress() {
		fmt.Fprintf(w, "  [%s] %5.1f%%  %s  %s recovered  %s\n",
			label,
			p.Percent,
			humanize.SIWithDigits(p.Speed, 1, "H/s"),
			humanize.Comma(int64(p.Recovered)),
			p.Elapsed.Round(time.Second),
		)
	}
}

func jobFailure(o crack.Outcome) export.JobFailure {
	reason := "no error reported"
	if o.Err != nil {
		reason = o.Err.Error()
	}
	return export.JobFailure{
		Engine:   o.Engine,
		HashType: o.HashType,
		State:    o.State.String(),
		Reason:   reason,
	}
}

// recordJob stores o in the history. Failures only warn; the history never
// blocks a crack session.
func recordJob(ctx context.Context, store *history.Store, searchID string, o crack.Outcome) {
	e := history.JobEntry{
		ID:         o.JobID,
		SearchID:   searchID,
		Engine:     o.Engine,
		HashType:   o.HashType,
		State:      o.State.String(),
		Candidates: o.Candidates,
		Cracked:    len(o.Results),
		Elapsed:    o.Elapsed,
		ExitCode:   o.ExitCode,
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	if err := store.RecordJob(context.WithoutCancel(ctx), e); err != nil {
		logger.Warn("recording crack job", "job", o.JobID, "error", err)
	}
}

// printSummary writes the per-family crack breakdown to w.
func printSummary(w io.Writer, s merge.Summary) {
	if s.Considered == 0 {
		return
	}
	c := color.New(color.FgGreen, color.Bold)
	if s.Cracked == 0 {
		c = color.New(color.FgYellow, color.Bold)
	}
	c.Fprintf(w, "Cracked %s of %s hash(es)\n", humanize.Comma(int64(s.Cracked)), humanize.Comma(int64(s.Considered)))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Considered", "Cracked", "Unresolved"})
	for _, ht := range s.Types() {
		ts := s.ByType[ht]
		t.AppendRow(table.Row{ht, ts.Considered, ts.Cracked, ts.Unresolved})
	}
	t.Render()

	for _, name := range s.Engines() {
		fmt.Fprintf(w, "%s ran for %s\n", name, s.EngineElapsed[name].Round(time.Millisecond))
	}
}

// writeExports writes records in every configured format and, when md is
// among them, the Markdown report for rep.
func writeExports(out types.OutputConfig, date time.Time, query, suffix string, records []types.Record, rep export.Report) ([]string, error) {
	paths, err := export.Records(out.Dir, date, query, suffix, out.Formats, records)
	if err != nil {
		return paths, err
	}
	if !slices.Contains(out.Formats, types.FormatMarkdown) {
		return paths, nil
	}
	name := export.FileName(date, query, suffix, types.FormatMarkdown)
	p, err := export.WriteFile(out.Dir, name, func(w io.Writer) error {
		return export.WriteMarkdown(w, rep)
	})
	if err != nil {
		return paths, err
	}
	return append(paths, p), nil
}

func printPaths(w io.Writer, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(w, "Wrote %s\n", p)
	}
}

// openHistory opens the history store, or returns nil when history is off
// or cannot be opened.
func openHistory(cfg types.HistoryConfig) *history.Store {
	if !cfg.Enabled {
		return nil
	}
	store, err := history.Open(cfg)
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	return store
}
