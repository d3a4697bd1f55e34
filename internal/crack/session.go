// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crack

import (
	"context"
	"time"

	"github.com/pdiddy/credsearch/internal/detect"
	"github.com/pdiddy/credsearch/pkg/types"
)

// SessionOptions configures RunSession.
type SessionOptions struct {
	// Wordlist is passed to every job.
	Wordlist string
	// Force runs every candidate as one family instead of grouping by
	// inferred type. HashUnknown or "" means no forcing.
	Force types.HashType
	// Selector is a raw engine mode or format applied to a single group
	// holding every candidate.
	Selector string
	// Timeout bounds each job.
	Timeout time.Duration
	// OnJob is called after each job starts, so callers can follow its
	// progress.
	OnJob func(*Job)
}

// SessionResult collects what a session produced. Partial success is still
// success: failed groups appear in Outcomes and contribute no Results.
type SessionResult struct {
	Results  []types.CrackResult
	Outcomes []Outcome
}

// Failed returns the outcomes that did not complete.
func (r SessionResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.State != Completed {
			out = append(out, o)
		}
	}
	return out
}

// RunSession cracks candidates with engine, one job per hash family, one job
// at a time. It stops early only when ctx is done, returning what finished
// so far together with ctx.Err().
func RunSession(ctx context.Context, sup *Supervisor, engine Engine, candidates []types.HashCandidate, opts SessionOptions) (SessionResult, error) {
	var res SessionResult
	if len(candidates) == 0 {
		return res, nil
	}

	for _, g := range sessionGroups(candidates, opts) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		job := sup.NewJob(engine, g.candidates, JobOptions{
			Wordlist: opts.Wordlist,
			HashType: g.hashType,
			Selector: opts.Selector,
			Timeout:  opts.Timeout,
		})
		if err := job.Start(ctx); err == nil && opts.OnJob != nil {
			opts.OnJob(job)
		}

		out, err := job.Wait(ctx)
		if err != nil {
			job.Cancel()
			out, _ = job.Wait(context.Background())
			res.Outcomes = append(res.Outcomes, out)
			return res, err
		}
		res.Outcomes = append(res.Outcomes, out)
		res.Results = append(res.Results, out.Results...)
	}
	return res, nil
}

type sessionGroup struct {
	hashType   types.HashType
	candidates []types.HashCandidate
}

func sessionGroups(candidates []types.HashCandidate, opts SessionOptions) []sessionGroup {
	if opts.Selector != "" || (opts.Force != "" && opts.Force != types.HashUnknown) {
		t := opts.Force
		if t == "" {
			t = types.HashUnknown
		}
		return []sessionGroup{{hashType: t, candidates: candidates}}
	}

	order, groups := detect.GroupByType(candidates)
	out := make([]sessionGroup, 0, len(order))
	for _, t := range order {
		out = append(out, sessionGroup{hashType: t, candidates: groups[t]})
	}
	return out
}
