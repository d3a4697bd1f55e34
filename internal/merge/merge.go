// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge folds cracked plaintexts back into search records.
package merge

import (
	"sort"
	"time"

	"github.com/pdiddy/credsearch/pkg/types"
)

// PlaintextSuffix is appended to a field name to form the field that holds
// its recovered plaintext.
const PlaintextSuffix = "_plaintext"

// TypeSummary counts candidates of one hash family.
type TypeSummary struct {
	Considered int `json:"considered" yaml:"considered"`
	Cracked    int `json:"cracked" yaml:"cracked"`
	Unresolved int `json:"unresolved" yaml:"unresolved"`
}

// Summary reports how a crack session went. The zero value means nothing
// was considered.
type Summary struct {
	Considered int `json:"considered" yaml:"considered"`
	Cracked    int `json:"cracked" yaml:"cracked"`
	Unresolved int `json:"unresolved" yaml:"unresolved"`

	ByType map[types.HashType]TypeSummary `json:"by_type,omitempty" yaml:"by_type,omitempty"`

	// EngineElapsed is the time spent per engine.
	EngineElapsed map[string]time.Duration `json:"engine_elapsed,omitempty" yaml:"engine_elapsed,omitempty"`
}

// Types returns the families in the summary in types.HashTypes order.
func (s Summary) Types() []types.HashType {
	var out []types.HashType
	for _, t := range types.HashTypes {
		if _, ok := s.ByType[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Engines returns the engine names in the summary, sorted.
func (s Summary) Engines() []string {
	out := make([]string, 0, len(s.EngineElapsed))
	for e := range s.EngineElapsed {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

type options struct {
	candidates []types.HashCandidate
	engineTime map[string]time.Duration
}

// Option configures Merge.
type Option func(*options)

// WithCandidates supplies every candidate that was sent to an engine, so
// the summary can count the ones that were not cracked. Without it only
// cracked candidates are counted.
func WithCandidates(c []types.HashCandidate) Option {
	return func(o *options) { o.candidates = c }
}

// WithEngineTime adds d to the time engine spent on the session. It may be
// given once per job. When any is given, EngineElapsed reports these times,
// including engines whose jobs cracked nothing; otherwise it is estimated
// from the results.
func WithEngineTime(engine string, d time.Duration) Option {
	return func(o *options) {
		if o.engineTime == nil {
			o.engineTime = make(map[string]time.Duration)
		}
		o.engineTime[engine] += d
	}
}

// Merge returns records with a "<field>_plaintext" field added to each
// record a result cracked. Records are never modified: a cracked record is
// replaced by a copy, the others are returned as the same map. A field
// cracked more than once in the same record gets a list of plaintexts.
// Results with an empty plaintext or an index outside records are ignored.
func Merge(records []types.Record, results []types.CrackResult, opts ...Option) ([]types.Record, Summary) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(results) == 0 && len(o.candidates) == 0 && len(o.engineTime) == 0 {
		return records, Summary{}
	}

	out := make([]types.Record, len(records))
	copy(out, records)

	copied := make(map[int]bool)
	plains := make(map[int]map[string][]string)
	var fieldOrder []fieldRef

	for _, r := range results {
		idx := r.Candidate.RecordIndex
		if r.Plaintext == "" || idx < 0 || idx >= len(records) {
			continue
		}
		if plains[idx] == nil {
			plains[idx] = make(map[string][]string)
		}
		field := r.Candidate.FieldName + PlaintextSuffix
		if _, seen := plains[idx][field]; !seen {
			fieldOrder = append(fieldOrder, fieldRef{idx, field})
		}
		plains[idx][field] = append(plains[idx][field], r.Plaintext)
	}

	for _, f := range fieldOrder {
		if !copied[f.idx] {
			out[f.idx] = records[f.idx].Clone()
			copied[f.idx] = true
		}
		vals := plains[f.idx][f.field]
		if len(vals) == 1 {
			out[f.idx][f.field] = vals[0]
			continue
		}
		list := make([]any, len(vals))
		for i, v := range vals {
			list[i] = v
		}
		out[f.idx][f.field] = list
	}

	s := summarize(results, o.candidates)
	if len(o.engineTime) > 0 {
		s.EngineElapsed = make(map[string]time.Duration, len(o.engineTime))
		for engine, d := range o.engineTime {
			s.EngineElapsed[engine] = d
		}
	}
	return out, s
}

type fieldRef struct {
	idx   int
	field string
}

// candidateKey identifies a candidate independent of how it was found.
type candidateKey struct {
	idx   int
	field string
	raw   string
}

func keyOf(c types.HashCandidate) candidateKey {
	return candidateKey{c.RecordIndex, c.FieldName, c.RawValue}
}

func summarize(results []types.CrackResult, candidates []types.HashCandidate) Summary {
	s := Summary{
		ByType:        make(map[types.HashType]TypeSummary),
		EngineElapsed: make(map[string]time.Duration),
	}

	cracked := make(map[candidateKey]bool)
	// Jobs run per hash family, so results of one engine and family share a
	// job; the longest elapsed time stands for that job.
	jobElapsed := make(map[string]map[types.HashType]int64)
	for _, r := range results {
		if r.Plaintext == "" {
			continue
		}
		cracked[keyOf(r.Candidate)] = true

		if jobElapsed[r.CrackedBy] == nil {
			jobElapsed[r.CrackedBy] = make(map[types.HashType]int64)
		}
		t := r.Candidate.InferredType
		if r.ElapsedMillis > jobElapsed[r.CrackedBy][t] {
			jobElapsed[r.CrackedBy][t] = r.ElapsedMillis
		}
	}
	for engine, byType := range jobElapsed {
		var total int64
		for _, ms := range byType {
			total += ms
		}
		s.EngineElapsed[engine] = time.Duration(total) * time.Millisecond
	}

	considered := candidates
	if len(considered) == 0 {
		for _, r := range results {
			if r.Plaintext != "" {
				considered = append(considered, r.Candidate)
			}
		}
	}

	seen := make(map[candidateKey]bool)
	for _, c := range considered {
		k := keyOf(c)
		if seen[k] {
			continue
		}
		seen[k] = true

		ts := s.ByType[c.InferredType]
		ts.Considered++
		s.Considered++
		if cracked[k] {
			ts.Cracked++
			s.Cracked++
		} else {
			ts.Unresolved++
			s.Unresolved++
		}
		s.ByType[c.InferredType] = ts
	}
	return s
}
