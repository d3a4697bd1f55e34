// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crack supervises external password cracking engines. A Job runs
// one engine subprocess against a private hash file, streams its progress,
// and maps recovered plaintexts back to the candidates that produced them.
package crack

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/credsearch/pkg/types"
)

// JobSpec is what an engine needs to build its command line. All paths live
// in the job's private directory except Wordlist.
type JobSpec struct {
	ID       string
	Dir      string
	HashFile string
	OutFile  string
	PotFile  string
	Wordlist string
	HashType types.HashType

	// Selector is a raw engine mode or format that overrides HashType.
	Selector string
}

// Invocation is a resolved engine command.
type Invocation struct {
	Path string
	Args []string
	// Env is appended to the supervisor's environment.
	Env []string
}

// Progress is one parsed status line.
type Progress struct {
	// Percent of the keyspace covered, 0-100.
	Percent float64 `json:"percent"`
	// Speed in hashes per second, summed across devices.
	Speed float64 `json:"speed"`
	// Elapsed since the job started.
	Elapsed time.Duration `json:"elapsed"`
	// Recovered is the number of hashes cracked so far, when reported.
	Recovered int `json:"recovered"`
}

// Engine is a cracking tool the supervisor can drive. Adding a tool means
// adding an Engine; the job state machine does not change.
type Engine interface {
	// Name returns the engine name ("hashcat" or "john").
	Name() string

	// Available reports whether the engine binary exists on PATH and
	// answers a version probe.
	Available() bool

	// Invocation builds the command for spec.
	Invocation(spec JobSpec) (Invocation, error)

	// SuccessExit reports whether an exit code means the run finished
	// normally, whether or not anything was cracked.
	SuccessExit(code int) bool

	// ParseProgress turns one output line into a progress update. Lines
	// that carry no progress report false.
	ParseProgress(line string) (Progress, bool)

	// Results reads recovered pairs after a successful exit, keyed by
	// normalized hash.
	Results(spec JobSpec) (map[string]string, error)
}

// executor abstracts binary lookup and probing for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

var defaultExec executor = osExecutor{}

// NewEngine returns the adapter for name without checking availability.
func NewEngine(name types.EngineName) (Engine, error) {
	return newEngine(name, defaultExec)
}

func newEngine(name types.EngineName, x executor) (Engine, error) {
	switch name {
	case types.EngineHashcat:
		return newHashcat(x), nil
	case types.EngineJohn:
		return newJohn(x), nil
	}
	return nil, fmt.Errorf("unknown engine %q (want %s or %s)", name, types.EngineHashcat, types.EngineJohn)
}

// DetectEngines returns the installed engines in preference order: hashcat,
// then john.
func DetectEngines() []Engine {
	return detectEngines(defaultExec)
}

func detectEngines(x executor) []Engine {
	var out []Engine
	for _, e := range []Engine{newHashcat(x), newJohn(x)} {
		if e.Available() {
			out = append(out, e)
		}
	}
	return out
}

// SelectEngine returns the named engine if it is installed, or the first
// installed engine when name is empty.
func SelectEngine(name types.EngineName) (Engine, error) {
	return selectEngine(name, defaultExec)
}

func selectEngine(name types.EngineName, x executor) (Engine, error) {
	if name == "" {
		engines := detectEngines(x)
		if len(engines) == 0 {
			return nil, fmt.Errorf("%w: neither %s nor %s found or operational",
				types.ErrJobLaunchFailed, types.EngineHashcat, types.EngineJohn)
		}
		return engines[0], nil
	}

	e, err := newEngine(name, x)
	if err != nil {
		return nil, err
	}
	if !e.Available() {
		return nil, fmt.Errorf("%w: %s not found or operational", types.ErrJobLaunchFailed, name)
	}
	return e, nil
}

// binary resolves an engine executable.
func binary(x executor, bin string) (string, error) {
	path, err := x.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", bin, err)
	}
	return path, nil
}

var hexDigestRe = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// NormalizeHash returns the key used to match engine output to candidates.
// Hex digests compare case-insensitively; other formats are kept as-is.
func NormalizeHash(h string) string {
	h = strings.TrimSpace(h)
	if hexDigestRe.MatchString(h) {
		return strings.ToLower(h)
	}
	return h
}

// decodePlain expands the $HEX[...] form engines use for plaintexts with
// separators or non-printable bytes.
func decodePlain(p string) string {
	if strings.HasPrefix(p, "$HEX[") && strings.HasSuffix(p, "]") {
		if b, err := hex.DecodeString(p[5 : len(p)-1]); err == nil {
			return string(b)
		}
	}
	return p
}

// readPairs parses "hash:plaintext" lines. A missing file means nothing was
// cracked. strip, when set, rewrites the hash part before normalizing.
func readPairs(path string, strip func(string) string) (map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	out := make(map[string]string)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		hash, plain, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%s line %d: missing ':' separator", path, lineNo)
		}
		if strip != nil {
			hash = strip(hash)
		}
		out[NormalizeHash(hash)] = decodePlain(plain)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}
