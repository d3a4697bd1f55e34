// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crack

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	seclog "github.com/pdiddy/credsearch/internal/log"
	"github.com/pdiddy/credsearch/pkg/types"
)

const (
	// DefaultGrace is how long an interrupted engine may take to exit
	// before it is killed.
	DefaultGrace = 5 * time.Second

	progressBuffer = 64
	tailLines      = 5

	hashFileName = "hashes.txt"
	outFileName  = "cracked.out"
	potFileName  = "engine.pot"
)

// State is a job lifecycle state.
type State int

const (
	Created State = iota
	Running
	Completed
	Failed
	TimedOut
	Cancelled
)

var stateNames = [...]string{"created", "running", "completed", "failed", "timed_out", "cancelled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s >= Completed }

// JobOptions configures one job.
type JobOptions struct {
	Wordlist string
	HashType types.HashType
	// Selector overrides HashType with a raw engine mode or format.
	Selector string
	// Timeout bounds the run. Zero means no deadline.
	Timeout time.Duration
	// Grace overrides the supervisor's grace period.
	Grace time.Duration
}

// Outcome is the terminal report of a job.
type Outcome struct {
	JobID    string
	Engine   string
	HashType types.HashType
	State    State
	// Candidates is how many candidates the job was given.
	Candidates int
	Results    []types.CrackResult
	Err        error
	Elapsed    time.Duration
	// ExitCode is the engine exit code, or -1 when it never ran or was
	// killed by a signal.
	ExitCode int
}

// Supervisor creates jobs and makes sure at most one runs at a time.
type Supervisor struct {
	tempDir string
	grace   time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	active *Job
}

// NewSupervisor builds a Supervisor from cfg. A nil logger discards.
func NewSupervisor(cfg types.CrackConfig, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = seclog.Discard()
	}
	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Supervisor{tempDir: cfg.TempDir, grace: grace, logger: logger}
}

// NewJob returns a job in the Created state. Nothing touches the disk or
// starts a process until Start.
func (s *Supervisor) NewJob(engine Engine, candidates []types.HashCandidate, opts JobOptions) *Job {
	if opts.Grace <= 0 {
		opts.Grace = s.grace
	}
	id := uuid.NewString()
	return &Job{
		id:         id,
		engine:     engine,
		candidates: candidates,
		opts:       opts,
		sup:        s,
		log: s.logger.With(
			"job", id,
			"engine", engine.Name(),
			"hash_type", string(opts.HashType),
		),
		progress: make(chan Progress, progressBuffer),
		done:     make(chan struct{}),
	}
}

func (s *Supervisor) acquire(j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active != j {
		return fmt.Errorf("job %s is still running", s.active.id)
	}
	s.active = j
	return nil
}

func (s *Supervisor) release(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == j {
		s.active = nil
	}
}

// Job is one supervised engine run over a fixed candidate set.
type Job struct {
	id         string
	engine     Engine
	candidates []types.HashCandidate
	opts       JobOptions
	sup        *Supervisor
	log        *slog.Logger

	mu        sync.Mutex
	state     State
	settling  bool
	dir       string
	cancel    context.CancelCauseFunc
	latest    Progress
	hasLatest bool
	outcome   Outcome

	progress chan Progress
	done     chan struct{}
}

func (j *Job) ID() string { return j.id }

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// ArtifactDir returns the job's private directory, or "" before Start.
func (j *Job) ArtifactDir() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dir
}

// Progress returns updates in the order the engine printed them. Sends never
// block the job: a slow reader misses updates rather than stalling the
// engine. The channel is closed when the job reaches a terminal state.
func (j *Job) Progress() <-chan Progress { return j.progress }

// Latest returns the most recent progress update.
func (j *Job) Latest() (Progress, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.latest, j.hasLatest
}

// Done is closed once the outcome is available.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job is terminal or ctx is done.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Start moves the job from Created to Running: it writes the hash file,
// launches the engine, and returns once the process is running. Failures to
// launch leave the job Failed with types.ErrJobLaunchFailed and are also
// returned. The job stops when ctx is cancelled, its timeout elapses, or
// Cancel is called.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.state != Created || j.settling {
		state := j.state
		if j.settling && !state.Terminal() {
			state = Cancelled
		}
		j.mu.Unlock()
		return fmt.Errorf("job %s: cannot start in state %s", j.id, state)
	}
	if err := j.sup.acquire(j); err != nil {
		j.settling = true
		j.mu.Unlock()
		err = fmt.Errorf("%w: %v", types.ErrJobLaunchFailed, err)
		j.settle(Failed, nil, err, -1, 0)
		return err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	cancelTimeout := context.CancelFunc(func() {})
	if j.opts.Timeout > 0 {
		runCtx, cancelTimeout = context.WithTimeoutCause(runCtx, j.opts.Timeout, types.ErrJobTimedOut)
	}
	j.cancel = func(cause error) {
		cancel(cause)
		cancelTimeout()
	}
	j.state = Running
	j.mu.Unlock()

	start := time.Now()
	spec, inv, err := j.prepare()
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", types.ErrJobLaunchFailed, j.engine.Name(), err)
		j.finish(Failed, nil, err, -1, time.Since(start))
		return err
	}

	pr, pw := io.Pipe()
	cmd := exec.CommandContext(runCtx, inv.Path, inv.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	interrupted := new(atomic.Bool)
	cmd.Cancel = func() error {
		err := cmd.Process.Signal(os.Interrupt)
		if err == nil {
			interrupted.Store(true)
		}
		return err
	}
	cmd.WaitDelay = j.opts.Grace

	if err := cmd.Start(); err != nil {
		pw.Close()
		if state, cause, stopped := stopState(runCtx); stopped {
			j.finish(state, nil, cause, -1, time.Since(start))
			return cause
		}
		err = fmt.Errorf("%w: %s: %v", types.ErrJobLaunchFailed, j.engine.Name(), err)
		j.finish(Failed, nil, err, -1, time.Since(start))
		return err
	}

	j.log.Info("engine started", "pid", cmd.Process.Pid, "candidates", len(j.candidates))
	go j.run(runCtx, cmd, spec, pr, pw, start, interrupted)
	return nil
}

// Cancel stops the job. A Created job becomes Cancelled at once; a Running
// job is interrupted and becomes Cancelled once the engine has exited.
// Cancelling a terminal job does nothing.
func (j *Job) Cancel() {
	j.mu.Lock()
	switch {
	case j.state == Created && !j.settling:
		j.settling = true
		j.mu.Unlock()
		j.settle(Cancelled, nil, types.ErrJobCancelled, -1, 0)
	case j.state == Running:
		cancel := j.cancel
		j.mu.Unlock()
		cancel(types.ErrJobCancelled)
	default:
		j.mu.Unlock()
	}
}

// prepare creates the private directory, writes the hash file, and asks the
// engine for its command line.
func (j *Job) prepare() (JobSpec, Invocation, error) {
	dir, err := os.MkdirTemp(j.sup.tempDir, "credsearch-job-")
	if err != nil {
		return JobSpec{}, Invocation{}, fmt.Errorf("creating job directory: %w", err)
	}
	j.mu.Lock()
	j.dir = dir
	j.mu.Unlock()

	spec := JobSpec{
		ID:       j.id,
		Dir:      dir,
		HashFile: filepath.Join(dir, hashFileName),
		OutFile:  filepath.Join(dir, outFileName),
		PotFile:  filepath.Join(dir, potFileName),
		Wordlist: j.opts.Wordlist,
		HashType: j.opts.HashType,
		Selector: j.opts.Selector,
	}
	if err := writeHashFile(spec.HashFile, j.candidates); err != nil {
		return spec, Invocation{}, err
	}

	inv, err := j.engine.Invocation(spec)
	if err != nil {
		return spec, Invocation{}, err
	}
	return spec, inv, nil
}

// writeHashFile writes each distinct raw value once, in candidate order.
func writeHashFile(path string, candidates []types.HashCandidate) error {
	var b strings.Builder
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		v := strings.TrimSpace(c.RawValue)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		b.WriteString(v)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("writing hash file: %w", err)
	}
	return nil
}

// run reads the merged output stream until the engine exits, then settles
// the job. The outcome is published only after the stream is drained.
func (j *Job) run(ctx context.Context, cmd *exec.Cmd, spec JobSpec, pr *io.PipeReader, pw *io.PipeWriter, start time.Time, interrupted *atomic.Bool) {
	tail := newTail(tailLines)

	var g errgroup.Group
	g.Go(func() error {
		sc := bufio.NewScanner(pr)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			line := sc.Text()
			tail.add(line)
			j.log.Debug("engine output", "line", line)
			if p, ok := j.engine.ParseProgress(line); ok {
				if p.Elapsed == 0 {
					p.Elapsed = time.Since(start)
				}
				j.publish(p)
			}
		}
		err := sc.Err()
		if err != nil {
			// Keep draining so the engine never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, pr)
		}
		return err
	})

	waitErr := cmd.Wait()
	pw.Close()
	scanErr := g.Wait()
	elapsed := time.Since(start)

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	exited := waitErr == nil || errors.As(waitErr, &exitErr)
	succeeded := exited && j.engine.SuccessExit(exitCode)
	if state, cause, stopped := stoppedBy(ctx, interrupted.Load(), succeeded); stopped {
		j.finish(state, nil, cause, exitCode, elapsed)
		return
	}

	if !exited {
		j.finish(Failed, nil, fmt.Errorf("%w: %s: %v", types.ErrJobFailed, j.engine.Name(), waitErr), exitCode, elapsed)
		return
	}
	if !j.engine.SuccessExit(exitCode) {
		err := fmt.Errorf("%w: %s exited with code %d", types.ErrJobFailed, j.engine.Name(), exitCode)
		if t := tail.String(); t != "" {
			err = fmt.Errorf("%w: %s", err, seclog.Redact(t))
		}
		j.finish(Failed, nil, err, exitCode, elapsed)
		return
	}
	if scanErr != nil {
		j.finish(Failed, nil, fmt.Errorf("%w: reading engine output: %v", types.ErrJobParseFailure, scanErr), exitCode, elapsed)
		return
	}

	pairs, err := j.engine.Results(spec)
	if err != nil {
		j.finish(Failed, nil, fmt.Errorf("%w: %v", types.ErrJobParseFailure, err), exitCode, elapsed)
		return
	}
	j.finish(Completed, j.match(pairs, elapsed), nil, exitCode, elapsed)
}

// stoppedBy reports whether ctx ended a run that has exited. An engine that
// exited successfully before it was interrupted keeps its results even when
// ctx ended while its exit was being collected.
func stoppedBy(ctx context.Context, interrupted, succeeded bool) (State, error, bool) {
	if succeeded && !interrupted {
		return 0, nil, false
	}
	return stopState(ctx)
}

// stopState reports whether ctx ended the job and how. Deadlines, the job's
// own or the caller's, are timeouts; everything else is a cancellation.
func stopState(ctx context.Context) (State, error, bool) {
	if ctx.Err() == nil {
		return 0, nil, false
	}
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, types.ErrJobTimedOut):
		return TimedOut, cause, true
	case errors.Is(cause, context.DeadlineExceeded):
		return TimedOut, fmt.Errorf("%w: %v", types.ErrJobTimedOut, cause), true
	case errors.Is(cause, types.ErrJobCancelled):
		return Cancelled, cause, true
	default:
		return Cancelled, fmt.Errorf("%w: %v", types.ErrJobCancelled, cause), true
	}
}

// match turns engine pairs into one result per candidate that was cracked,
// so duplicate hashes across records each get their own result.
func (j *Job) match(pairs map[string]string, elapsed time.Duration) []types.CrackResult {
	var out []types.CrackResult
	for _, c := range j.candidates {
		plain, ok := pairs[NormalizeHash(c.RawValue)]
		if !ok {
			continue
		}
		out = append(out, types.CrackResult{
			Candidate:     c,
			Plaintext:     plain,
			CrackedBy:     j.engine.Name(),
			ElapsedMillis: elapsed.Milliseconds(),
		})
	}
	return out
}

func (j *Job) publish(p Progress) {
	j.mu.Lock()
	j.latest, j.hasLatest = p, true
	j.mu.Unlock()

	select {
	case j.progress <- p:
	default:
	}
}

// finish settles the job unless something else already is.
func (j *Job) finish(state State, results []types.CrackResult, err error, exitCode int, elapsed time.Duration) {
	j.mu.Lock()
	if j.settling {
		j.mu.Unlock()
		return
	}
	j.settling = true
	j.mu.Unlock()
	j.settle(state, results, err, exitCode, elapsed)
}

// settle records the terminal state, removes the job directory, and
// publishes the outcome. Callers must have claimed the job via settling.
func (j *Job) settle(state State, results []types.CrackResult, err error, exitCode int, elapsed time.Duration) {
	j.mu.Lock()
	dir, cancel := j.dir, j.cancel
	j.mu.Unlock()

	if cancel != nil {
		cancel(context.Canceled)
	}
	if dir != "" {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			j.log.Warn("removing job directory", "dir", dir, "error", rmErr)
		}
	}

	j.mu.Lock()
	j.state = state
	j.outcome = Outcome{
		JobID:      j.id,
		Engine:     j.engine.Name(),
		HashType:   j.opts.HashType,
		State:      state,
		Candidates: len(j.candidates),
		Results:    results,
		Err:        err,
		Elapsed:    elapsed,
		ExitCode:   exitCode,
	}
	j.mu.Unlock()

	close(j.progress)
	j.sup.release(j)
	close(j.done)

	attrs := []any{"state", state.String(), "elapsed", elapsed, "cracked", len(results), "exit_code", exitCode}
	if err != nil {
		j.log.Warn("job finished", append(attrs, "error", err)...)
		return
	}
	j.log.Info("job finished", attrs...)
}

// tail keeps the last n output lines for failure reports.
type tail struct {
	mu    sync.Mutex
	n     int
	lines []string
}

func newTail(n int) *tail { return &tail{n: n} }

func (t *tail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}
