// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a local SQLite log of searches and crack jobs.
// It records counts and outcomes only; API keys, records, and plaintexts
// are never stored.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/credsearch/pkg/types"
)

const (
	appDir = "credsearch"
	dbFile = "history.db"

	defaultLimit = 20

	// timeLayout has fixed width so created_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// DefaultDir is where the database lives when no directory is configured.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, appDir)
}

// Store manages the history database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database in cfg.Dir (DefaultDir when
// empty) and creates the schema if it does not exist.
func Open(cfg types.HistoryConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS searches (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			outcome TEXT NOT NULL,
			status_code INTEGER,
			message TEXT,
			total INTEGER,
			records INTEGER,
			attempts INTEGER,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS crack_jobs (
			id TEXT PRIMARY KEY,
			search_id TEXT REFERENCES searches(id) ON DELETE CASCADE,
			engine TEXT NOT NULL,
			hash_type TEXT NOT NULL,
			state TEXT NOT NULL,
			candidates INTEGER,
			cracked INTEGER,
			elapsed_ms INTEGER,
			exit_code INTEGER,
			error TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_searches_created ON searches(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_search_id ON crack_jobs(search_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Outcome names stored for each SearchOutcome variant.
const (
	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeAPIError    = "api_error"
	OutcomeTransport   = "transport_error"
)

// SearchEntry is one recorded search.
type SearchEntry struct {
	ID         string    `json:"id" yaml:"id"`
	Query      string    `json:"query" yaml:"query"`
	Outcome    string    `json:"outcome" yaml:"outcome"`
	StatusCode int       `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Message    string    `json:"message,omitempty" yaml:"message,omitempty"`
	Total      int       `json:"total" yaml:"total"`
	Records    int       `json:"records" yaml:"records"`
	Attempts   int       `json:"attempts" yaml:"attempts"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// JobEntry is one recorded crack job.
type JobEntry struct {
	ID         string         `json:"id" yaml:"id"`
	SearchID   string         `json:"search_id,omitempty" yaml:"search_id,omitempty"`
	Engine     string         `json:"engine" yaml:"engine"`
	HashType   types.HashType `json:"hash_type" yaml:"hash_type"`
	State      string         `json:"state" yaml:"state"`
	Candidates int            `json:"candidates" yaml:"candidates"`
	Cracked    int            `json:"cracked" yaml:"cracked"`
	Elapsed    time.Duration  `json:"elapsed" yaml:"elapsed"`
	ExitCode   int            `json:"exit_code" yaml:"exit_code"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at" yaml:"created_at"`
}

// RecordSearch stores one search and returns its ID. records is the number
// of records kept after cleaning.
func (s *Store) RecordSearch(ctx context.Context, req types.SearchRequest, out types.SearchOutcome, records int) (string, error) {
	e := SearchEntry{
		ID:        uuid.NewString(),
		Query:     req.Expression(),
		Records:   records,
		CreatedAt: s.now().UTC(),
	}
	switch o := out.(type) {
	case *types.Success:
		e.Outcome, e.Total, e.Attempts = OutcomeSuccess, o.Total, o.Attempts
	case *types.RateLimited:
		e.Outcome, e.Attempts = OutcomeRateLimited, o.Attempts
		e.Message = fmt.Sprintf("retry after %ds", o.AfterSeconds)
	case *types.APIError:
		e.Outcome, e.StatusCode, e.Message = OutcomeAPIError, o.StatusCode, o.Message
	case *types.TransportError:
		e.Outcome, e.Message = OutcomeTransport, o.Message
	default:
		return "", fmt.Errorf("unknown search outcome %T", out)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, outcome, status_code, message, total, records, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Query, e.Outcome, e.StatusCode, e.Message, e.Total, e.Records, e.Attempts,
		e.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting search: %w", err)
	}
	return e.ID, nil
}

// RecordJob stores one crack job. An empty SearchID records a job run
// outside a search, such as cracking an exported file.
func (s *Store) RecordJob(ctx context.Context, e JobEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	var searchID any
	if e.SearchID != "" {
		searchID = e.SearchID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crack_jobs (id, search_id, engine, hash_type, state, candidates, cracked, elapsed_ms, exit_code, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, searchID, e.Engine, string(e.HashType), e.State, e.Candidates, e.Cracked,
		e.Elapsed.Milliseconds(), e.ExitCode, e.Error, e.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting crack job: %w", err)
	}
	return nil
}

// Searches returns the most recent searches first. A limit of zero or less
// uses the default of 20.
func (s *Store) Searches(ctx context.Context, limit int) ([]SearchEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, outcome, status_code, message, total, records, attempts, created_at
		 FROM searches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying searches: %w", err)
	}
	defer rows.Close()

	var out []SearchEntry
	for rows.Next() {
		var (
			e       SearchEntry
			message sql.NullString
			created string
		)
		if err := rows.Scan(&e.ID, &e.Query, &e.Outcome, &e.StatusCode, &message,
			&e.Total, &e.Records, &e.Attempts, &created); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		e.Message = message.String
		e.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Jobs returns the crack jobs of one search in the order they ran.
func (s *Store) Jobs(ctx context.Context, searchID string) ([]JobEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, search_id, engine, hash_type, state, candidates, cracked, elapsed_ms, exit_code, error, created_at
		 FROM crack_jobs WHERE search_id = ? ORDER BY created_at, rowid`, searchID)
	if err != nil {
		return nil, fmt.Errorf("querying crack jobs: %w", err)
	}
	defer rows.Close()

	var out []JobEntry
	for rows.Next() {
		var (
			e         JobEntry
			search    sql.NullString
			errText   sql.NullString
			hashType  string
			elapsedMS int64
			created   string
		)
		if err := rows.Scan(&e.ID, &search, &e.Engine, &hashType, &e.State, &e.Candidates,
			&e.Cracked, &elapsedMS, &e.ExitCode, &errText, &created); err != nil {
			return nil, fmt.Errorf("scanning crack job: %w", err)
		}
		e.SearchID = search.String
		e.Error = errText.String
		e.HashType = types.HashType(hashType)
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		e.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ErrNotFound is returned by Search for an unknown ID.
var ErrNotFound = errors.New("history entry not found")

// Search returns one search by ID.
func (s *Store) Search(ctx context.Context, id string) (SearchEntry, error) {
	var (
		e       SearchEntry
		message sql.NullString
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, outcome, status_code, message, total, records, attempts, created_at
		 FROM searches WHERE id = ?`, id).
		Scan(&e.ID, &e.Query, &e.Outcome, &e.StatusCode, &message, &e.Total, &e.Records, &e.Attempts, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return SearchEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return SearchEntry{}, fmt.Errorf("querying search: %w", err)
	}
	e.Message = message.String
	e.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return SearchEntry{}, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	return e, nil
}
