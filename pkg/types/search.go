// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for credsearch: search requests
// and outcomes, breach records, hash candidates, and crack results.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Record is one breach entry as returned by the API. The field set varies per
// response, so a Record is an open mapping of field name to a JSON value
// (string, number, bool, nil, nested map, or list). Records are never written
// after decoding; code that needs a changed record builds a new one.
type Record map[string]any

// QueryKind selects which DeHashed field a query targets.
type QueryKind string

const (
	QueryDomain QueryKind = "domain"
	QueryEmail  QueryKind = "email"
)

// ParseQueryKind maps a user-supplied kind name to a QueryKind.
func ParseQueryKind(s string) (QueryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "domain", "":
		return QueryDomain, nil
	case "email":
		return QueryEmail, nil
	default:
		return "", fmt.Errorf("unknown query kind %q: use domain or email", s)
	}
}

// SearchRequest is a single logical search. It is passed by value and never
// modified after construction.
type SearchRequest struct {
	// Query is the domain or email address to search for.
	Query string `json:"query" yaml:"query"`

	// Kind selects the API field the query targets.
	Kind QueryKind `json:"kind" yaml:"kind"`

	// APIKey authenticates the request. Never logged.
	APIKey string `json:"-" yaml:"-"`

	// MaxRetries is how many times a rate-limited request is retried. Zero
	// means a single attempt.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Page and Size control API pagination (defaults 1 and 10000).
	Page int `json:"page" yaml:"page"`
	Size int `json:"size" yaml:"size"`
}

// Expression renders the query in DeHashed search syntax, e.g.
// "domain:example.com". A query that already names a field is sent as is.
func (r SearchRequest) Expression() string {
	q := strings.TrimSpace(r.Query)
	if i := strings.Index(q, ":"); i > 0 && isFieldName(q[:i]) {
		return q
	}
	kind := r.Kind
	if kind == "" {
		kind = QueryDomain
	}
	return string(kind) + ":" + q
}

func isFieldName(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}

// Validate reports whether the request can be sent.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if r.APIKey == "" {
		return ErrMissingAPIKey
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", r.MaxRetries)
	}
	return nil
}

// SearchOutcome is the result of one request lifecycle. It is exactly one of
// *Success, *RateLimited, *APIError, or *TransportError.
type SearchOutcome interface {
	outcome()
}

// Success carries the entries of a 2xx response.
type Success struct {
	Records  []Record
	Total    int
	Attempts int
}

// RateLimited is returned when every attempt was answered with HTTP 429.
type RateLimited struct {
	// AfterSeconds is the last wait the server asked for, or the last
	// computed backoff when no hint was sent.
	AfterSeconds int
	Attempts     int
}

// APIError is a non-2xx, non-429 response.
type APIError struct {
	StatusCode int
	Message    string
}

// TransportError is a failure below the API layer: connection errors,
// unreadable bodies, or a cancelled context.
type TransportError struct {
	Message string
	Err     error
}

func (*Success) outcome()        {}
func (*RateLimited) outcome()    {}
func (*APIError) outcome()       {}
func (*TransportError) outcome() {}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("rate limit exceeded after %d attempt(s); server asked to wait %ds", e.Attempts, e.AfterSeconds)
}

// Is lets errors.Is match ErrRateLimitExhausted.
func (e *RateLimited) Is(target error) bool { return target == ErrRateLimitExhausted }

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match ErrAPI.
func (e *APIError) Is(target error) bool { return target == ErrAPI }

func (e *TransportError) Error() string {
	return "network error: " + e.Message
}

// Is lets errors.Is match ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// OutcomeErr returns nil for *Success and the outcome itself otherwise, so
// callers can treat a SearchOutcome as an error return.
func OutcomeErr(o SearchOutcome) error {
	switch v := o.(type) {
	case *Success:
		return nil
	case *RateLimited:
		return v
	case *APIError:
		return v
	case *TransportError:
		return v
	case nil:
		return errors.New("no search outcome")
	default:
		return fmt.Errorf("unexpected search outcome %T", o)
	}
}
