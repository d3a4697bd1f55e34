// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs credential searches against the DeHashed API and
// classifies each request lifecycle into exactly one SearchOutcome.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/credsearch/internal/httputil"
	seclog "github.com/pdiddy/credsearch/internal/log"
	"github.com/pdiddy/credsearch/pkg/types"
)

// dehashedAPIBase is the DeHashed v2 search endpoint. Declared as a var so
// tests can substitute an httptest server.
var dehashedAPIBase = "https://api.dehashed.com/v2/search"

const (
	defaultPageSize  = 10000
	defaultUserAgent = "credsearch/0.1"
	// maxMessageBytes bounds how much of a non-JSON error body is reported.
	maxMessageBytes = 200
)

// Client issues searches. The zero value is not usable; build one with
// NewClient.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	pageSize  int
	backoff   httputil.Backoff
	limiter   *rate.Limiter
	logger    *slog.Logger

	// sleep overrides the backoff wait in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client from cfg. A nil httpClient gets one with
// cfg.Timeout; a nil logger discards.
func NewClient(cfg types.SearchConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = seclog.Discard()
	}

	c := &Client{
		http:      httpClient,
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		pageSize:  cfg.PageSize,
		backoff:   httputil.DefaultBackoff,
		logger:    logger,
	}
	if c.baseURL == "" {
		c.baseURL = dehashedAPIBase
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if cfg.BackoffBase > 0 {
		c.backoff.Base = cfg.BackoffBase
	}
	if cfg.BackoffCeiling > 0 {
		c.backoff.Ceiling = cfg.BackoffCeiling
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// searchRequest is the JSON payload sent to the API.
type searchRequest struct {
	Query string `json:"query"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
}

// searchResponse is the success envelope. Success is a pointer because
// older responses omit it; a missing flag means success.
type searchResponse struct {
	Success *bool          `json:"success"`
	Total   int            `json:"total"`
	Balance int            `json:"balance"`
	Entries []types.Record `json:"entries"`
	Message string         `json:"message"`
}

// errorResponse covers the error body shapes the API uses.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Execute runs one logical search. It never returns a nil outcome and never
// panics on a bad response: every failure is one of the typed variants.
// Only HTTP 429 is retried, at most req.MaxRetries times.
func (c *Client) Execute(ctx context.Context, req types.SearchRequest) types.SearchOutcome {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	size := req.Size
	if size <= 0 {
		size = c.pageSize
	}

	payload, err := json.Marshal(searchRequest{Query: req.Expression(), Page: page, Size: size})
	if err != nil {
		return &types.TransportError{Message: fmt.Sprintf("encoding request: %v", err), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return &types.TransportError{Message: fmt.Sprintf("creating request: %v", err), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Dehashed-Api-Key", req.APIKey)

	log := c.logger.With("query", req.Expression())
	log.Debug("sending search", "page", page, "size", size, "max_retries", req.MaxRetries)

	resp, stats, err := httputil.DoWithRetry(ctx, c.http, httpReq, httputil.RetryOptions{
		MaxRetries: req.MaxRetries,
		Backoff:    c.backoff,
		Limiter:    c.limiter,
		Sleep:      c.sleep,
		OnRetry: func(attempt int, delay time.Duration, hinted bool) {
			log.Warn("rate limited, retrying",
				"attempt", attempt+1,
				"max_attempts", req.MaxRetries+1,
				"delay", delay,
				"server_hint", hinted,
			)
		},
	})
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(fmt.Errorf("reading response body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		out := &types.RateLimited{
			AfterSeconds: int(math.Ceil(stats.LastDelay.Seconds())),
			Attempts:     stats.Attempts,
		}
		log.Warn("rate limit retries exhausted", "attempts", out.Attempts, "after_seconds", out.AfterSeconds)
		return out

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		out := &types.APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
		log.Warn("api error", "status", out.StatusCode, "message", out.Message)
		return out
	}

	var sr searchResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&sr); err != nil {
		return transportError(fmt.Errorf("parsing response: %w", err))
	}
	if sr.Success != nil && !*sr.Success {
		msg := sr.Message
		if msg == "" {
			msg = errorMessage(body)
		}
		return &types.APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	records := sr.Entries
	if records == nil {
		records = []types.Record{}
	}

	log.Info("search succeeded", "total", sr.Total, "entries", len(records), "attempts", stats.Attempts)
	return &types.Success{Records: records, Total: sr.Total, Attempts: stats.Attempts}
}

func transportError(err error) *types.TransportError {
	return &types.TransportError{Message: seclog.Redact(err.Error()), Err: err}
}

// errorMessage pulls "message" or "error" from a JSON error body, falling
// back to a redacted, truncated snippet of the raw body.
func errorMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		if er.Message != "" {
			return er.Message
		}
		if er.Error != "" {
			return er.Error
		}
	}
	return seclog.Snippet(string(body), maxMessageBytes)
}

// IsRetryable reports whether a failed outcome may succeed if the caller
// tries again later. Only rate limiting qualifies.
func IsRetryable(o types.SearchOutcome) bool {
	return errors.Is(types.OutcomeErr(o), types.ErrRateLimitExhausted)
}
