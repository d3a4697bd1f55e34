// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retry and backoff helpers used by the API
// client.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Backoff computes the wait between rate-limited attempts.
type Backoff struct {
	// Base is the delay before the first retry.
	Base time.Duration
	// Ceiling caps computed delays. Zero means uncapped.
	Ceiling time.Duration
}

// DefaultBackoff starts at one second and never waits more than a minute
// unless the server asks for longer.
var DefaultBackoff = Backoff{Base: time.Second, Ceiling: time.Minute}

// NextDelay returns how long to wait before retrying after the given attempt
// (0-based). A server hint is returned verbatim and always wins over the
// computed Base*2^attempt delay, even when it exceeds the ceiling.
func (b Backoff) NextDelay(attempt int, hint time.Duration, hinted bool) time.Duration {
	if hinted && hint >= 0 {
		return hint
	}
	if b.Base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	d := b.Base
	for i := 0; i < attempt; i++ {
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
		if b.Ceiling > 0 && d >= b.Ceiling {
			break
		}
	}
	if b.Ceiling > 0 && d > b.Ceiling {
		return b.Ceiling
	}
	return d
}

// RetryAfter reads the Retry-After header as delay-seconds or an HTTP date.
// It reports false when the header is missing or malformed.
func RetryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d.Round(time.Second), true
	}
	return 0, false
}

// RetryOptions configures DoWithRetry.
type RetryOptions struct {
	// MaxRetries is the number of retries after the first attempt.
	// Negative values are treated as zero.
	MaxRetries int

	// Backoff computes waits when the server sends no hint.
	Backoff Backoff

	// Limiter, when set, paces every attempt including the first.
	Limiter *rate.Limiter

	// Sleep waits for d or until ctx is done. Tests substitute it to avoid
	// real sleeps. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, hinted bool)
}

// RetryStats reports what DoWithRetry did.
type RetryStats struct {
	// Attempts is the number of HTTP calls made.
	Attempts int
	// LastDelay is the most recent wait computed for a 429 response,
	// including the one after the final attempt that was not slept.
	LastDelay time.Duration
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) only. Each retry waits Backoff.NextDelay, honouring Retry-After.
// At most MaxRetries+1 calls are made.
//
// On each retried 429 the response body is drained and closed before
// sleeping. If the context is cancelled during a wait the function returns
// ctx.Err(). After exhausting retries the last 429 response is returned so
// the caller can inspect it. Transport errors are returned immediately.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, opts RetryOptions) (*http.Response, RetryStats, error) {
	var stats RetryStats

	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 0; ; attempt++ {
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				return nil, stats, err
			}
		}

		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, stats, err
			}
			attemptReq.Body = body
		}

		stats.Attempts++
		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, stats, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, stats, nil
		}

		hint, hinted := RetryAfter(resp, time.Now())
		stats.LastDelay = opts.Backoff.NextDelay(attempt, hint, hinted)

		// Exhausted retries: return the 429 response as-is.
		if attempt >= maxRetries {
			return resp, stats, nil
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, stats.LastDelay, hinted)
		}
		if err := sleep(ctx, stats.LastDelay); err != nil {
			return nil, stats, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
