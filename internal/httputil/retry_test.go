// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// recordingSleep captures requested waits without sleeping.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func (r *recordingSleep) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newGet(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}

func TestNextDelay(t *testing.T) {
	b := Backoff{Base: time.Second, Ceiling: 60 * time.Second}
	tests := []struct {
		name    string
		attempt int
		hint    time.Duration
		hinted  bool
		want    time.Duration
	}{
		{"attempt 0", 0, 0, false, time.Second},
		{"attempt 1", 1, 0, false, 2 * time.Second},
		{"attempt 3", 3, 0, false, 8 * time.Second},
		{"capped at ceiling", 6, 0, false, 60 * time.Second},
		{"huge attempt capped", 500, 0, false, 60 * time.Second},
		{"negative attempt treated as 0", -2, 0, false, time.Second},
		{"hint wins", 3, 2 * time.Second, true, 2 * time.Second},
		{"zero hint wins", 5, 0, true, 0},
		{"hint above ceiling is verbatim", 0, 300 * time.Second, true, 300 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.NextDelay(tt.attempt, tt.hint, tt.hinted))
		})
	}
}

func TestNextDelayHintAlwaysOverrides(t *testing.T) {
	b := DefaultBackoff
	for attempt := 0; attempt < 70; attempt++ {
		assert.Equal(t, 7*time.Second, b.NextDelay(attempt, 7*time.Second, true), "attempt %d", attempt)
	}
}

func TestNextDelayMonotonic(t *testing.T) {
	b := DefaultBackoff
	prev := time.Duration(0)
	for attempt := 0; attempt < 100; attempt++ {
		d := b.NextDelay(attempt, 0, false)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, b.Ceiling)
		prev = d
	}
}

func TestNextDelayUncapped(t *testing.T) {
	b := Backoff{Base: time.Second}
	assert.Equal(t, 1024*time.Second, b.NextDelay(10, 0, false))
	assert.Positive(t, b.NextDelay(200, 0, false), "overflow must saturate, not wrap")
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name   string
		header string
		want   time.Duration
		ok     bool
	}{
		{"missing", "", 0, false},
		{"seconds", "2", 2 * time.Second, true},
		{"zero", "0", 0, true},
		{"negative", "-5", 0, false},
		{"garbage", "soon", 0, false},
		{"http date", now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second, true},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			got, ok := RetryAfter(resp, now)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDoWithRetry_ImmediateSuccess(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sleeper := &recordingSleep{}
	resp, stats, err := DoWithRetry(context.Background(), ts.Client(), newGet(t, ts.URL), RetryOptions{
		MaxRetries: 5,
		Backoff:    DefaultBackoff,
		Sleep:      sleeper.Sleep,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, stats.Attempts)
	assert.Empty(t, sleeper.Delays())
}

func TestDoWithRetry_RetriesThen200(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sleeper := &recordingSleep{}
	resp, stats, err := DoWithRetry(context.Background(), ts.Client(), newGet(t, ts.URL), RetryOptions{
		MaxRetries: 5,
		Backoff:    DefaultBackoff,
		Sleep:      sleeper.Sleep,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, stats.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.Delays())
}

func TestDoWithRetry_HonoursRetryAfter(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sleeper := &recordingSleep{}
	var retried []bool
	resp, _, err := DoWithRetry(context.Background(), ts.Client(), newGet(t, ts.URL), RetryOptions{
		MaxRetries: 3,
		Backoff:    Backoff{Base: 10 * time.Second},
		Sleep:      sleeper.Sleep,
		OnRetry:    func(_ int, _ time.Duration, hinted bool) { retried = append(retried, hinted) },
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.Delays())
	assert.Equal(t, []bool{true}, retried)
}

func TestDoWithRetry_ExhaustsRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	sleeper := &recordingSleep{}
	resp, stats, err := DoWithRetry(context.Background(), ts.Client(), newGet(t, ts.URL), RetryOptions{
		MaxRetries: 3,
		Backoff:    DefaultBackoff,
		Sleep:      sleeper.Sleep,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	// 1 initial + 3 retries = 4 total calls.
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, 4, stats.Attempts)
	assert.Equal(t, 8*time.Second, stats.LastDelay)
	assert.Len(t, sleeper.Delays(), 3)
}

func TestDoWithRetry_ZeroRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	resp, stats, err := DoWithRetry(context.Background(), ts.Client(), newGet(t, ts.URL), RetryOptions{
		Backoff: DefaultBackoff,
		Sleep:   (&recordingSleep{}).Sleep,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, stats.Attempts)
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Real sleeper with a long base delay so the context cancels during the wait.
	_, _, err := DoWithRetry(ctx, ts.Client(), newGet(t, ts.URL), RetryOptions{
		MaxRetries: 5,
		Backoff:    Backoff{Base: 5 * time.Second},
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoWithRetry_Non429ErrorPassesThrough(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	resp, _, err := DoWithRetry(context.Background(), ts.Client(), newGet(t, ts.URL), RetryOptions{
		MaxRetries: 5,
		Backoff:    DefaultBackoff,
		Sleep:      (&recordingSleep{}).Sleep,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_ResendsBody(t *testing.T) {
	var (
		calls  int32
		mu     sync.Mutex
		bodies []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"query":"domain:example.com"}`))
	require.NoError(t, err)

	resp, _, err := DoWithRetry(context.Background(), ts.Client(), req, RetryOptions{
		MaxRetries: 1,
		Backoff:    DefaultBackoff,
		Sleep:      (&recordingSleep{}).Sleep,
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{`{"query":"domain:example.com"}`, `{"query":"domain:example.com"}`}, bodies)
}

func TestDoWithRetry_LimiterPacesAttempts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, stats, err := DoWithRetry(ctx, ts.Client(), newGet(t, ts.URL), RetryOptions{
		Limiter: rate.NewLimiter(rate.Limit(1), 1),
	})
	assert.Error(t, err)
	assert.Equal(t, 0, stats.Attempts)
}
