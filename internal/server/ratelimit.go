package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces per-client fixed-window request limits and daily
// quotas on request count and uploaded bytes.
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	perMinute   int
	perHour     int
	perDay      int
	bytesPerDay int64

	clients map[string]*clientUsage
}

// window counts events inside one aligned time bucket.
type window struct {
	start time.Time
	count int64
}

// roll resets w when t falls into a newer bucket of the given size.
func (w *window) roll(t time.Time, size time.Duration) {
	if start := t.Truncate(size); !start.Equal(w.start) {
		w.start = start
		w.count = 0
	}
}

type clientUsage struct {
	minute, hour window
	day          time.Time
	requests     int64
	bytes        int64
}

// Usage is a snapshot of a client's counters.
type Usage struct {
	RequestsThisMinute int64
	RequestsThisHour   int64
	RequestsToday      int64
	BytesToday         int64
}

// NewRateLimiter creates a rate limiter. Zero disables the respective limit.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		now:         time.Now,
		perMinute:   requestsPerMinute,
		perHour:     requestsPerHour,
		perDay:      maxRequestsPerDay,
		bytesPerDay: maxDataPerDay,
		clients:     make(map[string]*clientUsage),
	}
}

// Allow records a request of dataSize bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) Allow(client string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{}
		rl.clients[client] = u
	}
	u.minute.roll(now, time.Minute)
	u.hour.roll(now, time.Hour)
	if day := startOfDay(now); !day.Equal(u.day) {
		u.day = day
		u.requests = 0
		u.bytes = 0
	}

	if rl.perMinute > 0 && u.minute.count >= int64(rl.perMinute) {
		return &RateLimitError{Window: "minute", Limit: rl.perMinute, RetryAfter: u.minute.start.Add(time.Minute).Sub(now)}
	}
	if rl.perHour > 0 && u.hour.count >= int64(rl.perHour) {
		return &RateLimitError{Window: "hour", Limit: rl.perHour, RetryAfter: u.hour.start.Add(time.Hour).Sub(now)}
	}
	resets := u.day.AddDate(0, 0, 1)
	if rl.perDay > 0 && u.requests >= int64(rl.perDay) {
		return &QuotaExceededError{Kind: "requests", Limit: int64(rl.perDay), Used: u.requests, Resets: resets}
	}
	if rl.bytesPerDay > 0 && u.bytes+dataSize > rl.bytesPerDay {
		return &QuotaExceededError{Kind: "data", Limit: rl.bytesPerDay, Used: u.bytes, Resets: resets}
	}

	u.minute.count++
	u.hour.count++
	u.requests++
	u.bytes += dataSize
	return nil
}

// Usage returns a snapshot of the counters for client.
func (rl *RateLimiter) Usage(client string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u, ok := rl.clients[client]
	if !ok {
		return Usage{}
	}
	return Usage{
		RequestsThisMinute: u.minute.count,
		RequestsThisHour:   u.hour.count,
		RequestsToday:      u.requests,
		BytesToday:         u.bytes,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError reports an exceeded per-minute or per-hour limit.
type RateLimitError struct {
	Window     string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Window, e.Limit, e.RetryAfter)
}

// QuotaExceededError reports an exhausted daily quota.
type QuotaExceededError struct {
	Kind   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Kind, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
