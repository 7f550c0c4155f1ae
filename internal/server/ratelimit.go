package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig holds per-client limits. A zero value disables that limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// RateLimiter counts requests and uploaded bytes per client in fixed
// minute, hour and day windows.
type RateLimiter struct {
	mu sync.Mutex

	cfg     RateLimitConfig
	now     func() time.Time
	clients map[string]*clientUsage
}

// clientUsage is the usage of one client in the current windows.
type clientUsage struct {
	minuteStart time.Time
	minuteCount int

	hourStart time.Time
	hourCount int

	day      time.Time // midnight of the current day
	dayCount int
	dayBytes int64
	lastSeen time.Time
}

// Usage is a snapshot of a client's counters.
type Usage struct {
	RequestsLastMinute int
	RequestsLastHour   int
	RequestsToday      int
	BytesToday         int64
	LastSeen           time.Time
}

// NewRateLimiter creates a rate limiter with the given limits.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*clientUsage),
	}
}

// CheckRateLimit admits one request of size bytes for client, or returns a
// *RateLimitError or *QuotaExceededError. Rejected requests are not counted.
func (rl *RateLimiter) CheckRateLimit(client string, size int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u := rl.clients[client]
	if u == nil {
		u = &clientUsage{}
		rl.clients[client] = u
	}
	u.roll(now)

	if lim := rl.cfg.RequestsPerMinute; lim > 0 && u.minuteCount >= lim {
		return &RateLimitError{Type: "minute", Limit: lim, RetryAfter: u.minuteStart.Add(time.Minute).Sub(now)}
	}
	if lim := rl.cfg.RequestsPerHour; lim > 0 && u.hourCount >= lim {
		return &RateLimitError{Type: "hour", Limit: lim, RetryAfter: u.hourStart.Add(time.Hour).Sub(now)}
	}

	resets := u.day.AddDate(0, 0, 1)
	if lim := rl.cfg.MaxRequestsPerDay; lim > 0 && u.dayCount >= lim {
		return &QuotaExceededError{Type: "requests", Limit: int64(lim), Used: int64(u.dayCount), Resets: resets}
	}
	if lim := rl.cfg.MaxDataPerDay; lim > 0 && u.dayBytes+size > lim {
		return &QuotaExceededError{Type: "data", Limit: lim, Used: u.dayBytes, Resets: resets}
	}

	u.minuteCount++
	u.hourCount++
	u.dayCount++
	u.dayBytes += size
	u.lastSeen = now
	return nil
}

// roll starts new windows for the ones that have elapsed.
func (u *clientUsage) roll(now time.Time) {
	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart, u.minuteCount = now, 0
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.hourStart, u.hourCount = now, 0
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !day.Equal(u.day) {
		u.day, u.dayCount, u.dayBytes = day, 0, 0
	}
}

// GetUsage returns the counters of client. Unknown clients report zeros.
func (rl *RateLimiter) GetUsage(client string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	u, ok := rl.clients[client]
	if !ok {
		return Usage{}
	}
	return Usage{
		RequestsLastMinute: u.minuteCount,
		RequestsLastHour:   u.hourCount,
		RequestsToday:      u.dayCount,
		BytesToday:         u.dayBytes,
		LastSeen:           u.lastSeen,
	}
}

// Prune forgets clients idle for longer than a day and returns how many were removed.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-24 * time.Hour)
	n := 0
	for client, u := range rl.clients {
		if u.lastSeen.Before(cutoff) {
			delete(rl.clients, client)
			n++
		}
	}
	return n
}

// RateLimitError is returned when a client exceeds a per-minute or per-hour limit.
type RateLimitError struct {
	Type       string // "minute" or "hour"
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError is returned when a client exhausts a daily quota.
type QuotaExceededError struct {
	Type   string // "requests" or "data"
	Limit  int64
	Used   int64
	Resets time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
