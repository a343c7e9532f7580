package market

import (
	"strconv"
	"sync"
	"time"
)

// Endpoint weights for the upstream REST API.
const (
	weightTicker       = 1
	weightExchangeInfo = 10
	weightKlines       = 5
)

// RateLimiter tracks a weight budget per minute and opens a circuit after
// the upstream signals a ban. The scan path checks the budget before every
// request so the scanner backs off before the upstream has to.
type RateLimiter struct {
	mu sync.Mutex

	maxWeight     int
	currentWeight int
	weightResetAt time.Time

	banUntil time.Time
}

// NewRateLimiter creates a limiter with the default weight cap.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		maxWeight:     1200,
		weightResetAt: time.Now().Add(time.Minute),
	}
}

// SetMaxWeight overrides the per-minute weight cap.
func (r *RateLimiter) SetMaxWeight(max int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if max > 0 {
		r.maxWeight = max
	}
}

// Acquire reserves weight for a request. Returns false when the budget is
// spent or a ban is in effect; the caller should skip the request.
func (r *RateLimiter) Acquire(weight int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Before(r.banUntil) {
		return false
	}
	if now.After(r.weightResetAt) {
		r.currentWeight = 0
		r.weightResetAt = now.Add(time.Minute)
	}
	if r.currentWeight+weight > r.maxWeight {
		return false
	}
	r.currentWeight += weight
	return true
}

// RecordRateLimitError opens the circuit after an upstream 429/418. The
// Retry-After header value is in seconds; without one the circuit stays
// open for a minute.
func (r *RateLimiter) RecordRateLimitError(retryAfter string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wait := time.Minute
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
		wait = time.Duration(secs) * time.Second
	}
	until := time.Now().Add(wait)
	if until.After(r.banUntil) {
		r.banUntil = until
	}
}

// Usage reports the current weight spend and remaining ban time.
func (r *RateLimiter) Usage() (currentWeight, maxWeight int, bannedFor time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := time.Until(r.banUntil); remaining > 0 {
		bannedFor = remaining
	}
	return r.currentWeight, r.maxWeight, bannedFor
}
