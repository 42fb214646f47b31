// Package ratelimit tracks per-provider call quotas over sliding windows.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrQuotaExceeded is returned when a provider's quota for the current
// window is used up. No call was made.
var ErrQuotaExceeded = errors.New("quota exceeded")

// Quota is a provider's allowance: at most MaxCalls within any Window.
// A MaxCalls of zero denies every call.
type Quota struct {
	MaxCalls int
	Window   time.Duration
}

// Usage is a snapshot of one provider's quota consumption.
type Usage struct {
	Provider      string
	CallsInWindow int
	Limit         int
	Remaining     int
	Window        time.Duration
	Limited       bool
}

// Tracker keeps a timestamp log per provider. Entries older than the
// provider's window are evicted lazily on each check. State lives for the
// life of the process.
type Tracker struct {
	mu     sync.Mutex
	quotas map[string]Quota
	logs   map[string][]time.Time
	now    func() time.Time
}

// NewTracker creates a tracker for the given quotas. Providers without a
// quota are never limited.
func NewTracker(quotas map[string]Quota) *Tracker {
	t := &Tracker{
		quotas: make(map[string]Quota, len(quotas)),
		logs:   make(map[string][]time.Time, len(quotas)),
		now:    time.Now,
	}
	for name, q := range quotas {
		t.quotas[name] = q
	}
	return t
}

// WithClock replaces the time source.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
	return t
}

// SetQuota installs or replaces a provider's quota, keeping its call log.
func (t *Tracker) SetQuota(provider string, q Quota) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quotas[provider] = q
}

// CanCall reports whether provider has quota left in the current window.
func (t *Tracker) CanCall(provider string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canCallLocked(provider, t.now())
}

// RecordCall logs a call made to provider now.
func (t *Tracker) RecordCall(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.quotas[provider]; !ok {
		return
	}
	t.logs[provider] = append(t.logs[provider], t.now())
}

// TryAcquire checks and records a call in one step, so concurrent callers
// can never jointly exceed the quota.
func (t *Tracker) TryAcquire(provider string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !t.canCallLocked(provider, now) {
		return false
	}
	if _, ok := t.quotas[provider]; ok {
		t.logs[provider] = append(t.logs[provider], now)
	}
	return true
}

// Acquire is TryAcquire returning ErrQuotaExceeded on denial.
func (t *Tracker) Acquire(provider string) error {
	if !t.TryAcquire(provider) {
		return fmt.Errorf("%s: %w", provider, ErrQuotaExceeded)
	}
	return nil
}

// Usage returns the provider's current consumption.
func (t *Tracker) Usage(provider string) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.quotas[provider]
	if !ok {
		return Usage{Provider: provider}
	}

	t.evictLocked(provider, q, t.now())
	calls := len(t.logs[provider])
	remaining := q.MaxCalls - calls
	if remaining < 0 {
		remaining = 0
	}

	return Usage{
		Provider:      provider,
		CallsInWindow: calls,
		Limit:         q.MaxCalls,
		Remaining:     remaining,
		Window:        q.Window,
		Limited:       true,
	}
}

func (t *Tracker) canCallLocked(provider string, now time.Time) bool {
	q, ok := t.quotas[provider]
	if !ok {
		return true
	}
	t.evictLocked(provider, q, now)
	return len(t.logs[provider]) < q.MaxCalls
}

// evictLocked drops entries at least one window old. Logs are appended in
// time order, so the expired entries form a prefix.
func (t *Tracker) evictLocked(provider string, q Quota, now time.Time) {
	log := t.logs[provider]
	cutoff := now.Add(-q.Window)

	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}

	remaining := make([]time.Time, len(log)-i)
	copy(remaining, log[i:])
	t.logs[provider] = remaining
}
