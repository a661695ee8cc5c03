package resilience

import (
	"time"
)

// BreakerOptions configures a Breaker instance.
type BreakerOptions struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker.
	FailureThreshold int
	// Cooldown is the window for which an opened breaker rejects calls.
	Cooldown time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Breaker is a circuit breaker gating calls to one external service. It is
// owned by its constructor's caller and shared across all calls to that
// service for the process lifetime; the single-threaded cooperative execution
// model means updates never interleave mid-mutation, so no lock is held.
//
// Lifecycle: after FailureThreshold consecutive failures the breaker opens
// for Cooldown. Calls attempted while open are skipped outright and do not
// extend the window. The first call attempted after the window elapses
// implicitly half-opens the breaker: success resets the failure count to
// zero and closes it, failure re-opens it for another window.
type Breaker struct {
	cooldown time.Duration
	now      func() time.Time

	failureThreshold int
	failureCount     int
	open             bool
	openUntil        time.Time
}

// NewBreaker constructs a closed Breaker. Defaults: 3 consecutive failures to
// open, 30 second cool-down.
func NewBreaker(optFns ...func(o *BreakerOptions)) *Breaker {
	opts := BreakerOptions{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		Now:              time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Breaker{
		failureThreshold: opts.FailureThreshold,
		cooldown:         opts.Cooldown,
		now:              opts.Now,
	}
}

// Allow reports whether a call may be attempted. While the breaker is open
// and the cool-down has not elapsed it returns false; the skipped call is
// "service unavailable", not a failure, and does not extend the window. Once
// the window has elapsed Allow returns true, implicitly half-opening the
// breaker for one probe attempt.
func (b *Breaker) Allow() bool {
	if !b.open {
		return true
	}
	return !b.now().Before(b.openUntil)
}

// Success records a successful call: the failure count resets to zero and the
// breaker closes.
func (b *Breaker) Success() {
	b.failureCount = 0
	b.open = false
}

// Failure records a failed call, opening the breaker when the consecutive
// failure threshold is reached or when a half-open probe fails.
func (b *Breaker) Failure() {
	b.failureCount++
	if b.open || b.failureCount >= b.failureThreshold {
		b.open = true
		b.openUntil = b.now().Add(b.cooldown)
	}
}

// IsOpen reports whether the breaker is currently open.
func (b *Breaker) IsOpen() bool { return b.open }

// FailureCount returns the current consecutive failure count.
func (b *Breaker) FailureCount() int { return b.failureCount }
