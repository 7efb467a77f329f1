package recovery

import "time"

// Backoff implements the shared reinitialization protocol: a time gate
// keeps attempts at least one retry interval apart, and the interval
// doubles every time a full budget of consecutive failures is spent,
// up to a cap. Each driver owns its own instance; methods take the
// current time explicitly and are not safe for concurrent use.
type Backoff struct {
	// Initial is the retry interval before any doubling.
	Initial time.Duration
	// Max caps the retry interval. Zero means no cap.
	Max time.Duration
	// Budget is the number of consecutive failures consumed before
	// the interval doubles. Zero or negative doubles on every failure.
	Budget int

	failures int
	interval time.Duration
	last     time.Time
}

// Interval returns the current retry interval.
func (b *Backoff) Interval() time.Duration {
	if b.interval == 0 {
		return b.Initial
	}
	return b.interval
}

// Failures returns the consecutive failures since the last doubling.
func (b *Backoff) Failures() int {
	return b.failures
}

// Arm starts the time gate, counting from now. Drivers call it when a
// healthy peripheral transitions into a fault state, so that the first
// recovery attempt waits a full interval after the fault.
func (b *Backoff) Arm(now time.Time) {
	b.last = now
}

// Due reports whether at least the current retry interval elapsed
// since the last attempt (or since the gate was armed).
func (b *Backoff) Due(now time.Time) bool {
	if b.last.IsZero() {
		return true
	}
	return now.Sub(b.last) >= b.Interval()
}

// Attempt records an attempt at now, regardless of its outcome.
func (b *Backoff) Attempt(now time.Time) {
	b.last = now
}

// Failure consumes one unit of the failure budget. When the budget is
// spent the interval doubles, bounded by Max, and the count restarts.
// The interval never decreases between successes.
func (b *Backoff) Failure() {
	b.failures++
	if b.failures < b.Budget {
		return
	}
	b.failures = 0
	next := 2 * b.Interval()
	if b.Max > 0 && next > b.Max {
		next = b.Max
	}
	b.interval = next
}

// Success resets the failure count and restores the initial interval.
func (b *Backoff) Success() {
	b.failures = 0
	b.interval = 0
}
