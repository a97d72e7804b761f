package connection

import (
	"math/rand"
	"time"
)

// Default backoff configuration values.
const (
	DefaultBackoffInitial = time.Second
	DefaultBackoffMax     = 30 * time.Second
	DefaultBackoffJitter  = 0.2
)

// Backoff computes reconnect delays: exponential growth from initial, capped
// at max, with up to jitter*delay subtracted at random. Below the cap
// successive delays never decrease until Reset. Once the cap is reached every
// delay is drawn again from [max*(1-jitter), max] so clients that lost the
// same server do not retry in lockstep.
type Backoff struct {
	initial  time.Duration
	max      time.Duration
	jitter   float64
	attempts int
	last     time.Duration
	rand     func() float64
}

// NewBackoff creates a new backoff. jitter is clamped to [0, 1].
func NewBackoff(initial, maxDelay time.Duration, jitter float64) *Backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	return &Backoff{
		initial: initial,
		max:     maxDelay,
		jitter:  min(max(jitter, 0), 1),
		rand:    rand.Float64,
	}
}

// Next records a failure and returns the delay before the next attempt.
func (b *Backoff) Next() time.Duration {
	b.attempts++

	nominal := b.initial
	for i := 1; i < b.attempts && nominal < b.max; i++ {
		nominal *= 2
	}
	nominal = min(nominal, b.max)

	d := nominal - time.Duration(b.jitter*b.rand()*float64(nominal))
	if nominal < b.max {
		d = max(d, b.last)
	}
	d = min(d, b.max)
	b.last = d
	return d
}

// Reset returns the backoff to its initial delay.
func (b *Backoff) Reset() {
	b.attempts = 0
	b.last = 0
}

// Attempts returns the number of failures recorded since the last Reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}
