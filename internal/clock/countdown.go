// Package clock is the countdown collaborator for timed modes.
//
// A Countdown calls its expiry callback at most once, from its own
// goroutine. Callers that mutate a session from the callback must take the
// same lock they use for guesses; Session.Expire is idempotent, so a
// countdown firing in the same instant as a winning guess is harmless.
package clock

import (
	"sync"
	"time"
)

// Difficulty names a time budget.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Limit returns the time budget for d; unknown or empty is untimed (0).
func Limit(d Difficulty) time.Duration {
	switch d {
	case Easy:
		return 120 * time.Second
	case Medium:
		return 90 * time.Second
	case Hard:
		return 60 * time.Second
	}
	return 0
}

// Countdown fires a callback once when its duration elapses.
type Countdown struct {
	mu       sync.Mutex
	deadline time.Time
	timer    *time.Timer
	fired    bool
	stopped  bool
	now      func() time.Time
}

// Start begins a countdown of d that calls onExpire once.
func Start(d time.Duration, onExpire func()) *Countdown {
	c := &Countdown{now: time.Now}
	c.deadline = c.now().Add(d)
	c.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		if c.stopped || c.fired {
			c.mu.Unlock()
			return
		}
		c.fired = true
		c.mu.Unlock()
		onExpire()
	})
	return c
}

// Remaining is the time left, never negative.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fired || c.stopped {
		return 0
	}
	return max(c.deadline.Sub(c.now()), 0)
}

// Deadline is when the countdown expires.
func (c *Countdown) Deadline() time.Time { return c.deadline }

// Stop cancels the countdown. It reports whether the callback was prevented.
func (c *Countdown) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fired || c.stopped {
		return false
	}
	c.stopped = true
	c.timer.Stop()
	return true
}

// Fired reports whether the callback has run (or is running).
func (c *Countdown) Fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}
