// Package timer provides the session countdown and the ticker that drives it.
package timer

import (
	"context"
	"fmt"
	"time"
)

// Countdown is the single authoritative time budget of a session.
type Countdown struct {
	remaining int
	expired   bool
}

// NewCountdown starts a countdown at seconds. Negative values clamp to zero.
func NewCountdown(seconds int) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{remaining: seconds}
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	return c.remaining
}

// Tick consumes one second. expired is true exactly once: on the tick that
// reaches zero, or on the first tick of a countdown that started at zero.
func (c *Countdown) Tick() (remaining int, expired bool) {
	if c.expired {
		return 0, false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.expired = true
		return 0, true
	}
	return c.remaining, false
}

// Expired reports whether the budget has been used up.
func (c *Countdown) Expired() bool {
	return c.expired
}

// Format renders the remaining time as m:ss.
func (c *Countdown) Format() string {
	return FormatSeconds(c.remaining)
}

// FormatSeconds renders seconds as m:ss.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Ticker calls fn once per interval until ctx is cancelled.
// It does not pause; suppression of proctoring signals never affects the clock.
type Ticker struct {
	Interval time.Duration
}

// NewTicker returns a ticker with the given interval, defaulting to one second.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{Interval: interval}
}

// Run blocks until ctx is done.
func (t *Ticker) Run(ctx context.Context, fn func()) {
	tk := time.NewTicker(t.Interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			fn()
		}
	}
}
