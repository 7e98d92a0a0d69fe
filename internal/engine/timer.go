package engine

import (
	"context"
	"sync"
	"time"

	"github.com/prepline/testprep-backend/internal/model"
)

// Countdown is the single authoritative clock of an attempt. One tick
// source decrements it at 1-second granularity; at zero it stops and
// fires forced submission exactly once.
type Countdown struct {
	mu        sync.Mutex
	remaining model.TimeObject
	warned5   bool
	warned1   bool
	expired   bool
	stopped   bool
	stopCh    chan struct{}

	// onWarning receives the minutes-left mark (5 or 1), once each.
	onWarning func(minutesLeft int)
	// onExpire fires exactly once when the countdown reaches 0:00.
	onExpire func()
}

// NewCountdown seeds a countdown from a whole-second duration.
func NewCountdown(totalSeconds int, onWarning func(int), onExpire func()) *Countdown {
	return &Countdown{
		remaining: SecondsToTimeObject(totalSeconds),
		stopCh:    make(chan struct{}),
		onWarning: onWarning,
		onExpire:  onExpire,
	}
}

// Start runs the ticking loop until the countdown expires, Stop is
// called, or ctx is cancelled. Call in a goroutine.
func (c *Countdown) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if done := c.Tick(); done {
				return
			}
		}
	}
}

// Tick advances the countdown by one second and returns true once the
// countdown has reached zero (or was stopped). Exposed so tests can
// drive time deterministically.
func (c *Countdown) Tick() bool {
	c.mu.Lock()

	if c.stopped || c.expired {
		c.mu.Unlock()
		return true
	}

	// Decrement with minute borrow.
	if c.remaining.Seconds == 0 {
		if c.remaining.Minutes == 0 {
			// Already at zero; treat as expired without re-firing.
			c.mu.Unlock()
			return true
		}
		c.remaining.Minutes--
		c.remaining.Seconds = 59
	} else {
		c.remaining.Seconds--
	}

	var warn int
	var expire bool

	switch {
	case c.remaining.Minutes == 5 && c.remaining.Seconds == 0 && !c.warned5:
		c.warned5 = true
		warn = 5
	case c.remaining.Minutes == 1 && c.remaining.Seconds == 0 && !c.warned1:
		c.warned1 = true
		warn = 1
	case c.remaining.Minutes == 0 && c.remaining.Seconds == 0:
		c.expired = true
		expire = true
	}

	// Callbacks run outside the lock: onExpire typically submits the
	// session, which stops this countdown again.
	c.mu.Unlock()

	if warn != 0 && c.onWarning != nil {
		c.onWarning(warn)
	}
	if expire {
		c.Stop()
		if c.onExpire != nil {
			c.onExpire()
		}
		return true
	}
	return false
}

// Remaining returns the current remaining time.
func (c *Countdown) Remaining() model.TimeObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// RemainingSeconds returns the remaining time in whole seconds.
func (c *Countdown) RemainingSeconds() int {
	return TimeObjectToSeconds(c.Remaining())
}

// Stop cancels the tick source. Idempotent; safe to call from any
// submission path and from session teardown.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stopCh)
}

// Expired reports whether the countdown reached zero.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}
