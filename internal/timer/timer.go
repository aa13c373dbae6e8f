// Package timer provides the single re-armable countdown shared by the
// mode controller. On expiry it publishes a demo-timer-expired event back
// onto the bus, so expiry is handled through the same dispatch path as
// every other event and never mutates mode state directly.
package timer

import (
	"sync"
	"time"

	"github.com/sweeney/airsense/internal/pubsub"
)

// Countdown is a one-shot timer. Re-arming replaces the pending deadline;
// cancelling an unarmed timer is a no-op.
type Countdown struct {
	bus *pubsub.Bus

	mu    sync.Mutex
	t     *time.Timer
	gen   uint64
	armed bool
}

// New creates an unarmed countdown that publishes on the given bus.
func New(bus *pubsub.Bus) *Countdown {
	return &Countdown{bus: bus}
}

// Arm starts (or restarts) the countdown for the given duration.
func (c *Countdown) Arm(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.t != nil {
		c.t.Stop()
	}
	c.gen++
	gen := c.gen
	c.armed = true
	c.t = time.AfterFunc(d, func() { c.fire(gen) })
}

// Cancel stops the countdown if armed.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.t == nil {
		return
	}
	c.t.Stop()
	c.gen++
	c.t = nil
	c.armed = false
}

// Armed reports whether the countdown is running.
func (c *Countdown) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

func (c *Countdown) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		// Cancelled or re-armed after this callback was already queued.
		c.mu.Unlock()
		return
	}
	c.t = nil
	c.armed = false
	c.mu.Unlock()

	c.bus.Publish(pubsub.DemoTimerExpired())
}
