// Package timeout schedules the round timeouts of the consensus engine.
package timeout

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/icn-network/poc/round"
)

// Func is called when a timeout fires. It receives the round and phase that the timeout was scheduled for,
// which the receiver must compare against its current state; a firing can race with a phase change.
type Func func(number uint64, phase round.Phase)

// Controller holds at most one pending timeout.
type Controller struct {
	clock clock.Clock

	mut        sync.Mutex
	timer      *clock.Timer
	generation uint64
}

// New returns a controller that uses the given clock.
func New(clk clock.Clock) *Controller {
	return &Controller{clock: clk}
}

// Schedule replaces the pending timeout, if any, with one that calls fn after d.
func (c *Controller) Schedule(number uint64, phase round.Phase, d time.Duration, fn Func) {
	c.mut.Lock()
	defer c.mut.Unlock()

	c.stop()
	gen := c.generation
	c.timer = c.clock.AfterFunc(d, func() {
		c.mut.Lock()
		current := c.generation == gen
		if current {
			c.timer = nil
		}
		c.mut.Unlock()
		if current {
			fn(number, phase)
		}
	})
}

// Cancel stops the pending timeout. It does nothing if no timeout is pending.
func (c *Controller) Cancel() {
	c.mut.Lock()
	defer c.mut.Unlock()
	c.stop()
}

// Pending returns true if a timeout is scheduled and has not fired yet.
func (c *Controller) Pending() bool {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.timer != nil
}

func (c *Controller) stop() {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
