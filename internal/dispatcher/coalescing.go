package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// coalescer implements per-handler rate control. Every admitted event joins
// the current batch and blocks on the batch gate. The first event arms a
// timer at +maxWait; each further event resets it, and the batch fires early
// when it reaches maxBatch. When a batch fires, exactly one waiter wins the
// election and runs the callback for the whole batch; the rest return false.
type coalescer struct {
	maxWait  time.Duration
	maxBatch int

	mu    sync.Mutex
	cur   *batch
	count int
	timer *time.Timer
}

type batch struct {
	gate chan struct{}
	won  atomic.Bool
}

func newCoalescer(maxWait time.Duration, maxBatch int) *coalescer {
	if maxWait <= 0 {
		maxWait = 100 * time.Millisecond
	}
	if maxBatch <= 0 {
		maxBatch = 1
	}
	return &coalescer{maxWait: maxWait, maxBatch: maxBatch}
}

// admit blocks until the current batch fires and reports whether this
// waiter should run the callback. Cancellation returns false without
// disturbing the batch.
func (c *coalescer) admit(ctx context.Context) bool {
	c.mu.Lock()
	if c.cur == nil {
		c.cur = &batch{gate: make(chan struct{})}
		c.count = 0
	}
	b := c.cur
	c.count++
	if c.count >= c.maxBatch {
		c.fireLocked()
	} else {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.timer = time.AfterFunc(c.maxWait, func() {
			c.mu.Lock()
			if c.cur == b {
				c.fireLocked()
			}
			c.mu.Unlock()
		})
	}
	c.mu.Unlock()

	select {
	case <-b.gate:
	case <-ctx.Done():
		return false
	}
	return b.won.CompareAndSwap(false, true)
}

// fireLocked releases every waiter of the current batch. Caller holds mu.
func (c *coalescer) fireLocked() {
	if c.cur == nil {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	close(c.cur.gate)
	c.cur = nil
	c.count = 0
}
