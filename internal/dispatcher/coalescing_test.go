package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoalescerBatchesByCount(t *testing.T) {
	c := newCoalescer(100*time.Millisecond, 2)

	// Five admissions in batches of at most two yield exactly three winners.
	var winners atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.admit(context.Background()) {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(3), winners.Load())
}

func TestCoalescerFiresOnTimer(t *testing.T) {
	c := newCoalescer(30*time.Millisecond, 100)

	start := time.Now()
	won := c.admit(context.Background())
	assert.True(t, won, "a lone admission must win its batch")
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestCoalescerCancelledWaiterLoses(t *testing.T) {
	c := newCoalescer(time.Hour, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() { done <- c.admit(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case won := <-done:
		assert.False(t, won)
	case <-time.After(time.Second):
		t.Fatal("cancelled admission never returned")
	}
}

func TestCoalescerSingleWinnerPerBatch(t *testing.T) {
	c := newCoalescer(time.Hour, 3)

	var winners atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.admit(context.Background()) {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), winners.Load())
}
