package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/event"
)

// EventFetcher loads the last cached event for a cache id, or nil when
// nothing was cached yet.
type EventFetcher interface {
	FetchCachedEvent(ctx context.Context, cacheID string) (event.Event, error)
}

// CachePropagator yields the last cached event before the live stream, so a
// subscriber attaching after the interesting event was broadcast still
// observes it.
type CachePropagator struct {
	queuePropagator
	fetcher EventFetcher
}

// NewWithCache creates a cache-backed propagator.
func NewWithCache(fetcher EventFetcher, queueSize int, logger *zap.Logger) *CachePropagator {
	return &CachePropagator{
		queuePropagator: newQueuePropagator(queueSize, logger),
		fetcher:         fetcher,
	}
}

// Receive fetches the cached event for cacheID, yields it first if present,
// then continues with the live queue until the propagator closes or ctx is
// cancelled.
func (p *CachePropagator) Receive(ctx context.Context, cacheID string) (<-chan event.Event, error) {
	cached, err := p.fetcher.FetchCachedEvent(ctx, cacheID)
	if err != nil {
		return nil, err
	}

	out := make(chan event.Event)
	go func() {
		defer close(out)
		if cached != nil {
			select {
			case out <- cached:
			case <-ctx.Done():
				return
			}
		}
		for {
			select {
			case ev, ok := <-p.ch:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
