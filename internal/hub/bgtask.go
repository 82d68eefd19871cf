package hub

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/event"
)

// FinishedEventFetcher replays the terminal state of a finished task.
// Returns (nil, nil) while the task is still running.
type FinishedEventFetcher interface {
	FetchLastFinishedEvent(ctx context.Context, taskID uuid.UUID) (event.Event, error)
}

// BgtaskPropagator streams the progress events of one background task. A
// task already in a terminal state replays exactly one event and closes;
// otherwise the live stream runs until a terminal event arrives, which is
// forwarded and then ends the stream.
type BgtaskPropagator struct {
	queuePropagator
	fetcher FinishedEventFetcher
}

// NewBgtask creates a bgtask propagator backed by the given fetcher
// (normally the bgtask manager).
func NewBgtask(fetcher FinishedEventFetcher, queueSize int, logger *zap.Logger) *BgtaskPropagator {
	return &BgtaskPropagator{
		queuePropagator: newQueuePropagator(queueSize, logger),
		fetcher:         fetcher,
	}
}

// Receive starts the stream for taskID. Errors from the fetcher (including
// an unknown task id) surface to the caller before any event flows.
func (p *BgtaskPropagator) Receive(ctx context.Context, taskID uuid.UUID) (<-chan event.Event, error) {
	last, err := p.fetcher.FetchLastFinishedEvent(ctx, taskID)
	if err != nil {
		return nil, err
	}

	out := make(chan event.Event, 1)
	go func() {
		defer close(out)
		defer p.Close()

		if last != nil {
			// The task finished before we subscribed; replay the terminal
			// state and end the stream, no live events will come.
			select {
			case out <- last:
			case <-ctx.Done():
			}
			return
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
				if event.IsBgtaskTerminal(ev.Name()) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
