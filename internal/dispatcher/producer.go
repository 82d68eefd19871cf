package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/mq"
)

// ErrProducerClosed is returned by Produce after Close.
var ErrProducerClosed = errors.New("dispatcher: producer is closed")

// Producer publishes encoded events to the message queue tagged with an
// originating source identifier. The anycast/broadcast choice follows the
// event's own delivery pattern.
type Producer struct {
	queue  *mq.Queue
	source string
	closed atomic.Bool
}

// NewProducer creates a producer whose events carry the given source id
// (typically the manager or agent id).
func NewProducer(queue *mq.Queue, source string) *Producer {
	return &Producer{queue: queue, source: source}
}

// Produce publishes the event with the producer's own source id.
func (p *Producer) Produce(ctx context.Context, ev event.Event) error {
	return p.ProduceFrom(ctx, ev, p.source)
}

// ProduceFrom publishes the event with an overridden source id, used when
// relaying events on behalf of another component.
func (p *Producer) ProduceFrom(ctx context.Context, ev event.Event, source string) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	payload, err := event.EncodeMessage(ev, source)
	if err != nil {
		return err
	}
	if ev.Delivery() == event.Broadcast {
		return p.queue.SendBroadcast(ctx, payload)
	}
	return p.queue.SendAnycast(ctx, payload)
}

// Close refuses further produce calls. It does not close the queue.
func (p *Producer) Close() {
	p.closed.Store(true)
}
