package hub

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/metrics"
)

// DefaultQueueSize bounds a propagator's event queue. The upstream streams
// are already capped by MAXLEN, so a slow subscriber drops rather than
// blocking the hub.
const DefaultQueueSize = 64

// queuePropagator is the shared core of all propagator kinds: a bounded
// queue plus close-once semantics. Closing the channel is the sentinel that
// wakes any suspended reader exactly once.
type queuePropagator struct {
	id     uuid.UUID
	logger *zap.Logger

	mu     sync.Mutex
	ch     chan event.Event
	closed bool
}

func newQueuePropagator(queueSize int, logger *zap.Logger) queuePropagator {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return queuePropagator{
		id:     uuid.New(),
		logger: logger,
		ch:     make(chan event.Event, queueSize),
	}
}

// ID returns the propagator's identity within the hub.
func (p *queuePropagator) ID() uuid.UUID { return p.id }

// PropagateEvent enqueues the event. On a closed propagator it is a no-op;
// on a full queue the event is dropped with a warning.
func (p *queuePropagator) PropagateEvent(ev event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.ch <- ev:
	default:
		metrics.PropagatorDropped.Inc()
		p.logger.Warn("propagator queue full, dropping event",
			zap.String("propagator_id", p.id.String()), zap.String("event", ev.Name()))
	}
}

// Close flips the propagator to CLOSED and wakes any reader. Idempotent.
func (p *queuePropagator) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.ch)
}

// BypassPropagator yields whatever arrives until close: a plain queue with
// no preamble.
type BypassPropagator struct {
	queuePropagator
}

// NewBypass creates a bypass propagator.
func NewBypass(queueSize int, logger *zap.Logger) *BypassPropagator {
	return &BypassPropagator{newQueuePropagator(queueSize, logger)}
}

// Receive returns the live event stream. The channel closes when the
// propagator closes.
func (p *BypassPropagator) Receive() <-chan event.Event {
	return p.ch
}
