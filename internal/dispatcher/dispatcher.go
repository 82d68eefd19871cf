// Package dispatcher routes wire messages pulled from the message queue to
// in-process handlers. Two registries exist per process: consumers (anycast,
// acked only after every consumer handler for a message finished) and
// subscribers (broadcast, every handler sees every message).
package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/metrics"
	"github.com/veristack/eventplane/internal/mq"
)

// Kind distinguishes the two handler registries.
type Kind int

const (
	// KindConsumer handlers are load-balanced across processes of the group.
	KindConsumer Kind = iota
	// KindSubscriber handlers receive every broadcast message.
	KindSubscriber
)

// ackTimeout bounds the ack round-trip once a message left its dispatch loop.
const ackTimeout = 5 * time.Second

func (k Kind) String() string {
	if k == KindSubscriber {
		return "subscriber"
	}
	return "consumer"
}

// Callback handles one decoded event.
type Callback func(ctx context.Context, source string, ev event.Event) error

// Config holds dispatcher tunables.
type Config struct {
	// GracePeriod bounds the wait for in-flight handlers during Close.
	GracePeriod time.Duration
}

// Dispatcher is the per-process event dispatcher.
type Dispatcher struct {
	queue  *mq.Queue
	logger *zap.Logger
	cfg    Config

	mu          sync.RWMutex
	consumers   map[string]map[Token]*registration
	subscribers map[string]map[Token]*registration
	byToken     map[Token]*registration

	closed atomic.Bool
	cancel context.CancelFunc
	loopWG sync.WaitGroup

	// Separate task groups so slow consumers cannot starve subscribers.
	consumerTasks   sync.WaitGroup
	subscriberTasks sync.WaitGroup
}

// New creates a dispatcher over the queue. Call Start to begin dispatching.
func New(queue *mq.Queue, cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:       queue,
		logger:      logger,
		cfg:         cfg,
		consumers:   make(map[string]map[Token]*registration),
		subscribers: make(map[string]map[Token]*registration),
		byToken:     make(map[Token]*registration),
	}
}

// Consume registers a consumer handler for the event name and returns its
// deregistration token.
func (d *Dispatcher) Consume(name string, cb Callback, opts ...Option) Token {
	return d.register(name, KindConsumer, cb, opts)
}

// Subscribe registers a subscriber handler for the event name and returns
// its deregistration token.
func (d *Dispatcher) Subscribe(name string, cb Callback, opts ...Option) Token {
	return d.register(name, KindSubscriber, cb, opts)
}

func (d *Dispatcher) register(name string, kind Kind, cb Callback, opts []Option) Token {
	reg := &registration{
		token: newToken(),
		name:  name,
		kind:  kind,
		cb:    cb,
	}
	for _, opt := range opts {
		opt(reg)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	registry := d.registryFor(kind)
	set := registry[name]
	if set == nil {
		set = make(map[Token]*registration)
		registry[name] = set
	}
	set[reg.token] = reg
	d.byToken[reg.token] = reg
	return reg.token
}

// Unregister removes a handler. Unknown tokens are a no-op, so deregistering
// twice is safe under concurrent dispatch.
func (d *Dispatcher) Unregister(token Token) {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg, ok := d.byToken[token]
	if !ok {
		return
	}
	delete(d.byToken, token)
	registry := d.registryFor(reg.kind)
	if set, ok := registry[reg.name]; ok {
		delete(set, token)
		if len(set) == 0 {
			delete(registry, reg.name)
		}
	}
}

func (d *Dispatcher) registryFor(kind Kind) map[string]map[Token]*registration {
	if kind == KindSubscriber {
		return d.subscribers
	}
	return d.consumers
}

// snapshot copies the handler set so dispatch never iterates a map that a
// concurrent register/unregister may mutate.
func (d *Dispatcher) snapshot(kind Kind, name string) []*registration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set := d.registryFor(kind)[name]
	if len(set) == 0 {
		return nil
	}
	out := make([]*registration, 0, len(set))
	for _, reg := range set {
		out = append(out, reg)
	}
	return out
}

// Start launches the consume and subscribe loops.
func (d *Dispatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.loopWG.Add(2)
	go d.loop(ctx, d.queue.Consume(), d.dispatchConsume)
	go d.loop(ctx, d.queue.Subscribe(), d.dispatchSubscribe)
}

func (d *Dispatcher) loop(ctx context.Context, ch <-chan mq.Message, dispatch func(context.Context, mq.Message)) {
	defer d.loopWG.Done()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			dispatch(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// dispatchConsume fans one anycast message out to the consumer handlers and
// acks it once the last handler finished. Undecodable messages are acked and
// dropped so poison input cannot loop through autoclaim forever.
func (d *Dispatcher) dispatchConsume(ctx context.Context, msg mq.Message) {
	name, source, ev, args, ok := d.decode(msg)
	if !ok {
		d.ack(msg.ID)
		return
	}

	handlers := d.snapshot(KindConsumer, name)
	if len(handlers) == 0 {
		d.ack(msg.ID)
		return
	}

	remaining := int64(len(handlers))
	for _, reg := range handlers {
		reg := reg
		d.consumerTasks.Add(1)
		go func() {
			defer d.consumerTasks.Done()
			d.runHandler(ctx, reg, source, ev, args)
			if atomic.AddInt64(&remaining, -1) == 0 {
				d.ack(msg.ID)
			}
		}()
	}
}

func (d *Dispatcher) dispatchSubscribe(ctx context.Context, msg mq.Message) {
	name, source, ev, args, ok := d.decode(msg)
	if !ok {
		return
	}
	for _, reg := range d.snapshot(KindSubscriber, name) {
		reg := reg
		d.subscriberTasks.Add(1)
		go func() {
			defer d.subscriberTasks.Done()
			d.runHandler(ctx, reg, source, ev, args)
		}()
	}
}

func (d *Dispatcher) decode(msg mq.Message) (name, source string, ev event.Event, args []byte, ok bool) {
	name, source, args, err := event.DecodeMessage(msg.Values)
	if err != nil {
		d.logger.Warn("dropping malformed message", zap.String("id", msg.ID), zap.Error(err))
		metrics.QueueDropped.Inc()
		return "", "", nil, nil, false
	}
	ev, known, err := event.Decode(name, args)
	if err != nil {
		d.logger.Warn("dropping undecodable event",
			zap.String("id", msg.ID), zap.String("event", name), zap.Error(err))
		metrics.QueueDropped.Inc()
		return "", "", nil, nil, false
	}
	if !known {
		d.logger.Debug("no decoder for event", zap.String("event", name))
		return "", "", nil, nil, false
	}
	return name, source, ev, args, true
}

func (d *Dispatcher) runHandler(ctx context.Context, reg *registration, source string, ev event.Event, args []byte) {
	if reg.matcher != nil && !reg.matcher(args) {
		return
	}
	if reg.coalescer != nil && !reg.coalescer.admit(ctx) {
		return
	}

	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			d.logger.Error("handler panicked",
				zap.String("event", reg.name), zap.Any("panic", r), zap.Stack("stack"))
		}
		metrics.EventsDispatched.WithLabelValues(reg.name, reg.kind.String(), status).Inc()
		metrics.EventHandlerDuration.WithLabelValues(reg.name, reg.kind.String()).Observe(time.Since(start).Seconds())
	}()

	if err := reg.cb(ctx, source, ev); err != nil {
		status = "error"
		d.logger.Error("handler failed",
			zap.String("event", reg.name), zap.String("kind", reg.kind.String()), zap.Error(err))
	}
}

// ack runs on a detached context: a handler that finishes during the Close
// grace period still has to ack, after the loop context is long cancelled.
func (d *Dispatcher) ack(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	defer cancel()
	if err := d.queue.Ack(ctx, id); err != nil {
		d.logger.Warn("failed to ack message", zap.String("id", id), zap.Error(err))
	}
}

// Close stops the dispatch loops and waits for in-flight handlers up to the
// grace period. No new handlers run after Close returns.
func (d *Dispatcher) Close() {
	if d.closed.Swap(true) {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.loopWG.Wait()

	done := make(chan struct{})
	go func() {
		d.consumerTasks.Wait()
		d.subscriberTasks.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d.cfg.GracePeriod):
		d.logger.Warn("grace period expired with handlers still running")
	}
}
