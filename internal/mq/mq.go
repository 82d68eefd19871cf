// Package mq implements the two logical queues of the event plane over a
// single stream engine: an anycast queue consumed through a consumer group
// (each message handled by exactly one group member) and a broadcast queue
// tail-read independently by every subscriber.
package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/streamstore"
)

// ErrQueueClosed is returned by send operations after Close.
var ErrQueueClosed = errors.New("mq: queue is closed")

// MaxRetries caps redelivery of a reclaimed message. A message reclaimed
// with a retry count at the cap is acknowledged and dropped.
const MaxRetries = 3

// Message is one wire message pulled from a stream: the engine-assigned id
// plus the raw payload fields.
type Message struct {
	ID     string
	Values map[string]interface{}
}

// Config holds the tunables of a queue instance. Zero values fall back to
// the defaults below.
type Config struct {
	// StreamKey is the base stream name. The broadcast stream derives from
	// it with a ":bcast" suffix.
	StreamKey string
	// GroupName is the anycast consumer-group; all processes of one logical
	// service share it.
	GroupName string
	// Consumer is this process's stable consumer identity (see ConsumerID).
	Consumer string

	BlockTimeout          time.Duration // XREAD/XREADGROUP block
	AutoclaimInterval     time.Duration // how often to scan for idle pending entries
	AutoclaimIdleTimeout  time.Duration // min idle before a pending entry is reclaimed
	ReconnectPollInterval time.Duration // sleep between retries after transient errors
	MaxLen                int64         // approximate stream cap
	ChannelSize           int           // local consume/subscribe channel buffer
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		StreamKey:             "events",
		GroupName:             "manager",
		BlockTimeout:          time.Second,
		AutoclaimInterval:     60 * time.Second,
		AutoclaimIdleTimeout:  5 * time.Minute,
		ReconnectPollInterval: 300 * time.Millisecond,
		MaxLen:                streamstore.DefaultMaxLen,
		ChannelSize:           128,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.StreamKey == "" {
		c.StreamKey = def.StreamKey
	}
	if c.GroupName == "" {
		c.GroupName = def.GroupName
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = def.BlockTimeout
	}
	if c.AutoclaimInterval <= 0 {
		c.AutoclaimInterval = def.AutoclaimInterval
	}
	if c.AutoclaimIdleTimeout <= 0 {
		c.AutoclaimIdleTimeout = def.AutoclaimIdleTimeout
	}
	if c.ReconnectPollInterval <= 0 {
		c.ReconnectPollInterval = def.ReconnectPollInterval
	}
	if c.MaxLen <= 0 {
		c.MaxLen = def.MaxLen
	}
	if c.ChannelSize <= 0 {
		c.ChannelSize = def.ChannelSize
	}
}

// BroadcastStream returns the derived broadcast stream key.
func (c Config) BroadcastStream() string { return c.StreamKey + ":bcast" }

// Queue is one process's handle on the anycast and broadcast streams. Three
// cooperative loops run per instance: the group reader, the broadcast tail
// reader and the autoclaim scanner.
type Queue struct {
	store  *streamstore.Store
	cfg    Config
	logger *zap.Logger

	consumeCh   chan Message
	subscribeCh chan Message

	closed atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
	warn   warnThrottle
}

// NewQueue creates the queue and starts its reader loops.
func NewQueue(store *streamstore.Store, cfg Config, logger *zap.Logger) *Queue {
	cfg.applyDefaults()
	if cfg.Consumer == "" {
		cfg.Consumer = ConsumerID("", ProcessIndex())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		store:       store,
		cfg:         cfg,
		logger:      logger,
		consumeCh:   make(chan Message, cfg.ChannelSize),
		subscribeCh: make(chan Message, cfg.ChannelSize),
		cancel:      cancel,
	}

	q.wg.Add(3)
	go q.consumeLoop(ctx)
	go q.broadcastLoop(ctx)
	go q.autoclaimLoop(ctx)
	return q
}

// SendAnycast appends a payload to the anycast stream. Transient engine
// errors are retried on the reconnect interval and never surface.
func (q *Queue) SendAnycast(ctx context.Context, values map[string]interface{}) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	return q.appendWithRetry(ctx, q.cfg.StreamKey, values)
}

// SendBroadcast appends a payload to the broadcast stream.
func (q *Queue) SendBroadcast(ctx context.Context, values map[string]interface{}) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	return q.appendWithRetry(ctx, q.cfg.BroadcastStream(), values)
}

// Consume returns the channel of anycast messages for this process. The
// caller owns acknowledgement via Ack once all its handlers finished.
func (q *Queue) Consume() <-chan Message { return q.consumeCh }

// Subscribe returns the channel of broadcast messages for this process.
func (q *Queue) Subscribe() <-chan Message { return q.subscribeCh }

// Ack acknowledges an anycast message after all consumer handlers completed.
// Unacked messages are redelivered through autoclaim.
func (q *Queue) Ack(ctx context.Context, id string) error {
	return q.store.Ack(ctx, q.cfg.StreamKey, q.cfg.GroupName, id)
}

// PendingCount reports delivered-but-unacked anycast messages, for health.
func (q *Queue) PendingCount(ctx context.Context) (int64, error) {
	return q.store.PendingCount(ctx, q.cfg.StreamKey, q.cfg.GroupName)
}

// StreamLength reports the anycast stream length, for health.
func (q *Queue) StreamLength(ctx context.Context) (int64, error) {
	return q.store.Len(ctx, q.cfg.StreamKey)
}

// Close stops the reader loops and closes the local channels. Safe to call
// more than once.
func (q *Queue) Close() {
	if q.closed.Swap(true) {
		return
	}
	q.cancel()
	q.wg.Wait()
	close(q.consumeCh)
	close(q.subscribeCh)
}

func (q *Queue) appendWithRetry(ctx context.Context, stream string, values map[string]interface{}) error {
	backoff := retry.WithMaxRetries(10, retry.NewConstant(q.cfg.ReconnectPollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := q.store.Append(ctx, stream, values, q.cfg.MaxLen)
		if err != nil && streamstore.IsTransient(err) {
			q.warn.Warn(q.logger, "transient error appending to stream", stream, err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("append to %s: %w", stream, err)
	}
	return nil
}
