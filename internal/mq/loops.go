package mq

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/metrics"
	"github.com/veristack/eventplane/internal/streamstore"
)

// consumeLoop reads the anycast stream through the consumer group and feeds
// the local consume channel. Acknowledgement is deferred to the dispatcher,
// which acks only after every consumer handler finished.
func (q *Queue) consumeLoop(ctx context.Context) {
	defer q.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		msgs, err := q.store.ReadGroup(ctx, q.cfg.StreamKey, q.cfg.GroupName, q.cfg.Consumer, q.cfg.BlockTimeout, int64(q.cfg.ChannelSize))
		if err != nil {
			if !q.recoverReadErr(ctx, err, true) {
				return
			}
			continue
		}
		for _, m := range msgs {
			select {
			case q.consumeCh <- Message{ID: m.ID, Values: m.Values}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// broadcastLoop tail-reads the broadcast stream starting at "$" so every
// subscriber process observes every message appended after it attached.
func (q *Queue) broadcastLoop(ctx context.Context) {
	defer q.wg.Done()

	lastID := "$"
	for {
		if ctx.Err() != nil {
			return
		}
		msgs, err := q.store.ReadTail(ctx, q.cfg.BroadcastStream(), lastID, q.cfg.BlockTimeout, int64(q.cfg.ChannelSize))
		if err != nil {
			if !q.recoverReadErr(ctx, err, false) {
				return
			}
			continue
		}
		for _, m := range msgs {
			lastID = m.ID
			select {
			case q.subscribeCh <- Message{ID: m.ID, Values: m.Values}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// recoverReadErr applies the retry ladder to a reader-loop error. It returns
// false when the loop must terminate.
func (q *Queue) recoverReadErr(ctx context.Context, err error, grouped bool) bool {
	switch {
	case streamstore.IsNil(err):
		// Block timed out with no data.
		return true
	case grouped && streamstore.IsNoGroup(err):
		if cerr := q.store.CreateGroup(ctx, q.cfg.StreamKey, q.cfg.GroupName); cerr != nil {
			q.warn.Warn(q.logger, "failed to create consumer group", q.cfg.StreamKey, cerr)
			return q.sleep(ctx)
		}
		return true
	case streamstore.IsTransient(err):
		q.warn.Warn(q.logger, "transient error reading stream", q.cfg.StreamKey, err)
		return q.sleep(ctx)
	case ctx.Err() != nil:
		return false
	default:
		q.logger.Error("stream reader loop terminated",
			zap.String("stream", q.cfg.StreamKey), zap.Error(err))
		return false
	}
}

func (q *Queue) sleep(ctx context.Context) bool {
	select {
	case <-time.After(q.cfg.ReconnectPollInterval):
		return true
	case <-ctx.Done():
		return false
	}
}

// autoclaimLoop periodically reassigns pending entries idle beyond the
// threshold. Reclaimed messages below the retry cap are republished with a
// bumped in-band counter and the original is acked; at the cap they are
// acked and dropped so a poison message cannot loop forever.
func (q *Queue) autoclaimLoop(ctx context.Context) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.AutoclaimInterval)
	defer ticker.Stop()

	start := "0-0"
	for {
		select {
		case <-ticker.C:
			start = q.autoclaimOnce(ctx, start)
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) autoclaimOnce(ctx context.Context, start string) string {
	msgs, next, err := q.store.AutoClaim(ctx, q.cfg.StreamKey, q.cfg.GroupName, q.cfg.Consumer, q.cfg.AutoclaimIdleTimeout, start)
	if err != nil {
		if streamstore.IsNoGroup(err) || streamstore.IsNil(err) {
			return "0-0"
		}
		q.warn.Warn(q.logger, "autoclaim failed", q.cfg.StreamKey, err)
		return start
	}

	for _, m := range msgs {
		retries := event.RetryCount(m.Values)
		if retries >= MaxRetries {
			q.logger.Warn("dropping message past retry cap",
				zap.String("id", m.ID), zap.Int("retries", retries))
			metrics.QueueDropped.Inc()
			q.ackQuietly(ctx, m.ID)
			continue
		}
		values := make(map[string]interface{}, len(m.Values)+1)
		for k, v := range m.Values {
			values[k] = v
		}
		values[event.FieldRetryCount] = strconv.Itoa(retries + 1)
		if _, err := q.store.Append(ctx, q.cfg.StreamKey, values, q.cfg.MaxLen); err != nil {
			q.warn.Warn(q.logger, "failed to republish reclaimed message", q.cfg.StreamKey, err)
			continue
		}
		metrics.QueueRepublished.Inc()
		q.ackQuietly(ctx, m.ID)
	}

	if next == "" {
		next = "0-0"
	}
	return next
}

func (q *Queue) ackQuietly(ctx context.Context, id string) {
	if err := q.store.Ack(ctx, q.cfg.StreamKey, q.cfg.GroupName, id); err != nil {
		q.warn.Warn(q.logger, "failed to ack message", q.cfg.StreamKey, err)
	}
}
