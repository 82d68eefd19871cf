package streamstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultMaxLen is the approximate cap applied to event streams. Trimming
	// uses MAXLEN ~ so slightly more entries may survive.
	DefaultMaxLen = 128

	// RecordTTL is the lifetime of a KV record, refreshed on every write.
	RecordTTL = 86_400 * time.Second
)

// Store executes stream and KV commands against the engine. It performs no
// retries itself; the retry ladder lives in the message-queue loops.
type Store struct {
	client Client
	logger *zap.Logger
}

// New creates a Store over the given client.
func New(client Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, logger: logger}
}

// Append adds the fields to the stream with an approximate MAXLEN cap and
// returns the assigned message id. Ids are monotonic within one stream.
func (s *Store) Append(ctx context.Context, stream string, values map[string]interface{}, maxLen int64) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: true,
		Values: values,
	})
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}

// ReadGroup blocks up to block and returns entries not yet delivered to any
// consumer of the group. A Nil error means the block timed out with no data.
func (s *Store) ReadGroup(ctx context.Context, stream, group, consumer string, block time.Duration, count int64) ([]redis.XMessage, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	})
	if err != nil {
		return nil, err
	}
	return flatten(streams), nil
}

// ReadTail blocks up to block and returns entries appended after lastID.
// Use "$" as lastID to start at the current tail.
func (s *Store) ReadTail(ctx context.Context, stream, lastID string, block time.Duration, count int64) ([]redis.XMessage, error) {
	streams, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   count,
		Block:   block,
	})
	if err != nil {
		return nil, err
	}
	return flatten(streams), nil
}

// Ack acknowledges a delivered entry for the group.
func (s *Store) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if _, err := s.client.XAck(ctx, stream, group, ids...); err != nil {
		return fmt.Errorf("xack %s: %w", stream, err)
	}
	return nil
}

// AutoClaim reassigns entries pending longer than minIdle to consumer,
// scanning from start. It returns the claimed entries and the next start id
// for the following scan ("0-0" restarts from the beginning).
func (s *Store) AutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, start string) ([]redis.XMessage, string, error) {
	msgs, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    start,
		Count:    DefaultMaxLen,
	})
	if err != nil {
		return nil, start, err
	}
	return msgs, next, nil
}

// CreateGroup creates the consumer group starting at the stream tail,
// creating the stream as well. An already-existing group is not an error.
func (s *Store) CreateGroup(ctx context.Context, stream, group string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, group, "$")
	if err != nil && !IsBusyGroup(err) {
		return fmt.Errorf("xgroup create %s/%s: %w", stream, group, err)
	}
	return nil
}

// Trim bounds the stream to approximately maxLen entries.
func (s *Store) Trim(ctx context.Context, stream string, maxLen int64) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if _, err := s.client.XTrimMaxLenApprox(ctx, stream, maxLen); err != nil {
		return fmt.Errorf("xtrim %s: %w", stream, err)
	}
	return nil
}

// PendingCount returns the number of delivered-but-unacked entries.
func (s *Store) PendingCount(ctx context.Context, stream, group string) (int64, error) {
	p, err := s.client.XPending(ctx, stream, group)
	if err != nil {
		if IsNoGroup(err) {
			return 0, nil
		}
		return 0, err
	}
	return p.Count, nil
}

// Len returns the stream length.
func (s *Store) Len(ctx context.Context, stream string) (int64, error) {
	return s.client.XLen(ctx, stream)
}

// SetRecord writes hash fields and refreshes the record TTL in one logical
// operation. Every write path of a record must go through here so the TTL is
// always refreshed.
func (s *Store) SetRecord(ctx context.Context, key string, fields map[string]string) error {
	if err := s.client.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	if err := s.client.Expire(ctx, key, RecordTTL); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

// GetRecord reads every field of a record. A missing or aged-out key yields
// an empty map and no error.
func (s *Store) GetRecord(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.client.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return fields, nil
}

// RecordTTL returns the remaining TTL of a record key.
func (s *Store) RecordTTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key)
}

func flatten(streams []redis.XStream) []redis.XMessage {
	var out []redis.XMessage
	for _, st := range streams {
		out = append(out, st.Messages...)
	}
	return out
}
