// Package streamstore wraps a Redis-compatible engine behind the small
// command surface the event plane needs: bounded streams with consumer-group
// semantics plus a hash/TTL KV side for background-task records.
package streamstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the stream-engine command surface used by the Store. The
// abstraction allows error injection in tests without a live engine.
type Client interface {
	// XAdd appends an entry to a stream and returns the assigned id.
	XAdd(ctx context.Context, args *redis.XAddArgs) (string, error)
	// XRead tail-reads one or more streams without a consumer group.
	XRead(ctx context.Context, args *redis.XReadArgs) ([]redis.XStream, error)
	// XReadGroup reads undelivered entries for a consumer group member.
	XReadGroup(ctx context.Context, args *redis.XReadGroupArgs) ([]redis.XStream, error)
	// XAck acknowledges delivered entries.
	XAck(ctx context.Context, stream, group string, ids ...string) (int64, error)
	// XAutoClaim reassigns pending entries idle for at least MinIdle.
	XAutoClaim(ctx context.Context, args *redis.XAutoClaimArgs) ([]redis.XMessage, string, error)
	// XGroupCreateMkStream creates a consumer group, creating the stream too.
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) error
	// XTrimMaxLenApprox bounds the stream length approximately.
	XTrimMaxLenApprox(ctx context.Context, stream string, maxLen int64) (int64, error)
	// XPending summarizes the pending entries of a group.
	XPending(ctx context.Context, stream, group string) (*redis.XPending, error)
	// XLen returns the stream length.
	XLen(ctx context.Context, stream string) (int64, error)
	// HSet writes hash fields.
	HSet(ctx context.Context, key string, values map[string]string) error
	// HGetAll reads every field of a hash. A missing key yields an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// Expire refreshes the TTL of a key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining TTL of a key.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// GoRedisClient adapts a go-redis client to the Client interface.
type GoRedisClient struct {
	Client redis.UniversalClient
}

// NewGoRedisClient wraps rdb for use by the Store.
func NewGoRedisClient(rdb redis.UniversalClient) *GoRedisClient {
	return &GoRedisClient{Client: rdb}
}

func (a *GoRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) (string, error) {
	return a.Client.XAdd(ctx, args).Result()
}

func (a *GoRedisClient) XRead(ctx context.Context, args *redis.XReadArgs) ([]redis.XStream, error) {
	return a.Client.XRead(ctx, args).Result()
}

func (a *GoRedisClient) XReadGroup(ctx context.Context, args *redis.XReadGroupArgs) ([]redis.XStream, error) {
	return a.Client.XReadGroup(ctx, args).Result()
}

func (a *GoRedisClient) XAck(ctx context.Context, stream, group string, ids ...string) (int64, error) {
	return a.Client.XAck(ctx, stream, group, ids...).Result()
}

func (a *GoRedisClient) XAutoClaim(ctx context.Context, args *redis.XAutoClaimArgs) ([]redis.XMessage, string, error) {
	return a.Client.XAutoClaim(ctx, args).Result()
}

func (a *GoRedisClient) XGroupCreateMkStream(ctx context.Context, stream, group, start string) error {
	return a.Client.XGroupCreateMkStream(ctx, stream, group, start).Err()
}

func (a *GoRedisClient) XTrimMaxLenApprox(ctx context.Context, stream string, maxLen int64) (int64, error) {
	return a.Client.XTrimMaxLenApprox(ctx, stream, maxLen, 0).Result()
}

func (a *GoRedisClient) XPending(ctx context.Context, stream, group string) (*redis.XPending, error) {
	return a.Client.XPending(ctx, stream, group).Result()
}

func (a *GoRedisClient) XLen(ctx context.Context, stream string) (int64, error) {
	return a.Client.XLen(ctx, stream).Result()
}

func (a *GoRedisClient) HSet(ctx context.Context, key string, values map[string]string) error {
	flat := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		flat = append(flat, k, v)
	}
	return a.Client.HSet(ctx, key, flat...).Err()
}

func (a *GoRedisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return a.Client.HGetAll(ctx, key).Result()
}

func (a *GoRedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return a.Client.Expire(ctx, key, ttl).Err()
}

func (a *GoRedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return a.Client.TTL(ctx, key).Result()
}
