package streamstore

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
)

// IsNil reports the engine's "no data" reply (e.g. a blocked read timing out).
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// IsNoGroup reports the NOGROUP protocol error: the consumer group (or the
// stream) does not exist yet. Callers self-heal with CreateGroup.
func IsNoGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "NOGROUP")
}

// IsBusyGroup reports the BUSYGROUP protocol error: the group already
// exists. Always safe to swallow.
func IsBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

// IsTransient classifies infrastructure errors the reader loops recover from
// by sleeping and retrying: replica/readonly state during failover, lost
// connections and timeouts. Protocol and decoding errors are not transient.
func IsTransient(err error) bool {
	if err == nil || IsNil(err) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "READONLY"),
		strings.HasPrefix(msg, "NOREPLICAS"),
		strings.HasPrefix(msg, "LOADING"),
		strings.HasPrefix(msg, "CLUSTERDOWN"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "EOF"):
		return true
	}
	return false
}
