package dispatcher

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Token identifies one handler registration: 16 random bytes, hex encoded.
type Token string

func newToken() Token {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("dispatcher: crypto/rand unavailable: " + err.Error())
	}
	return Token(hex.EncodeToString(b[:]))
}

// registration is one handler entry in a registry.
type registration struct {
	token     Token
	name      string
	kind      Kind
	cb        Callback
	matcher   func(args []byte) bool
	coalescer *coalescer
}

// Option customizes a handler registration.
type Option func(*registration)

// WithArgsMatcher filters messages by their raw args tuple before the event
// is handed to the callback. Returning false skips the handler.
func WithArgsMatcher(m func(args []byte) bool) Option {
	return func(r *registration) { r.matcher = m }
}

// WithCoalescing rate-controls the handler: events arriving within maxWait
// of each other collapse into one callback invocation, and a batch reaching
// maxBatch fires immediately. K events yield ceil(K/maxBatch) invocations.
func WithCoalescing(maxWait time.Duration, maxBatch int) Option {
	return func(r *registration) {
		r.coalescer = newCoalescer(maxWait, maxBatch)
	}
}
