package event

import (
	"fmt"
	"sync"
)

// DecodeFunc reconstructs an event from its serialized args tuple.
type DecodeFunc func(args []byte) (Event, error)

var registry = struct {
	mu       sync.RWMutex
	decoders map[string]DecodeFunc
}{decoders: make(map[string]DecodeFunc)}

// Register binds an event name to its deserializer. Event names are globally
// unique; a duplicate registration is a programming error and panics so it is
// caught at process startup.
func Register(name string, dec DecodeFunc) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.decoders[name]; ok {
		panic(fmt.Sprintf("event: duplicate registration of %q", name))
	}
	registry.decoders[name] = dec
}

// RegisterAlias binds a legacy spelling of an event name to the decoder of
// its canonical name. Kept for one release so mixed-version clusters keep
// decoding the older spellings.
func RegisterAlias(alias, canonical string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	dec, ok := registry.decoders[canonical]
	if !ok {
		panic(fmt.Sprintf("event: alias %q targets unregistered event %q", alias, canonical))
	}
	if _, ok := registry.decoders[alias]; ok {
		panic(fmt.Sprintf("event: duplicate registration of %q", alias))
	}
	registry.decoders[alias] = dec
}

// Decode looks up the decoder for name and reconstructs the event. The
// second return value reports whether the name is known at all; unknown
// names are not an error for the dispatcher (no local handler cares).
func Decode(name string, args []byte) (Event, bool, error) {
	registry.mu.RLock()
	dec, ok := registry.decoders[name]
	registry.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	ev, err := dec(args)
	if err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", name, err)
	}
	return ev, true, nil
}

// Registered reports whether an event name has a decoder.
func Registered(name string) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	_, ok := registry.decoders[name]
	return ok
}

// Names returns every registered event name, aliases included.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	out := make([]string, 0, len(registry.decoders))
	for name := range registry.decoders {
		out = append(out, name)
	}
	return out
}
