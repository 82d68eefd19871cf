package event

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeTuple packs positional items into a msgpack array. The item order is
// the on-wire schema of the owning event type.
func encodeTuple(items ...interface{}) ([]byte, error) {
	return msgpack.Marshal(items)
}

// tupleReader decodes a positional msgpack tuple with forward-compatible
// semantics: extra trailing items are ignored, and reads past the end of the
// tuple return the caller-supplied default so optional suffix fields can be
// added without breaking old producers.
type tupleReader struct {
	items []msgpack.RawMessage
	pos   int
	err   error
}

func newTupleReader(args []byte) (*tupleReader, error) {
	var items []msgpack.RawMessage
	if err := msgpack.Unmarshal(args, &items); err != nil {
		return nil, fmt.Errorf("decode args tuple: %w", err)
	}
	return &tupleReader{items: items}, nil
}

// Err returns the first decoding error encountered, if any.
func (r *tupleReader) Err() error { return r.err }

func (r *tupleReader) next() (msgpack.RawMessage, bool) {
	if r.err != nil || r.pos >= len(r.items) {
		return nil, false
	}
	raw := r.items[r.pos]
	r.pos++
	return raw, true
}

func (r *tupleReader) fail(pos int, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("tuple item %d: %w", pos, err)
	}
}

// String reads the next item as a string, or returns def past the end.
func (r *tupleReader) String(def string) string {
	raw, ok := r.next()
	if !ok {
		return def
	}
	var s string
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		r.fail(r.pos-1, err)
		return def
	}
	return s
}

// Int reads the next item as an int64, or returns def past the end.
func (r *tupleReader) Int(def int64) int64 {
	raw, ok := r.next()
	if !ok {
		return def
	}
	var v int64
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		r.fail(r.pos-1, err)
		return def
	}
	return v
}

// StringSlice reads the next item as a list of strings, or returns nil past
// the end.
func (r *tupleReader) StringSlice() []string {
	raw, ok := r.next()
	if !ok {
		return nil
	}
	var v []string
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		r.fail(r.pos-1, err)
		return nil
	}
	return v
}
