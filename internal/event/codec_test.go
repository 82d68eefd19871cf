package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMessage(t *testing.T) {
	src := BgtaskDone{TaskID: uuid.New(), Message: "ok"}
	payload, err := EncodeMessage(src, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, NameBgtaskDone, payload[FieldName])
	assert.Equal(t, "manager-1", payload[FieldSource])

	// The engine returns every hash value as a string.
	wire := map[string]interface{}{
		FieldName:   payload[FieldName].(string),
		FieldSource: payload[FieldSource].(string),
		FieldArgs:   string(payload[FieldArgs].([]byte)),
	}
	name, source, args, err := DecodeMessage(wire)
	require.NoError(t, err)
	assert.Equal(t, NameBgtaskDone, name)
	assert.Equal(t, "manager-1", source)

	ev, known, err := Decode(name, args)
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, src, ev)
}

func TestDecodeMessageMissingFields(t *testing.T) {
	_, _, _, err := DecodeMessage(map[string]interface{}{FieldName: "x"})
	assert.Error(t, err)

	_, _, _, err = DecodeMessage(map[string]interface{}{
		FieldName: "x", FieldSource: "y", FieldArgs: 42,
	})
	assert.Error(t, err)
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, 0, RetryCount(map[string]interface{}{}))
	assert.Equal(t, 2, RetryCount(map[string]interface{}{FieldRetryCount: "2"}))
	assert.Equal(t, 0, RetryCount(map[string]interface{}{FieldRetryCount: "junk"}))
	assert.Equal(t, 0, RetryCount(map[string]interface{}{FieldRetryCount: "-1"}))
}

func TestTupleReaderDefaults(t *testing.T) {
	args, err := encodeTuple("only")
	require.NoError(t, err)

	r, err := newTupleReader(args)
	require.NoError(t, err)
	assert.Equal(t, "only", r.String("def"))
	assert.Equal(t, "def", r.String("def"))
	assert.Equal(t, int64(7), r.Int(7))
	assert.Nil(t, r.StringSlice())
	assert.NoError(t, r.Err())
}

func TestTupleReaderTypeMismatch(t *testing.T) {
	args, err := encodeTuple(int64(3))
	require.NoError(t, err)

	r, err := newTupleReader(args)
	require.NoError(t, err)
	assert.Equal(t, "def", r.String("def"))
	assert.Error(t, r.Err())
}

func TestTupleReaderRejectsNonArray(t *testing.T) {
	_, err := newTupleReader([]byte{0xc3}) // msgpack true
	assert.Error(t, err)
}
