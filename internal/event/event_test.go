package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBgtaskUpdatedRoundTrip(t *testing.T) {
	src := BgtaskUpdated{
		TaskID:  uuid.New(),
		Current: "3.5",
		Total:   "10",
		Message: "pulling layers",
	}
	args, err := src.EncodeArgs()
	require.NoError(t, err)

	ev, known, err := Decode(NameBgtaskUpdated, args)
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, src, ev)
}

func TestBgtaskFailedCarriesErrorCode(t *testing.T) {
	src := BgtaskFailed{TaskID: uuid.New(), Message: "boom", ErrorCode: "quota_exceeded"}
	args, err := src.EncodeArgs()
	require.NoError(t, err)

	ev, known, err := Decode(NameBgtaskFailed, args)
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, "quota_exceeded", ev.(BgtaskFailed).ErrorCode)
}

func TestBgtaskFailedDefaultsErrorCode(t *testing.T) {
	// Old producers serialize only (task_id, message); the decoder fills in
	// the default code for the missing suffix field.
	id := uuid.New()
	args, err := encodeTuple(id.String(), "boom")
	require.NoError(t, err)

	ev, known, err := Decode(NameBgtaskFailed, args)
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, DefaultErrorCode, ev.(BgtaskFailed).ErrorCode)
}

func TestDecodeIgnoresExtraTrailingItems(t *testing.T) {
	// Newer producers may append fields this version does not know about.
	id := uuid.New()
	args, err := encodeTuple(id.String(), "done", "future-field", int64(42))
	require.NoError(t, err)

	ev, known, err := Decode(NameBgtaskDone, args)
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, BgtaskDone{TaskID: id, Message: "done"}, ev)
}

func TestDecodeLegacyAliases(t *testing.T) {
	id := uuid.New()
	args, err := BgtaskDone{TaskID: id, Message: "ok"}.EncodeArgs()
	require.NoError(t, err)

	ev, known, err := Decode("task_done", args)
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, NameBgtaskDone, ev.Name())
}

func TestDecodeUnknownName(t *testing.T) {
	ev, known, err := Decode("no_such_event", nil)
	require.NoError(t, err)
	assert.False(t, known)
	assert.Nil(t, ev)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("event_test_dup", decodeEmpty(DoSchedule{}))
	assert.Panics(t, func() {
		Register("event_test_dup", decodeEmpty(DoSchedule{}))
	})
}

func TestRegisterAliasUnknownTargetPanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterAlias("event_test_alias", "no_such_canonical")
	})
}

func TestSessionStartedRoundTrip(t *testing.T) {
	src := SessionStarted{SessionID: "sess-1", Creator: "admin@veristack.io"}
	args, err := src.EncodeArgs()
	require.NoError(t, err)

	ev, known, err := Decode(NameSessionStarted, args)
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, src, ev)
	assert.Equal(t, "sess-1", ev.DomainID())
	assert.Equal(t, Broadcast, ev.Delivery())
}

func TestScheduleTriggersAreProcessScoped(t *testing.T) {
	for _, ev := range []Event{DoSchedule{}, DoCheckPrecondition{}, DoIdleCheck{}} {
		assert.Empty(t, ev.DomainID(), ev.Name())
		assert.Equal(t, Anycast, ev.Delivery(), ev.Name())

		args, err := ev.EncodeArgs()
		require.NoError(t, err)
		dec, known, err := Decode(ev.Name(), args)
		require.NoError(t, err)
		require.True(t, known)
		assert.Equal(t, ev, dec)
	}
}

func TestKnownDomain(t *testing.T) {
	assert.True(t, KnownDomain(DomainBgtask))
	assert.True(t, KnownDomain(DomainSession))
	assert.False(t, KnownDomain(Domain("bogus")))
}

func TestNamesIncludesAliases(t *testing.T) {
	names := Names()
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	assert.Contains(t, set, NameBgtaskDone)
	assert.Contains(t, set, "task_done")
}
