package bgtask

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	now := time.Now()
	rec := Record{
		Status:     StatusStarted,
		Message:    "pulling",
		StartedAt:  now,
		LastUpdate: now,
		Current:    "1.5",
		Total:      "10",
	}

	got, err := RecordFromFields(rec.Fields())
	require.NoError(t, err)
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.Message, got.Message)
	assert.Equal(t, rec.Current, got.Current)
	assert.Equal(t, rec.Total, got.Total)
	assert.WithinDuration(t, now, got.StartedAt, time.Millisecond)
	assert.WithinDuration(t, now, got.LastUpdate, time.Millisecond)
}

func TestRecordFromFieldsEmptyIsNotFound(t *testing.T) {
	_, err := RecordFromFields(nil)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = RecordFromFields(map[string]string{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordFromFieldsInvalidMetadata(t *testing.T) {
	now := encodeTime(time.Now())

	_, err := RecordFromFields(map[string]string{
		"status": "bogus", "started_at": now, "last_update": now,
	})
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	_, err = RecordFromFields(map[string]string{
		"status": "done", "started_at": "junk", "last_update": now,
	})
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestRecordFromFieldsDefaultsProgress(t *testing.T) {
	now := encodeTime(time.Now())
	rec, err := RecordFromFields(map[string]string{
		"status": "done", "started_at": now, "last_update": now,
	})
	require.NoError(t, err)
	assert.Equal(t, "0", rec.Current)
	assert.Equal(t, "0", rec.Total)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusStarted.Terminal())
	assert.False(t, Status("").Terminal())
	for _, s := range []Status{StatusDone, StatusCancelled, StatusFailed, StatusPartialSuccess} {
		assert.True(t, s.Terminal(), string(s))
	}
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "0", FormatProgress(0))
	assert.Equal(t, "3", FormatProgress(3))
	assert.Equal(t, "3.5", FormatProgress(3.5))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bgtask.abc", Key("abc"))
}
