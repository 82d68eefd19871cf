// Package bgtask tracks long-running background tasks: uuid-keyed records
// with a 24 h TTL in the stream store's KV side, progress events through the
// event producer, and exactly one terminal event per task.
package bgtask

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Status of a background task record. The only valid transitions from
// Started are to one of the terminal states; terminal states never change.
type Status string

const (
	StatusStarted        Status = "started"
	StatusDone           Status = "done"
	StatusCancelled      Status = "cancelled"
	StatusFailed         Status = "failed"
	StatusPartialSuccess Status = "partial_success"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool { return s != StatusStarted && s != "" }

var (
	// ErrNotFound means the record never existed or aged out of its TTL.
	ErrNotFound = errors.New("bgtask: task not found")
	// ErrInvalidMetadata means the persisted record is malformed.
	ErrInvalidMetadata = errors.New("bgtask: invalid task metadata")
)

const keyPrefix = "bgtask."

// Key returns the KV key of a task record.
func Key(taskID string) string { return keyPrefix + taskID }

// Record is the persisted state of one task. Timestamps are seconds since
// epoch and progress values are decimal strings, both string-encoded so the
// hash fields stay language neutral.
type Record struct {
	Status     Status
	Message    string
	StartedAt  time.Time
	LastUpdate time.Time
	Current    string
	Total      string
}

// Fields encodes the record as hash fields.
func (r Record) Fields() map[string]string {
	return map[string]string{
		"status":      string(r.Status),
		"msg":         r.Message,
		"started_at":  encodeTime(r.StartedAt),
		"last_update": encodeTime(r.LastUpdate),
		"current":     r.Current,
		"total":       r.Total,
	}
}

// RecordFromFields decodes hash fields into a record. An empty map is
// ErrNotFound; missing or malformed required fields are ErrInvalidMetadata.
func RecordFromFields(fields map[string]string) (Record, error) {
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}
	status := Status(fields["status"])
	switch status {
	case StatusStarted, StatusDone, StatusCancelled, StatusFailed, StatusPartialSuccess:
	default:
		return Record{}, fmt.Errorf("%w: bad status %q", ErrInvalidMetadata, fields["status"])
	}
	startedAt, err := decodeTime(fields["started_at"])
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad started_at: %v", ErrInvalidMetadata, err)
	}
	lastUpdate, err := decodeTime(fields["last_update"])
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad last_update: %v", ErrInvalidMetadata, err)
	}
	rec := Record{
		Status:     status,
		Message:    fields["msg"],
		StartedAt:  startedAt,
		LastUpdate: lastUpdate,
		Current:    fields["current"],
		Total:      fields["total"],
	}
	if rec.Current == "" {
		rec.Current = "0"
	}
	if rec.Total == "" {
		rec.Total = "0"
	}
	return rec, nil
}

func encodeTime(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', 6, 64)
}

func decodeTime(s string) (time.Time, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, int64(v*1e9)), nil
}

// FormatProgress renders a progress value as a decimal string without
// float noise for integral values.
func FormatProgress(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
