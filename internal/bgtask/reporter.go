package bgtask

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veristack/eventplane/internal/dispatcher"
	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/streamstore"
)

// Reporter lets a task function publish progress. The running total is
// cached locally under a lock so concurrent updates from the task cannot
// interleave a stale read-modify-write through the store.
type Reporter struct {
	taskID   uuid.UUID
	store    *streamstore.Store
	producer *dispatcher.Producer

	mu      sync.Mutex
	current float64
	total   float64
}

func newReporter(taskID uuid.UUID, store *streamstore.Store, producer *dispatcher.Producer) *Reporter {
	return &Reporter{taskID: taskID, store: store, producer: producer}
}

// TaskID returns the id of the task being reported on.
func (r *Reporter) TaskID() uuid.UUID { return r.taskID }

// SetTotal sets the expected amount of work. Persisted on the next Update.
func (r *Reporter) SetTotal(total float64) {
	r.mu.Lock()
	r.total = total
	r.mu.Unlock()
}

// Update adds increment to the current progress, persists the snapshot with
// a TTL refresh and emits a BgtaskUpdated event carrying the post-update
// values.
func (r *Reporter) Update(ctx context.Context, increment float64, message string) error {
	r.mu.Lock()
	r.current += increment
	current := FormatProgress(r.current)
	total := FormatProgress(r.total)
	r.mu.Unlock()

	fields := map[string]string{
		"current":     current,
		"total":       total,
		"msg":         message,
		"last_update": encodeTime(time.Now()),
	}
	if err := r.store.SetRecord(ctx, Key(r.taskID.String()), fields); err != nil {
		return err
	}
	return r.producer.Produce(ctx, event.BgtaskUpdated{
		TaskID:  r.taskID,
		Current: current,
		Total:   total,
		Message: message,
	})
}
