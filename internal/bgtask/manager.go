package bgtask

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/dispatcher"
	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/metrics"
	"github.com/veristack/eventplane/internal/streamstore"
)

// Result is what a task function returns on success. Per-item errors mark
// the task as partial success on the wire while the persisted status stays
// done for client compatibility.
type Result struct {
	Message string
	Errors  []string
}

// TaskFunc is the body of a background task. It observes cancellation
// through ctx and reports progress through the reporter.
type TaskFunc func(ctx context.Context, rep *Reporter) (*Result, error)

// CodedError lets domain errors carry an error code into BgtaskFailed.
type CodedError interface {
	error
	ErrorCode() string
}

// Manager creates background tasks, persists their records and guarantees
// exactly one terminal event per task.
type Manager struct {
	store    *streamstore.Store
	producer *dispatcher.Producer
	logger   *zap.Logger

	mu      sync.Mutex
	ongoing map[uuid.UUID]*task
}

// task is one ongoing wrapper. The completion hook removes it from the
// manager's map, replacing GC-driven weak-set cleanup.
type task struct {
	id     uuid.UUID
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	term   sync.Once
}

// NewManager creates a manager over the given store and producer.
func NewManager(store *streamstore.Store, producer *dispatcher.Producer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:    store,
		producer: producer,
		logger:   logger,
		ongoing:  make(map[uuid.UUID]*task),
	}
}

// Start creates a task record and schedules fn in the background. The task
// id returns synchronously; the STARTED record is written before scheduling
// so subscribers can never observe a terminal event without a record.
func (m *Manager) Start(ctx context.Context, fn TaskFunc, name string) (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now()
	rec := Record{
		Status:     StatusStarted,
		StartedAt:  now,
		LastUpdate: now,
		Current:    "0",
		Total:      "0",
	}
	if err := m.store.SetRecord(ctx, Key(id.String()), rec.Fields()); err != nil {
		return uuid.Nil, err
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	t := &task{id: id, name: name, cancel: cancel, done: make(chan struct{})}
	m.mu.Lock()
	m.ongoing[id] = t
	m.mu.Unlock()

	metrics.BgtasksStarted.Inc()
	go m.run(taskCtx, t, fn)
	return id, nil
}

func (m *Manager) run(ctx context.Context, t *task, fn TaskFunc) {
	defer func() {
		m.mu.Lock()
		delete(m.ongoing, t.id)
		m.mu.Unlock()
		close(t.done)
	}()

	started := time.Now()
	rep := newReporter(t.id, m.store, m.producer)
	res, err := fn(ctx, rep)

	var (
		status    Status
		persisted Status
		msg       string
		errorCode string
		ev        event.Event
	)
	switch {
	// A normal return outranks a cancel that landed after fn finished; only
	// tasks that actually gave up on cancellation count as cancelled.
	case errors.Is(err, context.Canceled):
		status, persisted = StatusCancelled, StatusCancelled
		ev = event.BgtaskCancelled{TaskID: t.id, Message: msg}
	case err != nil:
		status, persisted = StatusFailed, StatusFailed
		msg = err.Error()
		errorCode = event.DefaultErrorCode
		var coded CodedError
		if errors.As(err, &coded) {
			errorCode = coded.ErrorCode()
		}
		ev = event.BgtaskFailed{TaskID: t.id, Message: msg, ErrorCode: errorCode}
	case res != nil && len(res.Errors) > 0:
		// Wire name says partial success; the record keeps DONE until
		// clients understand the new status.
		status, persisted = StatusPartialSuccess, StatusDone
		msg = res.Message
		ev = event.BgtaskPartialSuccess{TaskID: t.id, Message: msg, Errors: res.Errors}
	default:
		status, persisted = StatusDone, StatusDone
		if res != nil {
			msg = res.Message
		}
		ev = event.BgtaskDone{TaskID: t.id, Message: msg}
	}

	// The terminal region runs exactly once even under cancellation races.
	// The status write is an unconditional overwrite: the only valid
	// transition from STARTED is to a terminal state.
	t.term.Do(func() {
		now := time.Now()
		fields := map[string]string{
			"status":      string(persisted),
			"msg":         msg,
			"last_update": encodeTime(now),
		}
		writeCtx, cancelWrite := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelWrite()
		if err := m.store.SetRecord(writeCtx, Key(t.id.String()), fields); err != nil {
			m.logger.Error("failed to persist terminal bgtask state",
				zap.String("task_id", t.id.String()), zap.Error(err))
		}
		if err := m.producer.Produce(writeCtx, ev); err != nil {
			m.logger.Error("failed to emit terminal bgtask event",
				zap.String("task_id", t.id.String()), zap.String("event", ev.Name()), zap.Error(err))
		}
		metrics.BgtasksTerminated.WithLabelValues(t.name, string(status), errorCode).Inc()
		metrics.BgtaskDuration.WithLabelValues(t.name, string(status)).Observe(now.Sub(started).Seconds())
		m.logger.Info("bgtask finished",
			zap.String("task_id", t.id.String()),
			zap.String("task", t.name),
			zap.String("status", string(status)),
			zap.Duration("duration", now.Sub(started)))
	})
}

// FetchLastFinishedEvent loads the record and synthesizes the replay event
// for late subscribers. It returns (nil, nil) while the task is running,
// ErrNotFound for unknown or aged-out ids.
func (m *Manager) FetchLastFinishedEvent(ctx context.Context, taskID uuid.UUID) (event.Event, error) {
	fields, err := m.store.GetRecord(ctx, Key(taskID.String()))
	if err != nil {
		return nil, err
	}
	rec, err := RecordFromFields(fields)
	if err != nil {
		return nil, err
	}
	if !rec.Status.Terminal() {
		return nil, nil
	}
	return event.BgtaskAlreadyDone{
		TaskID:  taskID,
		Status:  string(rec.Status),
		Message: rec.Message,
		Current: rec.Current,
		Total:   rec.Total,
	}, nil
}

// OngoingCount reports how many wrappers are currently running.
func (m *Manager) OngoingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ongoing)
}

// Shutdown cancels every ongoing task and waits for each wrapper to finish
// its terminal region. Cancelled wrappers still emit BgtaskCancelled.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	tasks := make([]*task, 0, len(m.ongoing))
	for _, t := range m.ongoing {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
