package event

import (
	"github.com/google/uuid"
)

// Bgtask event names. The terminal names form a closed set; exactly one of
// them is emitted per task id over its whole lifetime.
const (
	NameBgtaskUpdated        = "bgtask_updated"
	NameBgtaskDone           = "bgtask_done"
	NameBgtaskCancelled      = "bgtask_cancelled"
	NameBgtaskFailed         = "bgtask_failed"
	NameBgtaskPartialSuccess = "bgtask_partial_success"
	NameBgtaskAlreadyDone    = "bgtask_already_done"
)

// IsBgtaskTerminal reports whether the event name is a terminal bgtask event.
func IsBgtaskTerminal(name string) bool {
	switch name {
	case NameBgtaskDone, NameBgtaskCancelled, NameBgtaskFailed, NameBgtaskPartialSuccess, NameBgtaskAlreadyDone:
		return true
	}
	return false
}

// BgtaskUpdated carries a progress snapshot of a running background task.
// Progress values are decimal strings so precision survives the wire.
type BgtaskUpdated struct {
	TaskID  uuid.UUID
	Current string
	Total   string
	Message string
}

func (e BgtaskUpdated) Name() string              { return NameBgtaskUpdated }
func (e BgtaskUpdated) Domain() Domain            { return DomainBgtask }
func (e BgtaskUpdated) DomainID() string          { return e.TaskID.String() }
func (e BgtaskUpdated) Delivery() DeliveryPattern { return Broadcast }

func (e BgtaskUpdated) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.TaskID.String(), e.Current, e.Total, e.Message)
}

func decodeBgtaskUpdated(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(r.String(""))
	if err != nil {
		return nil, err
	}
	ev := BgtaskUpdated{
		TaskID:  id,
		Current: r.String("0"),
		Total:   r.String("0"),
		Message: r.String(""),
	}
	return ev, r.Err()
}

// BgtaskDone is the terminal event for a task that completed successfully.
type BgtaskDone struct {
	TaskID  uuid.UUID
	Message string
}

func (e BgtaskDone) Name() string              { return NameBgtaskDone }
func (e BgtaskDone) Domain() Domain            { return DomainBgtask }
func (e BgtaskDone) DomainID() string          { return e.TaskID.String() }
func (e BgtaskDone) Delivery() DeliveryPattern { return Broadcast }

func (e BgtaskDone) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.TaskID.String(), e.Message)
}

func decodeBgtaskDone(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(r.String(""))
	if err != nil {
		return nil, err
	}
	return BgtaskDone{TaskID: id, Message: r.String("")}, r.Err()
}

// BgtaskCancelled is the terminal event for a task cancelled before finishing.
type BgtaskCancelled struct {
	TaskID  uuid.UUID
	Message string
}

func (e BgtaskCancelled) Name() string              { return NameBgtaskCancelled }
func (e BgtaskCancelled) Domain() Domain            { return DomainBgtask }
func (e BgtaskCancelled) DomainID() string          { return e.TaskID.String() }
func (e BgtaskCancelled) Delivery() DeliveryPattern { return Broadcast }

func (e BgtaskCancelled) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.TaskID.String(), e.Message)
}

func decodeBgtaskCancelled(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(r.String(""))
	if err != nil {
		return nil, err
	}
	return BgtaskCancelled{TaskID: id, Message: r.String("")}, r.Err()
}

// DefaultErrorCode is carried by BgtaskFailed when the failure was not a
// domain-typed error with its own code.
const DefaultErrorCode = "generic"

// BgtaskFailed is the terminal event for a task that raised an error.
// ErrorCode is an optional suffix field; old producers omit it.
type BgtaskFailed struct {
	TaskID    uuid.UUID
	Message   string
	ErrorCode string
}

func (e BgtaskFailed) Name() string              { return NameBgtaskFailed }
func (e BgtaskFailed) Domain() Domain            { return DomainBgtask }
func (e BgtaskFailed) DomainID() string          { return e.TaskID.String() }
func (e BgtaskFailed) Delivery() DeliveryPattern { return Broadcast }

func (e BgtaskFailed) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.TaskID.String(), e.Message, e.ErrorCode)
}

func decodeBgtaskFailed(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(r.String(""))
	if err != nil {
		return nil, err
	}
	ev := BgtaskFailed{
		TaskID:    id,
		Message:   r.String(""),
		ErrorCode: r.String(DefaultErrorCode),
	}
	return ev, r.Err()
}

// BgtaskPartialSuccess is the terminal event for a task whose dispatch
// result carried per-item errors. The persisted status stays DONE for
// client compatibility; only the wire name differs.
type BgtaskPartialSuccess struct {
	TaskID  uuid.UUID
	Message string
	Errors  []string
}

func (e BgtaskPartialSuccess) Name() string              { return NameBgtaskPartialSuccess }
func (e BgtaskPartialSuccess) Domain() Domain            { return DomainBgtask }
func (e BgtaskPartialSuccess) DomainID() string          { return e.TaskID.String() }
func (e BgtaskPartialSuccess) Delivery() DeliveryPattern { return Broadcast }

func (e BgtaskPartialSuccess) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.TaskID.String(), e.Message, e.Errors)
}

func decodeBgtaskPartialSuccess(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(r.String(""))
	if err != nil {
		return nil, err
	}
	ev := BgtaskPartialSuccess{
		TaskID:  id,
		Message: r.String(""),
		Errors:  r.StringSlice(),
	}
	return ev, r.Err()
}

// BgtaskAlreadyDone replays the terminal state of a finished task to a late
// subscriber. It is synthesized locally from the persisted record and is
// never published to the wire, so it has no registered decoder.
type BgtaskAlreadyDone struct {
	TaskID  uuid.UUID
	Status  string
	Message string
	Current string
	Total   string
}

func (e BgtaskAlreadyDone) Name() string              { return NameBgtaskAlreadyDone }
func (e BgtaskAlreadyDone) Domain() Domain            { return DomainBgtask }
func (e BgtaskAlreadyDone) DomainID() string          { return e.TaskID.String() }
func (e BgtaskAlreadyDone) Delivery() DeliveryPattern { return Broadcast }

func (e BgtaskAlreadyDone) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.TaskID.String(), e.Status, e.Message, e.Current, e.Total)
}

func init() {
	Register(NameBgtaskUpdated, decodeBgtaskUpdated)
	Register(NameBgtaskDone, decodeBgtaskDone)
	Register(NameBgtaskCancelled, decodeBgtaskCancelled)
	Register(NameBgtaskFailed, decodeBgtaskFailed)
	Register(NameBgtaskPartialSuccess, decodeBgtaskPartialSuccess)

	// Legacy spellings from the pre-package bgtask module; kept for one
	// release so mixed-version clusters keep decoding them.
	RegisterAlias("task_updated", NameBgtaskUpdated)
	RegisterAlias("task_done", NameBgtaskDone)
	RegisterAlias("task_cancelled", NameBgtaskCancelled)
	RegisterAlias("task_failed", NameBgtaskFailed)
}
