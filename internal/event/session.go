package event

const (
	NameSessionStarted    = "session_started"
	NameSessionTerminated = "session_terminated"
)

// SessionStarted announces that a compute session reached RUNNING.
type SessionStarted struct {
	SessionID string
	Creator   string
}

func (e SessionStarted) Name() string              { return NameSessionStarted }
func (e SessionStarted) Domain() Domain            { return DomainSession }
func (e SessionStarted) DomainID() string          { return e.SessionID }
func (e SessionStarted) Delivery() DeliveryPattern { return Broadcast }

func (e SessionStarted) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.SessionID, e.Creator)
}

func decodeSessionStarted(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	ev := SessionStarted{SessionID: r.String(""), Creator: r.String("")}
	return ev, r.Err()
}

// SessionTerminated announces that a compute session was torn down.
type SessionTerminated struct {
	SessionID string
	Reason    string
}

func (e SessionTerminated) Name() string              { return NameSessionTerminated }
func (e SessionTerminated) Domain() Domain            { return DomainSession }
func (e SessionTerminated) DomainID() string          { return e.SessionID }
func (e SessionTerminated) Delivery() DeliveryPattern { return Broadcast }

func (e SessionTerminated) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.SessionID, e.Reason)
}

func decodeSessionTerminated(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	ev := SessionTerminated{SessionID: r.String(""), Reason: r.String("")}
	return ev, r.Err()
}

func init() {
	Register(NameSessionStarted, decodeSessionStarted)
	Register(NameSessionTerminated, decodeSessionTerminated)
}
