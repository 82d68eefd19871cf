package event

const (
	NameAgentStarted    = "agent_started"
	NameAgentTerminated = "agent_terminated"
)

// AgentStarted is sent by an agent when it (re)joins the cluster. Anycast:
// one manager registers the agent and fans out whatever follows.
type AgentStarted struct {
	AgentID string
	Reason  string
}

func (e AgentStarted) Name() string              { return NameAgentStarted }
func (e AgentStarted) Domain() Domain            { return DomainAgent }
func (e AgentStarted) DomainID() string          { return e.AgentID }
func (e AgentStarted) Delivery() DeliveryPattern { return Anycast }

func (e AgentStarted) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.AgentID, e.Reason)
}

func decodeAgentStarted(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	ev := AgentStarted{AgentID: r.String(""), Reason: r.String("")}
	return ev, r.Err()
}

// AgentTerminated is sent when an agent leaves or is lost.
type AgentTerminated struct {
	AgentID string
	Reason  string
}

func (e AgentTerminated) Name() string              { return NameAgentTerminated }
func (e AgentTerminated) Domain() Domain            { return DomainAgent }
func (e AgentTerminated) DomainID() string          { return e.AgentID }
func (e AgentTerminated) Delivery() DeliveryPattern { return Anycast }

func (e AgentTerminated) EncodeArgs() ([]byte, error) {
	return encodeTuple(e.AgentID, e.Reason)
}

func decodeAgentTerminated(args []byte) (Event, error) {
	r, err := newTupleReader(args)
	if err != nil {
		return nil, err
	}
	ev := AgentTerminated{AgentID: r.String(""), Reason: r.String("")}
	return ev, r.Err()
}

func init() {
	Register(NameAgentStarted, decodeAgentStarted)
	Register(NameAgentTerminated, decodeAgentTerminated)
}
