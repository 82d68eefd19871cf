package event

// Scheduler lifecycle triggers. These are process-scoped (no domain id) and
// anycast so exactly one manager in the group picks up each cycle.

const (
	NameDoSchedule          = "do_schedule"
	NameDoCheckPrecondition = "do_check_precondition"
	NameDoIdleCheck         = "do_idle_check"
)

// DoSchedule asks one manager to run a scheduling cycle.
type DoSchedule struct{}

func (DoSchedule) Name() string                { return NameDoSchedule }
func (DoSchedule) Domain() Domain              { return DomainSchedule }
func (DoSchedule) DomainID() string            { return "" }
func (DoSchedule) Delivery() DeliveryPattern   { return Anycast }
func (DoSchedule) EncodeArgs() ([]byte, error) { return encodeTuple() }

// DoCheckPrecondition asks one manager to verify scheduling preconditions
// (image availability, resource presets) for pending sessions.
type DoCheckPrecondition struct{}

func (DoCheckPrecondition) Name() string                { return NameDoCheckPrecondition }
func (DoCheckPrecondition) Domain() Domain              { return DomainSchedule }
func (DoCheckPrecondition) DomainID() string            { return "" }
func (DoCheckPrecondition) Delivery() DeliveryPattern   { return Anycast }
func (DoCheckPrecondition) EncodeArgs() ([]byte, error) { return encodeTuple() }

// DoIdleCheck asks one manager to run the idle-session checkers.
type DoIdleCheck struct{}

func (DoIdleCheck) Name() string                { return NameDoIdleCheck }
func (DoIdleCheck) Domain() Domain              { return DomainIdleCheck }
func (DoIdleCheck) DomainID() string            { return "" }
func (DoIdleCheck) Delivery() DeliveryPattern   { return Anycast }
func (DoIdleCheck) EncodeArgs() ([]byte, error) { return encodeTuple() }

func decodeEmpty(ev Event) DecodeFunc {
	return func(args []byte) (Event, error) {
		if _, err := newTupleReader(args); err != nil {
			return nil, err
		}
		return ev, nil
	}
}

func init() {
	Register(NameDoSchedule, decodeEmpty(DoSchedule{}))
	Register(NameDoCheckPrecondition, decodeEmpty(DoCheckPrecondition{}))
	Register(NameDoIdleCheck, decodeEmpty(DoIdleCheck{}))
}
