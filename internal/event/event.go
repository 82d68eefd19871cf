// Package event defines the typed events exchanged between manager processes
// and agents, the msgpack wire codec for their argument tuples, and the
// registry that maps event names back to deserializers.
package event

// Domain is the logical namespace an event belongs to. Together with the
// domain id it is the routing key used by the in-process event hub.
type Domain string

const (
	DomainBgtask       Domain = "bgtask"
	DomainImage        Domain = "image"
	DomainKernel       Domain = "kernel"
	DomainModelServing Domain = "model_serving"
	DomainSchedule     Domain = "schedule"
	DomainIdleCheck    Domain = "idle_check"
	DomainSession      Domain = "session"
	DomainAgent        Domain = "agent"
	DomainVFolder      Domain = "vfolder"
	DomainVolume       Domain = "volume"
	DomainLog          Domain = "log"
	DomainWorkflow     Domain = "workflow"
)

var knownDomains = map[Domain]struct{}{
	DomainBgtask: {}, DomainImage: {}, DomainKernel: {}, DomainModelServing: {},
	DomainSchedule: {}, DomainIdleCheck: {}, DomainSession: {}, DomainAgent: {},
	DomainVFolder: {}, DomainVolume: {}, DomainLog: {}, DomainWorkflow: {},
}

// KnownDomain reports whether d is one of the defined domains.
func KnownDomain(d Domain) bool {
	_, ok := knownDomains[d]
	return ok
}

// DeliveryPattern selects which queue an event travels on.
type DeliveryPattern int

const (
	// Anycast delivers each message to exactly one consumer in the group.
	Anycast DeliveryPattern = iota
	// Broadcast delivers each message to every subscriber.
	Broadcast
)

// String returns the pattern name for logs and metrics labels.
func (p DeliveryPattern) String() string {
	if p == Broadcast {
		return "broadcast"
	}
	return "anycast"
}

// Event is implemented by every event type. Name must be a globally unique
// constant; the positional order of the serialized args tuple is part of the
// public schema of each type.
type Event interface {
	// Name returns the static wire name of the event.
	Name() string
	// Domain returns the logical namespace of the event.
	Domain() Domain
	// DomainID returns the routing id within the domain. Empty means the
	// event is process scoped and is never routed to hub subscribers.
	DomainID() string
	// Delivery returns the queue discipline for the event.
	Delivery() DeliveryPattern
	// EncodeArgs serializes the event's positional tuple as msgpack.
	EncodeArgs() ([]byte, error)
}
