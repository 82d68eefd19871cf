// Package hub fans events out to in-process subscribers. Each subscriber
// (an SSE responder, a websocket session) owns a propagator registered under
// one or more (domain, domain id) aliases; the hub routes every event whose
// alias matches to the propagator's queue.
package hub

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/metrics"
)

// Alias is one routing key: a domain plus the id within it.
type Alias struct {
	Domain event.Domain
	ID     string
}

// Propagator is a single-subscriber event cursor. PropagateEvent after
// Close is a no-op.
type Propagator interface {
	ID() uuid.UUID
	PropagateEvent(ev event.Event)
	Close()
}

type entry struct {
	prop    Propagator
	aliases []Alias
}

// Hub maps aliases to propagators. The alias index and the per-propagator
// alias lists are kept mutually consistent under one lock.
type Hub struct {
	logger *zap.Logger

	mu          sync.Mutex
	propagators map[uuid.UUID]*entry
	aliasIndex  map[Alias]map[uuid.UUID]struct{}
}

// New creates an empty hub.
func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:      logger,
		propagators: make(map[uuid.UUID]*entry),
		aliasIndex:  make(map[Alias]map[uuid.UUID]struct{}),
	}
}

// Register adds a propagator under the given aliases.
func (h *Hub) Register(prop Propagator, aliases ...Alias) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.propagators[prop.ID()]; ok {
		return
	}
	h.propagators[prop.ID()] = &entry{prop: prop, aliases: aliases}
	for _, a := range aliases {
		set := h.aliasIndex[a]
		if set == nil {
			set = make(map[uuid.UUID]struct{})
			h.aliasIndex[a] = set
		}
		set[prop.ID()] = struct{}{}
	}
	metrics.PropagatorsActive.Inc()
}

// Unregister removes a propagator and all of its aliases atomically.
// Unknown ids are a no-op, so unregistering twice is safe.
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(id)
}

func (h *Hub) unregisterLocked(id uuid.UUID) {
	e, ok := h.propagators[id]
	if !ok {
		return
	}
	delete(h.propagators, id)
	for _, a := range e.aliases {
		if set, ok := h.aliasIndex[a]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(h.aliasIndex, a)
			}
		}
	}
	metrics.PropagatorsActive.Dec()
}

// Propagate routes the event to every propagator registered under its
// (domain, domain id) alias. Events without a domain id are process-scoped
// lifecycle triggers and are never routed.
func (h *Hub) Propagate(ev event.Event) {
	domainID := ev.DomainID()
	if domainID == "" {
		return
	}
	alias := Alias{Domain: ev.Domain(), ID: domainID}

	h.mu.Lock()
	var targets []Propagator
	for id := range h.aliasIndex[alias] {
		if e, ok := h.propagators[id]; ok {
			targets = append(targets, e.prop)
		}
	}
	h.mu.Unlock()

	for _, p := range targets {
		p.PropagateEvent(ev)
	}
}

// CloseByAlias closes and unregisters every propagator under the alias.
func (h *Hub) CloseByAlias(domain event.Domain, domainID string) {
	alias := Alias{Domain: domain, ID: domainID}

	h.mu.Lock()
	var targets []Propagator
	for id := range h.aliasIndex[alias] {
		if e, ok := h.propagators[id]; ok {
			targets = append(targets, e.prop)
		}
	}
	for _, p := range targets {
		h.unregisterLocked(p.ID())
	}
	h.mu.Unlock()

	for _, p := range targets {
		p.Close()
	}
}

// Shutdown closes every propagator and empties the hub.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	var targets []Propagator
	for _, e := range h.propagators {
		targets = append(targets, e.prop)
	}
	h.propagators = make(map[uuid.UUID]*entry)
	h.aliasIndex = make(map[Alias]map[uuid.UUID]struct{})
	metrics.PropagatorsActive.Set(0)
	h.mu.Unlock()

	for _, p := range targets {
		p.Close()
	}
	h.logger.Debug("event hub shut down", zap.Int("propagators", len(targets)))
}
