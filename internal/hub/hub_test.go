package hub

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/veristack/eventplane/internal/event"
)

func recvEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed before an event arrived")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func expectClosed(t *testing.T, ch <-chan event.Event) {
	t.Helper()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected channel to be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("channel never closed")
	}
}

func TestPropagateRoutesByAlias(t *testing.T) {
	h := New(zaptest.NewLogger(t))

	p1 := NewBypass(8, zaptest.NewLogger(t))
	p2 := NewBypass(8, zaptest.NewLogger(t))
	h.Register(p1, Alias{Domain: event.DomainSession, ID: "sess-1"})
	h.Register(p2, Alias{Domain: event.DomainSession, ID: "sess-2"})

	h.Propagate(event.SessionStarted{SessionID: "sess-1", Creator: "u"})

	ev := recvEvent(t, p1.Receive())
	assert.Equal(t, "sess-1", ev.DomainID())

	select {
	case <-p2.Receive():
		t.Fatal("event leaked to a propagator with a different alias")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPropagateSkipsProcessScopedEvents(t *testing.T) {
	h := New(zaptest.NewLogger(t))
	p := NewBypass(8, zaptest.NewLogger(t))
	h.Register(p, Alias{Domain: event.DomainSchedule, ID: ""})

	h.Propagate(event.DoSchedule{})
	select {
	case <-p.Receive():
		t.Fatal("process-scoped event must never reach subscribers")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegisterDuplicateAndUnregisterIdempotent(t *testing.T) {
	h := New(zaptest.NewLogger(t))
	p := NewBypass(8, zaptest.NewLogger(t))

	h.Register(p, Alias{Domain: event.DomainSession, ID: "s"})
	h.Register(p, Alias{Domain: event.DomainSession, ID: "s"}) // no-op

	h.Unregister(p.ID())
	h.Unregister(p.ID()) // no-op
	h.Unregister(uuid.New())

	h.Propagate(event.SessionStarted{SessionID: "s", Creator: "u"})
	select {
	case <-p.Receive():
		t.Fatal("unregistered propagator still receives events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMultipleAliasesOnePropagator(t *testing.T) {
	h := New(zaptest.NewLogger(t))
	p := NewBypass(8, zaptest.NewLogger(t))
	h.Register(p,
		Alias{Domain: event.DomainSession, ID: "sess-1"},
		Alias{Domain: event.DomainKernel, ID: "kern-1"})

	h.Propagate(event.SessionStarted{SessionID: "sess-1", Creator: "u"})
	recvEvent(t, p.Receive())

	// Unregistering removes every alias of the propagator atomically.
	h.Unregister(p.ID())
	h.Propagate(event.SessionStarted{SessionID: "sess-1", Creator: "u"})
	select {
	case <-p.Receive():
		t.Fatal("stale alias survived unregistration")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseByAlias(t *testing.T) {
	h := New(zaptest.NewLogger(t))
	p := NewBypass(8, zaptest.NewLogger(t))
	h.Register(p, Alias{Domain: event.DomainSession, ID: "sess-1"})

	h.CloseByAlias(event.DomainSession, "sess-1")
	expectClosed(t, p.Receive())
}

func TestShutdownClosesAll(t *testing.T) {
	h := New(zaptest.NewLogger(t))
	p1 := NewBypass(8, zaptest.NewLogger(t))
	p2 := NewBypass(8, zaptest.NewLogger(t))
	h.Register(p1, Alias{Domain: event.DomainSession, ID: "a"})
	h.Register(p2, Alias{Domain: event.DomainSession, ID: "b"})

	h.Shutdown()
	expectClosed(t, p1.Receive())
	expectClosed(t, p2.Receive())
}

func TestPropagatorDropsWhenFull(t *testing.T) {
	p := NewBypass(1, zaptest.NewLogger(t))

	p.PropagateEvent(event.SessionStarted{SessionID: "a", Creator: "u"})
	p.PropagateEvent(event.SessionStarted{SessionID: "b", Creator: "u"}) // dropped
	p.Close()

	ev := recvEvent(t, p.Receive())
	assert.Equal(t, "a", ev.DomainID())
	expectClosed(t, p.Receive())
}

func TestPropagateAfterCloseIsNoop(t *testing.T) {
	p := NewBypass(8, zaptest.NewLogger(t))
	p.Close()
	p.Close() // idempotent
	p.PropagateEvent(event.SessionStarted{SessionID: "a", Creator: "u"})
	expectClosed(t, p.Receive())
}
