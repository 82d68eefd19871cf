package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/veristack/eventplane/internal/event"
)

type stubFinishedFetcher struct {
	ev  event.Event
	err error
}

func (f stubFinishedFetcher) FetchLastFinishedEvent(ctx context.Context, taskID uuid.UUID) (event.Event, error) {
	return f.ev, f.err
}

type stubCacheFetcher struct {
	ev  event.Event
	err error
}

func (f stubCacheFetcher) FetchCachedEvent(ctx context.Context, cacheID string) (event.Event, error) {
	return f.ev, f.err
}

func TestBgtaskPropagatorReplaysFinishedTask(t *testing.T) {
	id := uuid.New()
	replay := event.BgtaskAlreadyDone{TaskID: id, Status: "done", Message: "finished"}
	p := NewBgtask(stubFinishedFetcher{ev: replay}, 8, zaptest.NewLogger(t))

	ch, err := p.Receive(context.Background(), id)
	require.NoError(t, err)

	ev := recvEvent(t, ch)
	assert.Equal(t, replay, ev)
	expectClosed(t, ch)
}

func TestBgtaskPropagatorLiveStream(t *testing.T) {
	id := uuid.New()
	p := NewBgtask(stubFinishedFetcher{}, 8, zaptest.NewLogger(t))

	ch, err := p.Receive(context.Background(), id)
	require.NoError(t, err)

	p.PropagateEvent(event.BgtaskUpdated{TaskID: id, Current: "1", Total: "2"})
	p.PropagateEvent(event.BgtaskDone{TaskID: id, Message: "ok"})

	assert.Equal(t, event.NameBgtaskUpdated, recvEvent(t, ch).Name())
	assert.Equal(t, event.NameBgtaskDone, recvEvent(t, ch).Name())
	// The terminal event ends the stream.
	expectClosed(t, ch)
}

func TestBgtaskPropagatorFetcherError(t *testing.T) {
	wantErr := errors.New("record gone")
	p := NewBgtask(stubFinishedFetcher{err: wantErr}, 8, zaptest.NewLogger(t))

	_, err := p.Receive(context.Background(), uuid.New())
	assert.ErrorIs(t, err, wantErr)
}

func TestBgtaskPropagatorContextCancel(t *testing.T) {
	p := NewBgtask(stubFinishedFetcher{}, 8, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Receive(ctx, uuid.New())
	require.NoError(t, err)

	cancel()
	expectClosed(t, ch)
}

func TestCachePropagatorYieldsCachedFirst(t *testing.T) {
	cached := event.SessionStarted{SessionID: "sess-1", Creator: "u"}
	p := NewWithCache(stubCacheFetcher{ev: cached}, 8, zaptest.NewLogger(t))

	ch, err := p.Receive(context.Background(), "sess-1")
	require.NoError(t, err)

	p.PropagateEvent(event.SessionTerminated{SessionID: "sess-1", Reason: "done"})

	assert.Equal(t, event.NameSessionStarted, recvEvent(t, ch).Name())
	assert.Equal(t, event.NameSessionTerminated, recvEvent(t, ch).Name())

	p.Close()
	expectClosed(t, ch)
}

func TestCachePropagatorNoCachedEvent(t *testing.T) {
	p := NewWithCache(stubCacheFetcher{}, 8, zaptest.NewLogger(t))

	ch, err := p.Receive(context.Background(), "sess-1")
	require.NoError(t, err)

	p.PropagateEvent(event.SessionStarted{SessionID: "sess-1", Creator: "u"})
	assert.Equal(t, event.NameSessionStarted, recvEvent(t, ch).Name())

	p.Close()
	expectClosed(t, ch)
}

func TestCachePropagatorFetcherError(t *testing.T) {
	wantErr := errors.New("cache down")
	p := NewWithCache(stubCacheFetcher{err: wantErr}, 8, zaptest.NewLogger(t))

	_, err := p.Receive(context.Background(), "sess-1")
	assert.ErrorIs(t, err, wantErr)
}

func TestPropagatorIDsAreUnique(t *testing.T) {
	a := NewBypass(1, zaptest.NewLogger(t))
	b := NewBypass(1, zaptest.NewLogger(t))
	assert.NotEqual(t, a.ID(), b.ID())
}
