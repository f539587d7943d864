package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/cache"
	"github.com/shacharon/searchcore/internal/config"
	"github.com/shacharon/searchcore/internal/jobstore"
	"github.com/shacharon/searchcore/internal/pubsub"
	"github.com/shacharon/searchcore/internal/tickets"
	"github.com/shacharon/searchcore/types"
)

// fakeConn is a wireConn that records every frame written to it instead
// of touching a real socket.
type fakeConn struct {
	sent   []pubsub.Event
	closed bool
	status websocket.StatusCode
	reason string
}

func (f *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	<-ctx.Done()
	return 0, nil, ctx.Err()
}

func (f *fakeConn) Write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	var ev pubsub.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakeConn) Close(status websocket.StatusCode, reason string) error {
	f.closed = true
	f.status = status
	f.reason = reason
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeConn, *connection) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	mgr, err := cache.NewManager(cache.Config{URL: "redis://" + mr.Addr(), DefaultTTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)

	jobs := jobstore.New(mgr, 24*time.Hour, zap.NewNop())
	ticketStore := tickets.New(mgr, 60*time.Second, zap.NewNop())
	registry := pubsub.New(config.PushConfig{BacklogCapacity: 16, CoalesceInterval: 100 * time.Millisecond}, zap.NewNop())

	h := &Handler{Tickets: ticketStore, Jobs: jobs, Registry: registry, Logger: zap.NewNop()}

	fc := &fakeConn{}
	c := newConnection("conn-1", fc, zap.NewNop())
	return h, fc, c
}

func TestDispatch_LegacyEnvelopeClosesConnection(t *testing.T) {
	h, fc, c := newTestHandler(t)
	h.dispatch(context.Background(), c, []byte(`{"type":"subscribe"}`))

	require.Len(t, fc.sent, 1)
	assert.Equal(t, pubsub.EventError, fc.sent[0].Type)
	assert.True(t, fc.closed)
	assert.Equal(t, websocket.StatusUnsupportedData, fc.status)
}

func TestDispatch_UnknownTypeStaysOpen(t *testing.T) {
	h, fc, c := newTestHandler(t)
	h.dispatch(context.Background(), c, []byte(`{"v":1,"type":"bogus"}`))

	require.Len(t, fc.sent, 1)
	assert.Equal(t, pubsub.EventError, fc.sent[0].Type)
	assert.False(t, fc.closed)
}

func TestHandleSubscribe_OwnedJobSucceeds(t *testing.T) {
	h, fc, c := newTestHandler(t)
	c.sessionHash = "session-a"

	_, err := h.Jobs.CreateJob(context.Background(), jobstore.CreateJobParams{
		RequestID: "req-1", Fingerprint: "fp-1", OwnerSessionHash: "session-a",
	})
	require.NoError(t, err)

	h.dispatch(context.Background(), c, []byte(`{"v":1,"type":"subscribe","channel":"search","requestId":"req-1"}`))
	assert.Empty(t, fc.sent)
	assert.False(t, fc.closed)

	h.Registry.Publish("search", "req-1", pubsub.Event{Type: pubsub.EventProgress, Stage: "intent", Terminal: true})
	require.Len(t, fc.sent, 1)
	assert.Equal(t, pubsub.EventProgress, fc.sent[0].Type)
}

func TestHandleSubscribe_ForeignOwnerRejected(t *testing.T) {
	h, fc, c := newTestHandler(t)
	c.sessionHash = "session-b"

	_, err := h.Jobs.CreateJob(context.Background(), jobstore.CreateJobParams{
		RequestID: "req-2", Fingerprint: "fp-2", OwnerSessionHash: "session-a",
	})
	require.NoError(t, err)

	h.dispatch(context.Background(), c, []byte(`{"v":1,"type":"subscribe","channel":"search","requestId":"req-2"}`))
	require.Len(t, fc.sent, 1)
	assert.Equal(t, pubsub.EventError, fc.sent[0].Type)
	assert.False(t, fc.closed)
}

func TestHandleSubscribe_PendingJobIsHeldThenActivated(t *testing.T) {
	h, fc, c := newTestHandler(t)
	c.sessionHash = "session-a"

	h.dispatch(context.Background(), c, []byte(`{"v":1,"type":"subscribe","channel":"search","requestId":"req-3"}`))
	assert.Empty(t, fc.sent)

	_, err := h.Jobs.CreateJob(context.Background(), jobstore.CreateJobParams{
		RequestID: "req-3", Fingerprint: "fp-3", OwnerSessionHash: "session-a",
	})
	require.NoError(t, err)
	activated := h.Registry.ActivatePendingSubscriptions("req-3", "session-a", false)
	assert.Equal(t, 1, activated)

	h.Registry.Publish("search", "req-3", pubsub.Event{Type: pubsub.EventDone, Terminal: true})
	require.Len(t, fc.sent, 1)
	assert.Equal(t, pubsub.EventDone, fc.sent[0].Type)
}

func TestHandleUnsubscribe_StopsFanOut(t *testing.T) {
	h, fc, c := newTestHandler(t)
	c.sessionHash = "session-a"
	_, err := h.Jobs.CreateJob(context.Background(), jobstore.CreateJobParams{
		RequestID: "req-4", Fingerprint: "fp-4", OwnerSessionHash: "session-a",
	})
	require.NoError(t, err)

	h.dispatch(context.Background(), c, []byte(`{"v":1,"type":"subscribe","channel":"search","requestId":"req-4"}`))
	h.dispatch(context.Background(), c, []byte(`{"v":1,"type":"unsubscribe","channel":"search","requestId":"req-4"}`))

	h.Registry.Publish("search", "req-4", pubsub.Event{Type: pubsub.EventProgress, Terminal: true})
	assert.Empty(t, fc.sent)
	assert.Empty(t, c.snapshotSubscriptions())
}

func TestHandleRevealLimitReached_PublishesNudgeRefine(t *testing.T) {
	h, fc, c := newTestHandler(t)
	c.sessionHash = "session-a"
	h.dispatch(context.Background(), c, []byte(`{"v":1,"type":"subscribe","channel":"search","requestId":"req-5"}`))
	_, err := h.Jobs.CreateJob(context.Background(), jobstore.CreateJobParams{
		RequestID: "req-5", Fingerprint: "fp-5", OwnerSessionHash: "session-a",
	})
	require.NoError(t, err)
	h.Registry.ActivatePendingSubscriptions("req-5", "session-a", false)

	h.dispatch(context.Background(), c, []byte(`{"v":1,"type":"reveal_limit_reached","channel":"search","requestId":"req-5","uiLanguage":"en"}`))

	require.Len(t, fc.sent, 1)
	assert.Equal(t, pubsub.EventAssistant, fc.sent[0].Type)

	raw, err := json.Marshal(fc.sent[0].Payload)
	require.NoError(t, err)
	var assistant types.AssistantMessage
	require.NoError(t, json.Unmarshal(raw, &assistant))
	assert.Equal(t, types.AssistantKindNudgeRefine, assistant.Kind)
}
