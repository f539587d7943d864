package pubsub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/config"
)

func testRegistry(t *testing.T, coalesce time.Duration) *Registry {
	t.Helper()
	return New(config.PushConfig{BacklogCapacity: 8, CoalesceInterval: coalesce}, zap.NewNop())
}

type fakeSocket struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakeSocket) sender() Sender {
	return func(ev Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, ev)
		return nil
	}
}

func (f *fakeSocket) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func TestPublish_FanOutToActiveSubscriber(t *testing.T) {
	r := testRegistry(t, time.Millisecond)
	sock := &fakeSocket{}
	r.Subscribe("progress", "req-1", Subscriber{ID: "sock-1", SessionHash: "s1", Send: sock.sender()}, 0)

	summary := r.Publish("progress", "req-1", Event{Type: EventStatus, Payload: "hello"})

	assert.Equal(t, Summary{Attempted: 1, Sent: 1}, summary)
	require.Len(t, sock.received(), 1)
	assert.Equal(t, "hello", sock.received()[0].Payload)
}

func TestPublish_EnqueuesBacklogWithZeroSubscribers(t *testing.T) {
	r := testRegistry(t, time.Millisecond)
	summary := r.Publish("progress", "req-1", Event{Type: EventStatus})
	assert.Equal(t, Summary{}, summary)

	sock := &fakeSocket{}
	r.Subscribe("progress", "req-1", Subscriber{ID: "sock-1", Send: sock.sender()}, 0)
	assert.Len(t, sock.received(), 1)
}

func TestSubscribe_DrainsBacklogSinceLastAck(t *testing.T) {
	r := testRegistry(t, time.Millisecond)
	r.Publish("progress", "req-1", Event{Type: EventStatus, Payload: "a"})
	r.Publish("progress", "req-1", Event{Type: EventStatus, Payload: "b"})
	r.Publish("progress", "req-1", Event{Type: EventStatus, Payload: "c"})

	sock := &fakeSocket{}
	// cursors start at 1, so lastAck 2 acknowledges "a" and "b".
	r.Subscribe("progress", "req-1", Subscriber{ID: "sock-1", Send: sock.sender()}, 2)

	got := sock.received()
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Payload)
}

func TestUnsubscribe_StopsLiveFanOut(t *testing.T) {
	r := testRegistry(t, time.Millisecond)
	sock := &fakeSocket{}
	r.Subscribe("progress", "req-1", Subscriber{ID: "sock-1", Send: sock.sender()}, 0)
	r.Unsubscribe("progress", "req-1", "sock-1")

	r.Publish("progress", "req-1", Event{Type: EventStatus})
	assert.Empty(t, sock.received())
}

func TestTerminalEvent_ClosesEntryAndLaterSubscribeDrainsOnce(t *testing.T) {
	r := testRegistry(t, time.Millisecond)
	r.Publish("progress", "req-1", Event{Type: EventDone, Terminal: true})

	sock := &fakeSocket{}
	r.Subscribe("progress", "req-1", Subscriber{ID: "sock-1", Send: sock.sender()}, 0)
	require.Len(t, sock.received(), 1)

	// a second publish after close must not fan out (entry is closed).
	r.Publish("progress", "req-1", Event{Type: EventStatus})
	assert.Len(t, sock.received(), 1)
}

func TestCoalescing_KeepsOnlyMostRecentPerStageWithinWindow(t *testing.T) {
	r := testRegistry(t, 50*time.Millisecond)
	sock := &fakeSocket{}
	r.Subscribe("progress", "req-1", Subscriber{ID: "sock-1", Send: sock.sender()}, 0)

	r.Publish("progress", "req-1", Event{Type: EventProgress, Stage: "intent", Payload: 1})
	r.Publish("progress", "req-1", Event{Type: EventProgress, Stage: "intent", Payload: 2})
	r.Publish("progress", "req-1", Event{Type: EventProgress, Stage: "intent", Payload: 3})

	require.Eventually(t, func() bool { return len(sock.received()) >= 2 }, time.Second, 5*time.Millisecond)

	got := sock.received()
	// first update emits immediately (no prior emission), last one flushes
	// after the coalescing window; the middle one is dropped.
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Payload)
	assert.Equal(t, 3, got[1].Payload)
}

func TestCoalescing_NeverAppliesToTerminalEvents(t *testing.T) {
	r := testRegistry(t, time.Hour)
	sock := &fakeSocket{}
	r.Subscribe("progress", "req-1", Subscriber{ID: "sock-1", Send: sock.sender()}, 0)

	r.Publish("progress", "req-1", Event{Type: EventDone, Terminal: true, Payload: "done"})
	require.Len(t, sock.received(), 1)
	assert.Equal(t, "done", sock.received()[0].Payload)
}

func TestAddPending_ActivatesOnMatchingOwnership(t *testing.T) {
	r := testRegistry(t, time.Millisecond)
	sock := &fakeSocket{}
	r.AddPending("req-1", "progress", Subscriber{ID: "sock-1", SessionHash: "owner", Send: sock.sender()})

	activated := r.ActivatePendingSubscriptions("req-1", "owner", false)
	assert.Equal(t, 1, activated)

	r.Publish("progress", "req-1", Event{Type: EventStatus})
	assert.Len(t, sock.received(), 1)
}

func TestActivatePendingSubscriptions_DropsOnOwnershipMismatch(t *testing.T) {
	r := testRegistry(t, time.Millisecond)
	sock := &fakeSocket{}
	r.AddPending("req-1", "progress", Subscriber{ID: "sock-1", SessionHash: "intruder", Send: sock.sender()})

	activated := r.ActivatePendingSubscriptions("req-1", "owner", false)
	assert.Equal(t, 0, activated)

	r.Publish("progress", "req-1", Event{Type: EventStatus})
	assert.Empty(t, sock.received())
}

func TestActivatePendingSubscriptions_PublicJobSkipsOwnershipCheck(t *testing.T) {
	r := testRegistry(t, time.Millisecond)
	sock := &fakeSocket{}
	r.AddPending("req-1", "progress", Subscriber{ID: "sock-1", SessionHash: "anyone", Send: sock.sender()})

	activated := r.ActivatePendingSubscriptions("req-1", "owner", true)
	assert.Equal(t, 1, activated)
}

func TestPublish_NilRegistryReturnsZeroSummaryWithoutPanic(t *testing.T) {
	var r *Registry
	summary := r.Publish("progress", "req-1", Event{Type: EventStatus})
	assert.Equal(t, Summary{}, summary)
}

func TestRing_EvictsOldestBeyondCapacity(t *testing.T) {
	r := testRegistry(t, time.Millisecond)
	for i := 0; i < 10; i++ {
		r.Publish("progress", "req-1", Event{Type: EventStatus, Payload: i})
	}

	sock := &fakeSocket{}
	r.Subscribe("progress", "req-1", Subscriber{ID: "sock-1", Send: sock.sender()}, -1)
	// capacity is 8, so only the last 8 of 10 pushes survive.
	assert.Len(t, sock.received(), 8)
	assert.Equal(t, 2, sock.received()[0].Payload)
}
