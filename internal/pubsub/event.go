// Package pubsub is the subscription registry, publisher and drainer
// (SPEC_FULL.md §4.10, C7+C8): per-(channel, requestId) backlog ring
// buffers with ordered, at-least-once fan-out to subscribed sockets.
//
// It is grounded on the teacher's internal/channel.TunableChannel[T]: the
// same generic, mutex-guarded buffered-collection shape, but simplified
// to a fixed-capacity ring rather than an auto-tuned one — spec §4.10
// names a fixed minimum capacity (256), not a workload-adaptive one, so
// TunableChannel's Tune()/resize() growth logic has no job here. What
// survives is the teacher's instinct: bound the buffer, count what
// happens to it, and never let a slow consumer block a fast producer.
package pubsub

import "time"

// EventType is the closed set of server-to-client event kinds a backlog
// entry can carry (spec §6.2). Progress events are coalescing-eligible;
// every other type is terminal-or-informational and always delivered.
type EventType string

const (
	EventProgress       EventType = "progress"
	EventAssistant      EventType = "assistant"
	EventStreamDelta    EventType = "stream.delta"
	EventStreamDone     EventType = "stream.done"
	EventRecommendation EventType = "recommendation"
	EventStatus         EventType = "status"
	EventError          EventType = "error"
	EventDone           EventType = "done"
)

// coalescable reports whether events of this type are eligible for
// per-stage coalescing; only progress events are. Terminality is not a
// property of the type: the publisher sets Event.Terminal, and a terminal
// event closes its entry (spec §4.10 "on a terminal event, the entry is
// marked closed").
func (t EventType) coalescable() bool { return t == EventProgress }

// Event is one backlog/fan-out unit (spec §4.10, §6.2). EventID lets
// clients de-duplicate at-least-once delivery. Cursor is assigned by the
// registry when the event is enqueued into its entry's backlog —
// whatever the caller sets is overwritten, so callers must leave it zero.
type Event struct {
	EventID   string    `json:"eventId"`
	Type      EventType `json:"type"`
	Channel   string    `json:"channel"`
	RequestID string    `json:"requestId"`
	Stage     string    `json:"stage,omitempty"`
	Terminal  bool      `json:"terminal,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Cursor    int       `json:"cursor"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the result of a single Publish call (spec §4.10).
type Summary struct {
	Attempted int
	Sent      int
	Failed    int
}

// Sender delivers one event to one socket. Implementations (C15, the
// socket surface) supply this; pubsub itself has no transport knowledge.
type Sender func(Event) error
