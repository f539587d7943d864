package pubsub

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Subscriber binds one socket connection to this entry (spec §4.10
// "(sessionHash, socketHandle)"). ID is the socket handle — a session can
// hold more than one concurrent subscriber (e.g. two tabs), so ID, not
// SessionHash, is the map key.
type Subscriber struct {
	ID          string
	SessionHash string
	Send        Sender
}

type subscriberState struct {
	Subscriber
	lastAck int
}

// pendingStage is a progress event held back by the coalescing window
// (spec §4.10 "emitting at most every 100ms").
type pendingStage struct {
	event Event
	timer *time.Timer
}

// entry is the per-(channel, requestId) subscription + backlog unit.
type entry struct {
	mu               sync.Mutex
	channel          string
	requestID        string
	backlog          *ring
	subscribers      map[string]*subscriberState
	closed           bool
	coalesceInterval time.Duration
	lastEmitted      map[string]time.Time // stage -> last emitted time, coalescing eligible only
	pending          map[string]*pendingStage
	logger           *zap.Logger
}

func newEntry(channel, requestID string, backlogCapacity int, coalesceInterval time.Duration, logger *zap.Logger) *entry {
	return &entry{
		channel:          channel,
		requestID:        requestID,
		backlog:          newRing(backlogCapacity),
		subscribers:      make(map[string]*subscriberState),
		coalesceInterval: coalesceInterval,
		lastEmitted:      make(map[string]time.Time),
		pending:          make(map[string]*pendingStage),
		logger:           logger,
	}
}

// publish applies coalescing then either emits immediately or schedules
// a deferred flush. Must be called without entry.mu held.
func (e *entry) publish(ev Event) Summary {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Summary{}
	}

	if !ev.Terminal && ev.Type.coalescable() && ev.Stage != "" {
		since := time.Since(e.lastEmitted[ev.Stage])
		if since < e.coalesceInterval {
			e.scheduleFlush(ev)
			e.mu.Unlock()
			return Summary{}
		}
		e.lastEmitted[ev.Stage] = time.Now()
	}

	summary := e.emitLocked(ev)
	e.mu.Unlock()
	return summary
}

// scheduleFlush keeps only the latest event for ev.Stage and arms (or
// re-arms) a timer to emit it once the coalescing window elapses. Must
// be called with entry.mu held.
func (e *entry) scheduleFlush(ev Event) {
	if existing, ok := e.pending[ev.Stage]; ok {
		existing.event = ev
		return
	}
	remaining := e.coalesceInterval - time.Since(e.lastEmitted[ev.Stage])
	if remaining < 0 {
		remaining = 0
	}
	ps := &pendingStage{event: ev}
	ps.timer = time.AfterFunc(remaining, func() { e.flushStage(ev.Stage) })
	e.pending[ev.Stage] = ps
}

func (e *entry) flushStage(stage string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, ok := e.pending[stage]
	if !ok || e.closed {
		return
	}
	delete(e.pending, stage)
	e.lastEmitted[stage] = time.Now()
	e.emitLocked(ps.event)
}

// emitLocked pushes ev into the backlog and fans it out to active
// subscribers. Must be called with entry.mu held; the actual socket
// writes happen after a snapshot copy so a slow Send cannot hold up
// other publishers (spec §5 "copy-then-send").
func (e *entry) emitLocked(ev Event) Summary {
	if ev.EventID == "" {
		// Assigned before push so the backlog copy and the fanned-out copy
		// carry the same ID — ring.push's returned Event is independent of
		// what it stores internally.
		ev.EventID = e.channel + ":" + e.requestID + ":" + strconv.Itoa(e.backlog.nextCursor)
	}
	stored := e.backlog.push(ev)

	recipients := make([]*subscriberState, 0, len(e.subscribers))
	for _, sub := range e.subscribers {
		recipients = append(recipients, sub)
	}

	if ev.Terminal {
		e.closed = true
		for _, ps := range e.pending {
			ps.timer.Stop()
		}
		e.pending = make(map[string]*pendingStage)
	}

	summary := Summary{Attempted: len(recipients)}
	for _, sub := range recipients {
		if err := sub.Send(stored); err != nil {
			summary.Failed++
			if e.logger != nil {
				e.logger.Warn("ws_publish_error", zap.String("requestId", e.requestID), zap.String("channel", e.channel), zap.String("subscriberId", sub.ID), zap.Error(err))
			}
			continue
		}
		sub.lastAck = stored.Cursor
		summary.Sent++
	}
	return summary
}

// subscribe registers sub as ACTIVE and drains every backlog event the
// subscriber hasn't acked yet (spec §4.10 backlog drain), then leaves it
// registered for live fan-out. If the entry is already closed, the
// backlog is drained once and the subscriber is not retained.
func (e *entry) subscribe(sub Subscriber, lastAck int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ev := range e.backlog.since(lastAck) {
		if err := sub.Send(ev); err != nil {
			if e.logger != nil {
				e.logger.Warn("ws_publish_error", zap.String("requestId", e.requestID), zap.String("channel", e.channel), zap.String("subscriberId", sub.ID), zap.Error(err))
			}
			break
		}
		lastAck = ev.Cursor
	}

	if e.closed {
		return
	}
	e.subscribers[sub.ID] = &subscriberState{Subscriber: sub, lastAck: lastAck}
}

// unsubscribe removes sub from live fan-out.
func (e *entry) unsubscribe(subscriberID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subscribers, subscriberID)
}

