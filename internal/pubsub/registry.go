package pubsub

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/config"
)

// pendingSubscription is a subscribe that arrived before its job was
// registered in the store (spec §4.10 "pending subscriptions").
type pendingSubscription struct {
	channel string
	sub     Subscriber
}

// Registry is the subscription registry, publisher and drainer (spec
// §4.10, C7+C8). Zero value is not usable; build with New.
type Registry struct {
	mu               sync.Mutex
	entries          map[string]*entry
	pending          map[string][]pendingSubscription
	backlogCapacity  int
	coalesceInterval time.Duration
	logger           *zap.Logger
}

// New builds a Registry from the push config (spec §4.10, §6.4).
func New(cfg config.PushConfig, logger *zap.Logger) *Registry {
	return &Registry{
		entries:          make(map[string]*entry),
		pending:          make(map[string][]pendingSubscription),
		backlogCapacity:  cfg.BacklogCapacity,
		coalesceInterval: cfg.CoalesceInterval,
		logger:           logger.With(zap.String("component", "pubsub")),
	}
}

func entryKey(channel, requestID string) string { return channel + "|" + requestID }

func (r *Registry) getOrCreate(channel, requestID string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entryKey(channel, requestID)
	e, ok := r.entries[key]
	if !ok {
		e = newEntry(channel, requestID, r.backlogCapacity, r.coalesceInterval, r.logger)
		r.entries[key] = e
	}
	return e
}

// uninitializedWarnOnce guards the single critical log emitted when
// Publish is called on a nil Registry (spec §4.10 "log a critical event
// once"). A nil *Registry can legally receive method calls in Go as long
// as the method body never dereferences it before this check.
var uninitializedWarnOnce sync.Once

// Publish enqueues ev into the (channel, requestId) backlog and fans it
// out to ACTIVE subscribers. Never returns an error — per spec §4.10 the
// publisher must not throw; callers treat a zero Summary as success.
func (r *Registry) Publish(channel, requestID string, ev Event) Summary {
	if r == nil {
		uninitializedWarnOnce.Do(func() {
			if logger, err := zap.NewProduction(); err == nil {
				logger.Error("pubsub: Publish called on an uninitialized registry, dropping event")
			}
		})
		return Summary{}
	}
	ev.Channel = channel
	ev.RequestID = requestID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return r.getOrCreate(channel, requestID).publish(ev)
}

// Subscribe registers sub as ACTIVE on (channel, requestId), draining any
// backlog since lastAck first (spec §4.10 backlog drain). Use this once
// the caller has confirmed the job exists; otherwise use AddPending.
func (r *Registry) Subscribe(channel, requestID string, sub Subscriber, lastAck int) {
	r.getOrCreate(channel, requestID).subscribe(sub, lastAck)
}

// Unsubscribe removes sub from live fan-out on (channel, requestId). A
// no-op if the entry or subscriber does not exist.
func (r *Registry) Unsubscribe(channel, requestID, subscriberID string) {
	r.mu.Lock()
	e, ok := r.entries[entryKey(channel, requestID)]
	r.mu.Unlock()
	if ok {
		e.unsubscribe(subscriberID)
	}
}

// AddPending stores a subscribe that arrived before createJob for
// requestId landed (spec §4.10). It will be migrated to ACTIVE by
// ActivatePendingSubscriptions once the job is registered, or dropped if
// ownership verification fails at that point.
func (r *Registry) AddPending(requestID, channel string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[requestID] = append(r.pending[requestID], pendingSubscription{channel: channel, sub: sub})
}

// ActivatePendingSubscriptions migrates every pending subscribe for
// requestID into ACTIVE, after verifying sub.SessionHash matches
// ownerSessionHash (unless the job is public/anonymous, in which case
// ownership is not checked). Returns the number activated. Called by the
// orchestrator immediately after CreateJob succeeds (spec §4.10).
func (r *Registry) ActivatePendingSubscriptions(requestID, ownerSessionHash string, public bool) int {
	r.mu.Lock()
	entries := r.pending[requestID]
	delete(r.pending, requestID)
	r.mu.Unlock()

	activated := 0
	for _, p := range entries {
		if !public && ownerSessionHash != "" && p.sub.SessionHash != ownerSessionHash {
			r.logger.Warn("dropping pending subscription: ownership mismatch",
				zap.String("requestId", requestID), zap.String("subscriberSessionHash", p.sub.SessionHash))
			continue
		}
		r.Subscribe(p.channel, requestID, p.sub, 0)
		activated++
	}
	return activated
}

// Close marks every channel entry for requestID closed, stopping any
// pending coalescing timers. Safe to call even if no entries exist yet.
// Not invoked by the orchestrator directly — Publish with Event.Terminal
// set is the normal close path; this exists for forced cleanup (e.g. job
// TTL eviction) where no terminal event was ever published.
func (r *Registry) Close(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.entries {
		if e.requestID != requestID {
			continue
		}
		e.mu.Lock()
		e.closed = true
		for _, ps := range e.pending {
			ps.timer.Stop()
		}
		e.pending = make(map[string]*pendingStage)
		e.mu.Unlock()
		delete(r.entries, key)
	}
}
