package types

import "time"

// SubscriptionState tracks whether a socket has caught up with a channel's
// backlog (spec §3.9, §4.10).
type SubscriptionState string

const (
	SubscriptionPending SubscriptionState = "PENDING"
	SubscriptionActive  SubscriptionState = "ACTIVE"
)

// Subscription binds one socket connection to one request's pub/sub channel
// (spec §3.9). BacklogCursor is the index of the next backlog entry the
// socket has not yet been sent; the drainer advances it as it replays.
type Subscription struct {
	RequestID     string            `json:"requestId"`
	SessionHash   string            `json:"sessionHash"`
	State         SubscriptionState `json:"state"`
	BacklogCursor int               `json:"backlogCursor"`
	SubscribedAt  time.Time         `json:"subscribedAt"`
}
