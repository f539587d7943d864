package ws

// FrameType is the closed set of inbound socket message types (spec
// §4.13, §6.2). Anything else is unknown and produces an error event
// without closing the connection.
type FrameType string

const (
	FrameSubscribe           FrameType = "subscribe"
	FrameUnsubscribe         FrameType = "unsubscribe"
	FrameRevealLimitReached  FrameType = "reveal_limit_reached"
)

// inboundEnvelope is the wire shape of every client→server frame (spec
// §4.13 "{v:1, type, …}"). V is a pointer so a missing "v" field is
// distinguishable from an explicit v:0 — both are treated as a legacy
// envelope.
type inboundEnvelope struct {
	V          *int      `json:"v"`
	Type       FrameType `json:"type"`
	RequestID  string    `json:"requestId,omitempty"`
	Channel    string    `json:"channel,omitempty"`
	UILanguage string    `json:"uiLanguage,omitempty"`
}

const protocolVersion = 1

// isLegacy reports whether env fails the v1 envelope check (spec §4.13,
// §9 "duck-typed message envelopes... any unknown tag is treated as a
// legacy rejection").
func (env inboundEnvelope) isLegacy() bool {
	return env.V == nil || *env.V != protocolVersion
}
