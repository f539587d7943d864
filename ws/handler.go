// Package ws implements the socket surface (SPEC_FULL.md §4.13, §6.2,
// C15): ticket-authenticated handshake, the {v:1,type,...} frame
// protocol, and routing into internal/pubsub. It is grounded on the
// teacher's own agent/streaming.WebSocketStreamConnection and
// agent/protocol/mcp.WebSocketTransport (both built on the predecessor of
// github.com/coder/websocket) for the read/write/close shape, and on
// codeready-toolchain-tarsy's pkg/events.ConnectionManager for the
// per-connection subscription bookkeeping and copy-then-send broadcast
// pattern, since the teacher never had more than one logical subscriber
// per connection to model.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/jobstore"
	"github.com/shacharon/searchcore/internal/pubsub"
	"github.com/shacharon/searchcore/internal/tickets"
	"github.com/shacharon/searchcore/types"
)

// jobLookupTimeout bounds the ownership check a subscribe frame triggers,
// independent of the socket's own (effectively unbounded) read context.
const jobLookupTimeout = 3 * time.Second

// Handler upgrades HTTP connections to WebSocket and drives the v1 frame
// protocol against the subscription registry. Zero value is not usable;
// all fields are required.
type Handler struct {
	Tickets  *tickets.Store
	Jobs     *jobstore.Store
	Registry *pubsub.Registry
	Logger   *zap.Logger
}

// ServeHTTP implements the upgrade endpoint (e.g. GET /ws?ticket=...).
// The ticket is redeemed BEFORE the WebSocket handshake so a bad or
// reused ticket gets a plain HTTP rejection instead of an accepted
// connection that is immediately closed (spec §4.13 "the server redeems
// it atomically (delete-then-use) and thereafter knows the sessionHash").
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Tickets == nil || h.Registry == nil || h.Jobs == nil {
		http.Error(w, "socket surface not ready", http.StatusServiceUnavailable)
		return
	}

	ticketID := r.URL.Query().Get("ticket")
	if ticketID == "" {
		http.Error(w, "missing ticket", http.StatusUnauthorized)
		return
	}

	ticket, err := h.Tickets.Redeem(r.Context(), ticketID)
	if err != nil {
		status := http.StatusUnauthorized
		if apperr.GetCode(err) == apperr.CodeStoreUnavailable {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "ticket rejected", status)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin enforcement happens at the CORS/reverse-proxy layer
		// (internal/config.ServerConfig.CORSAllowedOrigins); the socket
		// endpoint itself is ticket-gated, not origin-gated.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}

	c := newConnection(uuid.NewString(), conn, h.Logger)
	c.sessionHash = ticket.SessionHash

	h.handleConnection(r.Context(), c)
}

// handleConnection runs the read loop until the client disconnects or
// sends a legacy (pre-v1) frame, cleaning up every subscription this
// connection holds on the way out.
func (h *Handler) handleConnection(ctx context.Context, c *connection) {
	defer func() {
		for _, sub := range c.snapshotSubscriptions() {
			h.Registry.Unsubscribe(sub.channel, sub.requestID, c.id)
		}
		c.closeWith(websocket.StatusNormalClosure, "bye")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		h.dispatch(ctx, c, data)
	}
}

// dispatch parses one inbound frame and routes it by type. Parse
// failures and envelope mismatches (missing/wrong v) are legacy
// rejections: a single error event, then close (spec §4.13). A
// recognized v1 envelope with an unrecognized type, or one missing its
// required fields, gets only the error event — the connection stays up.
func (h *Handler) dispatch(ctx context.Context, c *connection, data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.sendError("", "MALFORMED_FRAME", "could not parse frame")
		c.closeWith(websocket.StatusUnsupportedData, "legacy envelope")
		return
	}
	if env.isLegacy() {
		c.sendError(env.RequestID, "UNSUPPORTED_PROTOCOL_VERSION", "expected v:1 envelope")
		c.closeWith(websocket.StatusUnsupportedData, "legacy envelope")
		return
	}

	switch env.Type {
	case FrameSubscribe:
		h.handleSubscribe(ctx, c, env)
	case FrameUnsubscribe:
		h.handleUnsubscribe(c, env)
	case FrameRevealLimitReached:
		h.handleRevealLimitReached(c, env)
	default:
		c.sendError(env.RequestID, "UNKNOWN_FRAME_TYPE", "unrecognized frame type")
	}
}

func (h *Handler) handleSubscribe(ctx context.Context, c *connection, env inboundEnvelope) {
	if env.Channel == "" || env.RequestID == "" {
		c.sendError(env.RequestID, "INVALID_FRAME", "subscribe requires channel and requestId")
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, jobLookupTimeout)
	record, err := h.Jobs.GetJob(lookupCtx, env.RequestID)
	cancel()
	if err != nil {
		if apperr.GetCode(err) == apperr.CodeNotFound {
			// The job hasn't landed in the store yet — hold the subscribe
			// until CreateJob registers it (spec §4.10 "pending subscriptions").
			h.Registry.AddPending(env.RequestID, env.Channel, pubsub.Subscriber{
				ID: c.id, SessionHash: c.sessionHash, Send: c.send,
			})
			c.addSubscription(env.Channel, env.RequestID)
			return
		}
		c.sendError(env.RequestID, "SUBSCRIBE_FAILED", "could not verify job ownership")
		return
	}

	if record.OwnerSessionHash != "" && record.OwnerSessionHash != c.sessionHash {
		c.sendError(env.RequestID, "FORBIDDEN", "not the owner of this requestId")
		return
	}

	h.Registry.Subscribe(env.Channel, env.RequestID, pubsub.Subscriber{
		ID: c.id, SessionHash: c.sessionHash, Send: c.send,
	}, 0)
	c.addSubscription(env.Channel, env.RequestID)
}

func (h *Handler) handleUnsubscribe(c *connection, env inboundEnvelope) {
	if env.Channel == "" || env.RequestID == "" {
		c.sendError(env.RequestID, "INVALID_FRAME", "unsubscribe requires channel and requestId")
		return
	}
	h.Registry.Unsubscribe(env.Channel, env.RequestID, c.id)
	c.removeSubscription(env.Channel, env.RequestID)
}

// handleRevealLimitReached nudges the client to refine its query once the
// free-tier reveal limit is hit client-side. NUDGE_REFINE is the one
// AssistantKind the spec names for this situation (§6.2 "assistant
// (CLARIFY|SUMMARY|GATE_FAIL|NUDGE_REFINE)"); uiLanguage is accepted but
// the nudge text is not yet localized — there is no assistant message
// catalog in this service beyond the pipeline's own English fallbacks
// (internal/pipeline/stages.go).
func (h *Handler) handleRevealLimitReached(c *connection, env inboundEnvelope) {
	if env.Channel == "" || env.RequestID == "" {
		c.sendError(env.RequestID, "INVALID_FRAME", "reveal_limit_reached requires channel and requestId")
		return
	}
	h.Registry.Publish(env.Channel, env.RequestID, pubsub.Event{
		Type: pubsub.EventAssistant,
		Payload: types.AssistantMessage{
			Kind: types.AssistantKindNudgeRefine,
			Text: "You've seen all the results for this search. Try narrowing your query for a fresh list.",
		},
	})
}
