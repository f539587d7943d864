package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/pubsub"
)

// writeTimeout bounds a single socket write so a stalled client can never
// hold a publisher goroutine open indefinitely (mirrors the teacher's
// WebSocketStreamConnection, which guards writes with a mutex but leaves
// the caller's context to carry the deadline).
const writeTimeout = 5 * time.Second

// wireConn is the subset of *websocket.Conn the connection type needs.
// Narrowing to an interface lets tests exercise dispatch/subscribe logic
// against a fake transport instead of a real socket.
type wireConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Close(status websocket.StatusCode, reason string) error
}

// connection adapts one coder/websocket connection to the subscription
// registry's Sender interface. Writes are mutex-protected because a
// websocket.Conn does not support concurrent writers (grounded on the
// teacher's agent/streaming.WebSocketStreamConnection).
type connection struct {
	id          string
	sessionHash string
	conn        wireConn
	logger      *zap.Logger

	mu     sync.Mutex
	closed bool

	// subscriptions tracks (channel|requestId) keys this connection holds,
	// written only from the single read-loop goroutine that owns this
	// connection (spec §9 "no bidirectional object pointers" — cleanup on
	// close walks this map by identifier, never by live registry pointer).
	subscriptions map[string]subscriptionKey
}

type subscriptionKey struct {
	channel   string
	requestID string
}

func newConnection(id string, conn wireConn, logger *zap.Logger) *connection {
	return &connection{
		id:            id,
		conn:          conn,
		logger:        logger,
		subscriptions: make(map[string]subscriptionKey),
	}
}

// send implements pubsub.Sender: serialize ev and write it as one text
// frame, bounded by writeTimeout regardless of the caller's context so a
// slow client cannot block the publisher (spec §5 "copy-then-send").
func (c *connection) send(ev pubsub.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		if c.logger != nil {
			c.logger.Warn("ws_write_failed", zap.String("connectionId", c.id), zap.Error(err))
		}
		return err
	}
	return nil
}

// sendError writes a single {v:1,type:"error",...} frame out-of-band from
// the publisher (malformed/unknown inbound frames, spec §4.13).
func (c *connection) sendError(requestID, code, message string) {
	_ = c.send(pubsub.Event{
		Type:      pubsub.EventError,
		RequestID: requestID,
		Payload: map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// closeWith closes the underlying connection once. Safe to call from
// both the read loop's defer and an explicit legacy-rejection path.
func (c *connection) closeWith(status websocket.StatusCode, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	_ = c.conn.Close(status, reason)
}

func (c *connection) addSubscription(channel, requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[entryKey(channel, requestID)] = subscriptionKey{channel: channel, requestID: requestID}
}

func (c *connection) removeSubscription(channel, requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, entryKey(channel, requestID))
}

// snapshotSubscriptions returns the current subscription set for cleanup
// on disconnect, without holding the lock while the registry is called.
func (c *connection) snapshotSubscriptions() []subscriptionKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]subscriptionKey, 0, len(c.subscriptions))
	for _, k := range c.subscriptions {
		out = append(out, k)
	}
	return out
}

func entryKey(channel, requestID string) string { return channel + "|" + requestID }
