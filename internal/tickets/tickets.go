// Package tickets issues and redeems the short-lived, single-use tokens
// that authenticate a socket handshake (SPEC_FULL.md §4.13, C6). A ticket
// is minted from an authenticated HTTP session (POST /ws-ticket) and
// redeemed exactly once, atomically, when the socket connects.
package tickets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/cache"
	"github.com/shacharon/searchcore/types"
)

// Store issues and redeems tickets.
type Store struct {
	cache  *cache.Manager
	ttl    time.Duration
	logger *zap.Logger
}

// New builds a Store with the §6.4 ticket TTL (60s by default, see
// internal/config.PushConfig.TicketTTL).
func New(c *cache.Manager, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{cache: c, ttl: ttl, logger: logger.With(zap.String("component", "tickets"))}
}

func ticketKey(ticketID string) string { return "ticket:" + ticketID }

// Issue mints a new ticket bound to sessionHash (and optionally a
// requestId the socket is expected to subscribe to immediately).
func (s *Store) Issue(ctx context.Context, sessionHash, requestID string) (*types.Ticket, error) {
	id, err := newTicketID()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "generate ticket id", err)
	}

	now := time.Now().UTC()
	ticket := &types.Ticket{
		TicketID:    id,
		SessionHash: sessionHash,
		RequestID:   requestID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
	}

	raw, err := json.Marshal(ticket)
	if err != nil {
		return nil, fmt.Errorf("tickets: marshal ticket: %w", err)
	}
	if err := s.cache.Set(ctx, ticketKey(id), string(raw), s.ttl); err != nil {
		return nil, apperr.Wrap(apperr.CodeStoreUnavailable, "issue ticket", err).WithHTTPStatus(503)
	}
	return ticket, nil
}

// Redeem atomically reads and deletes the ticket at ticketID (delete-then-
// use, spec §4.13), returning the ticket with its bound sessionHash. A second redemption,
// or redemption past expiry, both surface as CodeNotFound.
func (s *Store) Redeem(ctx context.Context, ticketID string) (*types.Ticket, error) {
	raw, err := s.cache.GetDelete(ctx, ticketKey(ticketID))
	if cache.IsCacheMiss(err) {
		return nil, apperr.New(apperr.CodeNotFound, "ticket not found or already used").WithHTTPStatus(404)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeStoreUnavailable, "redeem ticket", err).WithHTTPStatus(503)
	}

	var ticket types.Ticket
	if err := json.Unmarshal([]byte(raw), &ticket); err != nil {
		return nil, fmt.Errorf("tickets: decode ticket: %w", err)
	}
	if time.Now().UTC().After(ticket.ExpiresAt) {
		return nil, apperr.New(apperr.CodeNotFound, "ticket expired").WithHTTPStatus(404)
	}
	return &ticket, nil
}

func newTicketID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
