package types

import "time"

// Ticket is a single-use, short-TTL credential that exchanges an
// authenticated HTTP session for a socket connection (spec §3.10, §4.11).
// Redemption must delete the ticket atomically so a ticket can never be
// used twice, even under concurrent redemption attempts.
type Ticket struct {
	TicketID    string    `json:"ticketId"`
	SessionHash string    `json:"sessionHash"`
	RequestID   string    `json:"requestId,omitempty"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
