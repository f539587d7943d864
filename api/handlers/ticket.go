package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/api"
	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/identity"
	"github.com/shacharon/searchcore/internal/reqctx"
	"github.com/shacharon/searchcore/internal/tickets"
)

// Ticket implements POST /api/v1/auth/ws-ticket (spec §6.1, §4.13). It
// requires an already-authenticated HTTP session — the auth middleware
// populates reqctx's session hash before this handler runs.
type Ticket struct {
	Store      *tickets.Store
	TTLSeconds int
	Logger     *zap.Logger
}

func (t *Ticket) Issue(w http.ResponseWriter, r *http.Request) {
	sessionHash, ok := reqctx.SessionHash(r.Context())
	if !ok || sessionHash == "" {
		writeError(w, r, t.Logger, apperr.New(apperr.CodeInvalidRequest, "authenticated session required").WithHTTPStatus(401))
		return
	}

	if t.Store == nil {
		w.Header().Set("Retry-After", "2")
		writeError(w, r, t.Logger, apperr.New(apperr.CodeWSNotReady, "ticket store not ready").WithHTTPStatus(503))
		return
	}

	// identity.Hash the raw session value from reqctx, exactly as
	// pipeline.Orchestrator.Submit does, so the bound sessionHash matches
	// what Submit computes for the same caller
	// (spec §3.3 ownerSessionHash), keeping ticket/job ownership checks
	// comparable.
	ownerSessionHash := identity.Hash(sessionHash)

	ticket, err := t.Store.Issue(r.Context(), ownerSessionHash, "")
	if err != nil {
		if apperr.GetCode(err) == apperr.CodeStoreUnavailable {
			w.Header().Set("Retry-After", "2")
		}
		writeError(w, r, t.Logger, err)
		return
	}

	traceID, _ := reqctx.TraceID(r.Context())
	writeJSON(w, http.StatusOK, api.TicketResponse{
		Ticket:     ticket.TicketID,
		TTLSeconds: t.TTLSeconds,
		TraceID:    traceID,
	})
}

