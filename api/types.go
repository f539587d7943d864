// Package api holds the wire-level request/response DTOs shared by the
// HTTP handlers (spec §6.1, C14). Keeping these separate from types.*
// lets the internal domain types evolve independently of the JSON the
// client actually sees.
package api

import "github.com/shacharon/searchcore/types"

// SearchSubmitRequest is the body of POST /api/v1/search (spec §6.1).
type SearchSubmitRequest struct {
	Query        string         `json:"query"`
	UserLocation *types.LatLng  `json:"userLocation,omitempty"`
	RegionCode   string         `json:"regionCode,omitempty"`
	UILanguage   string         `json:"uiLanguage,omitempty"`
}

// SearchSubmitResponse is the 202 body of POST /api/v1/search.
type SearchSubmitResponse struct {
	RequestID        string `json:"requestId"`
	Status           string `json:"status"`
	ContractsVersion string `json:"contractsVersion"`
}

// SearchResultResponse is the body of GET /api/v1/search/:requestId/result,
// in every one of its four shapes (spec §6.1). Fields are omitted rather
// than zero-valued where the spec's shapes don't overlap.
type SearchResultResponse struct {
	RequestID        string            `json:"requestId"`
	Status           string            `json:"status"`
	Progress         int               `json:"progress,omitempty"`
	Meta             *types.ResultMeta `json:"meta,omitempty"`
	Results          []types.Place     `json:"results,omitempty"`
	Assist           *types.AssistantMessage `json:"assist,omitempty"`
	Code             string            `json:"code,omitempty"`
	Message          string            `json:"message,omitempty"`
	ErrorType        string            `json:"errorType,omitempty"`
	Terminal         bool              `json:"terminal,omitempty"`
	ContractsVersion string            `json:"contractsVersion"`
}

// TicketResponse is the 200 body of POST /api/v1/auth/ws-ticket.
type TicketResponse struct {
	Ticket     string `json:"ticket"`
	TTLSeconds int    `json:"ttlSeconds"`
	TraceID    string `json:"traceId,omitempty"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Code      string `json:"errorCode"`
	Message   string `json:"message"`
	TraceID   string `json:"traceId,omitempty"`
}
