package types

import "time"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SearchRequest is the input to a single search (spec §3.1).
type SearchRequest struct {
	Query          string    `json:"query"`
	UserLocation   *LatLng   `json:"userLocation,omitempty"`
	UILanguage     string    `json:"uiLanguage,omitempty"`
	RegionCode     string    `json:"regionCode,omitempty"`
	SessionID      string    `json:"sessionId"`
	UserID         string    `json:"userId,omitempty"`
	TraceID        string    `json:"traceId,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
}
