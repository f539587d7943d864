package types

// Place is an immutable provider-returned place record (spec §3.7).
type Place struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Rating          float64  `json:"rating"`
	UserRatingCount int      `json:"userRatingCount"`
	Address         string   `json:"address"`
	Types           []string `json:"types"`
	Coordinate      LatLng   `json:"coordinate"`
	PriceLevel      int      `json:"priceLevel"`
	OpenNow         *bool    `json:"openNow,omitempty"`

	// DistanceMeters is populated by the ranking engine when a distance
	// origin is available (spec §4.4); nil when the origin is NONE.
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
	// Score is the ranking engine's computed total score (spec §4.5),
	// exposed for observability/debugging; not part of the provider payload.
	Score float64 `json:"score,omitempty"`
}
