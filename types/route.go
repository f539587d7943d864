package types

// ProviderMethod selects how the place provider is queried (spec §3.6).
type ProviderMethod string

const (
	ProviderMethodTextSearch   ProviderMethod = "textSearch"
	ProviderMethodNearbySearch ProviderMethod = "nearbySearch"
	ProviderMethodLandmarkPlan ProviderMethod = "landmarkPlan"
)

// Strictness governs how hard cuisine enforcement filters (spec §3.6, §4.6
// step 6).
type Strictness string

const (
	StrictnessStrict         Strictness = "STRICT"
	StrictnessRelaxIfEmpty   Strictness = "RELAX_IF_EMPTY"
)

// TypeHint narrows the kind of place being searched for (spec §3.6).
type TypeHint string

const (
	TypeHintRestaurant TypeHint = "restaurant"
	TypeHintCafe       TypeHint = "cafe"
	TypeHintBar        TypeHint = "bar"
	TypeHintAny        TypeHint = "any"
)

// Bias narrows a text search to a geographic area.
type Bias struct {
	Center       LatLng `json:"center"`
	RadiusMeters int    `json:"radiusMeters"`
}

// RouteMapping is the canonical place-provider query produced by the
// Route-LLM stage (spec §3.6). Every property is required in the returned
// JSON document — see §4.7 and internal/llmclient/schema.go.
type RouteMapping struct {
	ProviderMethod ProviderMethod `json:"providerMethod"`
	TextQuery      string         `json:"textQuery"`
	Region         string         `json:"region"`
	Language       Language       `json:"language"`
	Bias           *Bias          `json:"bias,omitempty"`
	CityText       string         `json:"cityText,omitempty"`
	CityCenter     *LatLng        `json:"cityCenter,omitempty"`

	RequiredTerms  []string   `json:"requiredTerms"`
	PreferredTerms []string   `json:"preferredTerms"`
	Strictness     Strictness `json:"strictness"`
	TypeHint       TypeHint   `json:"typeHint"`
}

// DefaultRouteMapping returns the minimal fallback mapping used when the
// route-LLM response fails schema validation (spec §4.6 step 4).
func DefaultRouteMapping(query, region string, language Language) RouteMapping {
	return RouteMapping{
		ProviderMethod: ProviderMethodTextSearch,
		TextQuery:      query,
		Region:         region,
		Language:       language,
		RequiredTerms:  []string{},
		PreferredTerms: []string{},
		Strictness:     StrictnessRelaxIfEmpty,
		TypeHint:       TypeHintAny,
	}
}
