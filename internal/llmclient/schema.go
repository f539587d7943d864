package llmclient

import "github.com/shacharon/searchcore/types"

// RouteMappingSchema is the strict-mode JSON schema for the route-LLM
// stage's output (spec §3.6, §4.7): every property listed here MUST also
// appear in Required, or the provider rejects the tool call as invalid.
func RouteMappingSchema() *types.JSONSchema {
	bias := types.NewObjectSchema().
		AddProperty("center", latLngSchema()).
		AddProperty("radiusMeters", types.NewIntegerSchema()).
		AddRequired("center", "radiusMeters")

	s := types.NewObjectSchema().WithDescription("Canonical place-provider query mapping")
	s.AddProperty("providerMethod", types.NewEnumSchema("textSearch", "nearbySearch", "landmarkPlan"))
	s.AddProperty("textQuery", types.NewStringSchema())
	s.AddProperty("region", types.NewStringSchema())
	s.AddProperty("language", types.NewEnumSchema("he", "en"))
	s.AddProperty("bias", bias)
	s.AddProperty("cityText", types.NewStringSchema())
	s.AddProperty("cityCenter", latLngSchema())
	s.AddProperty("requiredTerms", types.NewArraySchema(types.NewStringSchema()))
	s.AddProperty("preferredTerms", types.NewArraySchema(types.NewStringSchema()))
	s.AddProperty("strictness", types.NewEnumSchema("STRICT", "RELAX_IF_EMPTY"))
	s.AddProperty("typeHint", types.NewEnumSchema("restaurant", "cafe", "bar", "any"))
	s.AddRequired(
		"providerMethod", "textQuery", "region", "language", "bias",
		"cityText", "cityCenter", "requiredTerms", "preferredTerms",
		"strictness", "typeHint",
	)
	return s
}

func latLngSchema() *types.JSONSchema {
	return types.NewObjectSchema().
		AddProperty("lat", types.NewNumberSchema()).
		AddProperty("lng", types.NewNumberSchema()).
		AddRequired("lat", "lng")
}

// GateSchema is the output schema for the Gate stage (§4.6 step 1).
func GateSchema() *types.JSONSchema {
	s := types.NewObjectSchema().WithDescription("Food/place query gate decision")
	s.AddProperty("isFoodPlaceQuery", types.NewBooleanSchema())
	s.AddProperty("reason", types.NewStringSchema())
	s.AddRequired("isFoodPlaceQuery", "reason")
	return s
}

// IntentSchema is the output schema for the Intent stage (§3.5, §4.6 step 2).
func IntentSchema() *types.JSONSchema {
	s := types.NewObjectSchema().WithDescription("Query intent decision")
	s.AddProperty("reason", types.NewEnumSchema(
		"explicit_city_mentioned", "default_textsearch", "nearby_requested", "ambiguous",
	))
	s.AddProperty("cityText", types.NewStringSchema())
	s.AddProperty("blocksSearch", types.NewBooleanSchema())
	s.AddRequired("reason", "cityText", "blocksSearch")
	return s
}

// BaseFiltersSchema is the output schema for the Base filters stage
// (§4.6 step 3).
func BaseFiltersSchema() *types.JSONSchema {
	s := types.NewObjectSchema().WithDescription("Extracted base search filters")
	s.AddProperty("openState", types.NewEnumSchema("OPEN_NOW", "ANY"))
	s.AddProperty("language", types.NewEnumSchema("he", "en"))
	s.AddProperty("priceIntent", types.NewEnumSchema("CHEAP", "MODERATE", "EXPENSIVE", "ANY"))
	s.AddProperty("minRatingBucket", types.NewIntegerSchema())
	s.AddRequired("openState", "language", "priceIntent", "minRatingBucket")
	return s
}

// CuisineEnforcerSchema is the output schema for the cuisine-enforcement
// LLM filter (§4.6 step 6).
func CuisineEnforcerSchema() *types.JSONSchema {
	s := types.NewObjectSchema().WithDescription("Place ids that satisfy the cuisine constraint")
	s.AddProperty("matchingPlaceIds", types.NewArraySchema(types.NewStringSchema()))
	s.AddRequired("matchingPlaceIds")
	return s
}

// RankingProfileSchema is the output schema for the ranking-profile stage
// (§4.5).
func RankingProfileSchema() *types.JSONSchema {
	s := types.NewObjectSchema().WithDescription("Selected ranking profile")
	s.AddProperty("profile", types.NewEnumSchema("QUALITY_FOCUSED", "DISTANCE_FOCUSED", "BALANCED", "GOOGLE"))
	s.AddRequired("profile")
	return s
}

// AssistantMessageSchema is the output schema for the assistant-message
// stage (§4.6 step 9).
func AssistantMessageSchema() *types.JSONSchema {
	s := types.NewObjectSchema().WithDescription("User-facing assistant message")
	s.AddProperty("kind", types.NewEnumSchema("CLARIFY", "SUMMARY", "GATE_FAIL", "NUDGE_REFINE"))
	s.AddProperty("text", types.NewStringSchema())
	s.AddProperty("blocksSearch", types.NewBooleanSchema())
	s.AddRequired("kind", "text", "blocksSearch")
	return s
}
