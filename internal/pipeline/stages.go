package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/langctx"
	"github.com/shacharon/searchcore/internal/llmclient"
	"github.com/shacharon/searchcore/internal/places"
	"github.com/shacharon/searchcore/types"
)

// gateResult is the Gate stage's output (spec §4.6 step 1).
type gateResult struct {
	IsFoodPlaceQuery bool   `json:"isFoodPlaceQuery"`
	Reason           string `json:"reason"`
}

// baseFiltersResult is the Base filters stage's output (spec §4.6 step 3).
// Not part of types/ — it never crosses a store/wire boundary, it only
// feeds postConstraints within this run.
type baseFiltersResult struct {
	OpenState       string `json:"openState"`
	Language        string `json:"language"`
	PriceIntent     string `json:"priceIntent"`
	MinRatingBucket int    `json:"minRatingBucket"`
}

func defaultBaseFilters() baseFiltersResult {
	return baseFiltersResult{OpenState: "ANY", Language: "en", PriceIntent: "ANY", MinRatingBucket: 0}
}

// runGate asks whether the query is a food/place query at all (spec §4.6
// step 1). An LLM error is not swallowed here — an inconclusive gate call
// means the pipeline cannot tell whether to proceed, so the caller treats
// it the same as "gate failed" and emits a GATE_FAIL assistant message.
func (o *Orchestrator) runGate(ctx context.Context, query string) (gateResult, error) {
	var out gateResult
	err := o.llm.Invoke(ctx, llmclient.PurposeGate, gatePrompt(query), llmclient.GateSchema(), llmclient.InvokeOptions{}, &out)
	return out, err
}

// runIntent extracts the Intent decision (spec §3.5, §4.6 step 2).
func (o *Orchestrator) runIntent(ctx context.Context, query, regionCode string) (types.IntentDecision, error) {
	var out types.IntentDecision
	err := o.llm.Invoke(ctx, llmclient.PurposeIntent, intentPrompt(query, regionCode), llmclient.IntentSchema(), llmclient.InvokeOptions{}, &out)
	return out, err
}

// runBaseFilters extracts local display/search filters (spec §4.6 step
// 3). On any LLM error it falls back to safe defaults and never fails the
// pipeline — the spec is explicit about this stage's failure mode.
func (o *Orchestrator) runBaseFilters(ctx context.Context, query string) baseFiltersResult {
	var out baseFiltersResult
	if err := o.llm.Invoke(ctx, llmclient.PurposeBaseFilters, baseFiltersPrompt(query), llmclient.BaseFiltersSchema(), llmclient.InvokeOptions{}, &out); err != nil {
		o.logger.Warn("base_filters_fallback", zap.Error(err))
		return defaultBaseFilters()
	}
	return out
}

// runRouteMapping produces the canonical provider query (spec §3.6, §4.6
// step 4). A schema-validation failure or any other LLM error falls back
// to types.DefaultRouteMapping. If the mapping names a city but carries no
// bias, this also geocodes the city and installs a 10km bias plus
// cityCenter for the distance resolver.
func (o *Orchestrator) runRouteMapping(ctx context.Context, query, regionCode string, searchLanguage types.Language) types.RouteMapping {
	var mapping types.RouteMapping
	if err := o.llm.Invoke(ctx, llmclient.PurposeRouteMapper, routeMapperPrompt(query, "", "", string(searchLanguage), regionCode), llmclient.RouteMappingSchema(), llmclient.InvokeOptions{}, &mapping); err != nil {
		o.logger.Warn("route_mapping_fallback", zap.Error(err))
		return types.DefaultRouteMapping(query, regionCode, searchLanguage)
	}

	if mapping.CityText != "" && mapping.Bias == nil {
		center, err := o.places.Geocode(ctx, mapping.CityText, regionCode)
		if err != nil {
			o.logger.Warn("route_mapping_geocode_failed", zap.String("cityText", mapping.CityText), zap.Error(err))
		} else {
			mapping.Bias = &types.Bias{Center: center, RadiusMeters: defaultBiasRadiusMeters}
			mapping.CityCenter = &center
		}
	}
	return mapping
}

const defaultBiasRadiusMeters = 10000

// runProviderCall executes the text search (spec §4.2, §4.6 step 5).
func (o *Orchestrator) runProviderCall(ctx context.Context, mapping types.RouteMapping, poolSize int) ([]types.Place, error) {
	return o.places.TextSearch(ctx, places.TextSearchParams{
		TextQuery:    mapping.TextQuery,
		RegionCode:   mapping.Region,
		LanguageCode: string(mapping.Language),
		Bias:         mapping.Bias,
		FieldMask:    o.fieldMask,
	}, poolSize)
}

// runRankingProfile picks a ranking profile via the rankingProfile LLM
// purpose (spec §4.5). Disabled config or any LLM failure falls back to
// GOOGLE, which preserves provider order untouched.
func (o *Orchestrator) runRankingProfile(ctx context.Context, query string, llmEnabled bool) string {
	if !llmEnabled {
		return "GOOGLE"
	}
	var out struct {
		Profile string `json:"profile"`
	}
	if err := o.llm.Invoke(ctx, llmclient.PurposeRankingProfile, rankingProfilePrompt(query), llmclient.RankingProfileSchema(), llmclient.InvokeOptions{}, &out); err != nil {
		o.logger.Warn("ranking_profile_fallback", zap.Error(err))
		return "GOOGLE"
	}
	return out.Profile
}

// runAssistantMessage composes the user-facing message (spec §4.6 step
// 9). Enforces the invariant that SUMMARY never carries blocksSearch=true
// — a violating model response is corrected and logged rather than
// trusted, per spec's PROMPT_VIOLATION handling.
func (o *Orchestrator) runAssistantMessage(ctx context.Context, query string, resultCount int, blocksSearch, gateFailed bool) types.AssistantMessage {
	var out types.AssistantMessage
	prompt := assistantPrompt(query, resultCount, blocksSearch, gateFailed)
	if err := o.llm.Invoke(ctx, llmclient.PurposeAssistant, prompt, llmclient.AssistantMessageSchema(), llmclient.InvokeOptions{}, &out); err != nil {
		o.logger.Warn("assistant_message_fallback", zap.Error(err))
		return fallbackAssistantMessage(resultCount, blocksSearch, gateFailed)
	}
	if out.Kind == types.AssistantKindSummary && out.BlocksSearch {
		o.logger.Warn("assistant_message_prompt_violation", zap.String("severity", "PROMPT_VIOLATION"),
			zap.String("kind", string(out.Kind)))
		out.BlocksSearch = false
	}
	return out
}

func fallbackAssistantMessage(resultCount int, blocksSearch, gateFailed bool) types.AssistantMessage {
	switch {
	case gateFailed:
		return types.AssistantMessage{Kind: types.AssistantKindGateFail, Text: "This doesn't look like a restaurant or place search.", BlocksSearch: true}
	case blocksSearch:
		return types.AssistantMessage{Kind: types.AssistantKindClarify, Text: "Could you tell me more about what you're looking for?", BlocksSearch: true}
	case resultCount == 0:
		return types.AssistantMessage{Kind: types.AssistantKindNudgeRefine, Text: "No places matched. Try a broader search.", BlocksSearch: false}
	default:
		return types.AssistantMessage{Kind: types.AssistantKindSummary, Text: "Here's what we found.", BlocksSearch: false}
	}
}

// resolveLanguageContext builds the LanguageContext (spec §4.3) from the
// request plus the Intent stage's own inference of the query's language
// (modeled here as unavailable — the pipeline has no separate query-
// language-detection call, so intentLanguage is always nil and
// assistantLanguage falls back to uiLanguage or "en").
func resolveLanguageContext(req types.SearchRequest) types.LanguageContext {
	return langctx.Resolve(langctx.ResolveInput{
		RegionCode: req.RegionCode,
		UILanguage: req.UILanguage,
	})
}
