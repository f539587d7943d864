package pipeline

import "fmt"

// Prompt builders are plain string templates, not a prompt-engineering
// framework — every call here is a single structured-extraction request
// constrained by a strict-mode schema (internal/llmclient/schema.go), so
// there is no chain-of-thought or few-shot scaffolding to manage. The
// teacher's agent/prompt_engineering.go builds multi-section prompt
// bundles for open-ended chat; that machinery has no stage here to serve
// (see DESIGN.md).

func gatePrompt(query string) string {
	return fmt.Sprintf("Decide whether this query is asking about food, restaurants, cafes, bars or other places to eat or drink. Query: %q", query)
}

func intentPrompt(query, regionCode string) string {
	return fmt.Sprintf("Classify the intent behind this restaurant-search query. Query: %q. Region: %q. "+
		"If the query does not describe food/places at all, set blocksSearch=true and reason=ambiguous.", query, regionCode)
}

func baseFiltersPrompt(query string) string {
	return fmt.Sprintf("Extract open-now intent, language, price intent and minimum rating bucket (0-5) from this query: %q", query)
}

func routeMapperPrompt(query string, intent string, cityText string, searchLanguage string, regionCode string) string {
	return fmt.Sprintf("Build a place-provider query for: %q. Intent reason: %s. City mentioned: %q. "+
		"Search language: %s. Region: %s. Include any required/preferred cuisine terms and a strictness policy.",
		query, intent, cityText, searchLanguage, regionCode)
}

func cuisineEnforcerPrompt(requiredTerms []string, placeNames map[string]string) string {
	return fmt.Sprintf("Required cuisine/food terms: %v. For each candidate place (id -> name): %v, "+
		"return the ids of places that plausibly satisfy at least one required term.", requiredTerms, placeNames)
}

func rankingProfilePrompt(query string) string {
	return fmt.Sprintf("Pick the ranking profile (QUALITY_FOCUSED, DISTANCE_FOCUSED, BALANCED or GOOGLE) that best matches this query's intent: %q", query)
}

func assistantPrompt(query string, resultCount int, blocksSearch bool, gateFailed bool) string {
	switch {
	case gateFailed:
		return fmt.Sprintf("The query %q is not a food/place search. Write a brief GATE_FAIL message explaining that and set blocksSearch=true.", query)
	case blocksSearch:
		return fmt.Sprintf("The query %q needs clarification before searching. Write a CLARIFY message asking what's missing and set blocksSearch=true.", query)
	case resultCount == 0:
		return fmt.Sprintf("The search for %q returned no results. Write a NUDGE_REFINE message suggesting how to broaden the query, blocksSearch=false.", query)
	default:
		return fmt.Sprintf("The search for %q returned %d results. Write a short SUMMARY message, blocksSearch=false.", query, resultCount)
	}
}
