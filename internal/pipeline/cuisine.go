package pipeline

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/llmclient"
	"github.com/shacharon/searchcore/types"
)

// minStrictKeepCount is the §4.6 step 6 threshold ("if the kept set is
// smaller than 5, one relaxation is allowed").
const minStrictKeepCount = 5

type cuisineEnforcerResult struct {
	MatchingPlaceIDs []string `json:"matchingPlaceIds"`
}

// runCuisineEnforcement filters candidates against mapping.RequiredTerms
// (spec §4.6 step 6). A nil/empty RequiredTerms list is a no-op. An LLM
// failure is non-blocking: all candidates pass through unfiltered.
func (o *Orchestrator) runCuisineEnforcement(ctx context.Context, candidates []types.Place, mapping types.RouteMapping) []types.Place {
	if len(mapping.RequiredTerms) == 0 {
		return candidates
	}

	names := make(map[string]string, len(candidates))
	for _, p := range candidates {
		names[p.ID] = p.Name
	}

	var out cuisineEnforcerResult
	if err := o.llm.Invoke(ctx, llmclient.PurposeCuisineEnforcer, cuisineEnforcerPrompt(mapping.RequiredTerms, names), llmclient.CuisineEnforcerSchema(), llmclient.InvokeOptions{}, &out); err != nil {
		o.logger.Warn("cuisine_enforcement_fallback", zap.Error(err))
		return candidates
	}

	matched := toIDSet(out.MatchingPlaceIDs)
	kept := filterMatched(candidates, matched)

	if mapping.Strictness == types.StrictnessStrict {
		if len(kept) >= minStrictKeepCount {
			return kept
		}
		if relaxed := relaxWithPreferredTerms(candidates, mapping.PreferredTerms, matched); len(relaxed) > len(kept) {
			o.logger.Info("cuisine_enforcement_relaxed", zap.String("mode", "fallback_preferred"))
			return relaxed
		}
		o.logger.Info("cuisine_enforcement_relaxed", zap.String("mode", "drop_required_once"))
		return candidates
	}

	// RELAX_IF_EMPTY: prioritize matches but never drop places.
	if len(kept) == 0 {
		return candidates
	}
	return prioritizeMatched(candidates, matched)
}

func toIDSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func filterMatched(places []types.Place, matched map[string]bool) []types.Place {
	out := make([]types.Place, 0, len(places))
	for _, p := range places {
		if matched[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// relaxWithPreferredTerms widens the matched set to also include places
// whose name or types mention a preferred term, without dropping any
// already-matched place (spec §4.6 "fallback_preferred").
func relaxWithPreferredTerms(places []types.Place, preferredTerms []string, matched map[string]bool) []types.Place {
	if len(preferredTerms) == 0 {
		return filterMatched(places, matched)
	}
	widened := make(map[string]bool, len(matched))
	for id := range matched {
		widened[id] = true
	}
	for _, p := range places {
		if widened[p.ID] {
			continue
		}
		if mentionsAnyTerm(p, preferredTerms) {
			widened[p.ID] = true
		}
	}
	return filterMatched(places, widened)
}

func mentionsAnyTerm(p types.Place, terms []string) bool {
	haystack := strings.ToLower(p.Name)
	for _, t := range p.Types {
		haystack += " " + strings.ToLower(t)
	}
	for _, term := range terms {
		if strings.Contains(haystack, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// prioritizeMatched stably reorders places so matched ones come first,
// without dropping any (spec §4.6 "RELAX_IF_EMPTY... never drops places").
func prioritizeMatched(places []types.Place, matched map[string]bool) []types.Place {
	out := make([]types.Place, len(places))
	copy(out, places)
	sort.SliceStable(out, func(i, j int) bool {
		return matched[out[i].ID] && !matched[out[j].ID]
	})
	return out
}
