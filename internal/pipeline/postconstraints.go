package pipeline

import "github.com/shacharon/searchcore/types"

// applyPostConstraints filters candidates by the Base filters stage's
// local signals (spec §4.6 step 7): openNow, a minimum rating bucket, and
// a coarse price intent. Unlike cuisine enforcement this step never calls
// an LLM and never relaxes — a place either satisfies all three or it
// doesn't.
func applyPostConstraints(candidates []types.Place, filters baseFiltersResult) []types.Place {
	out := make([]types.Place, 0, len(candidates))
	for _, p := range candidates {
		if !satisfiesOpenState(p, filters.OpenState) {
			continue
		}
		if !satisfiesMinRating(p, filters.MinRatingBucket) {
			continue
		}
		if !satisfiesPriceIntent(p, filters.PriceIntent) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func satisfiesOpenState(p types.Place, openState string) bool {
	if openState != "OPEN_NOW" {
		return true
	}
	return p.OpenNow != nil && *p.OpenNow
}

func satisfiesMinRating(p types.Place, minBucket int) bool {
	return int(p.Rating) >= minBucket
}

// priceLevel is the place provider's 0 (free) - 4 (very expensive) scale.
func satisfiesPriceIntent(p types.Place, priceIntent string) bool {
	switch priceIntent {
	case "CHEAP":
		return p.PriceLevel <= 1
	case "MODERATE":
		return p.PriceLevel >= 1 && p.PriceLevel <= 2
	case "EXPENSIVE":
		return p.PriceLevel >= 3
	default: // ANY or unrecognized
		return true
	}
}
