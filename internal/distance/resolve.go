// Package distance is the pure distance-origin resolver (SPEC_FULL.md
// §4.4, C10): it picks the single coordinate the ranking engine measures
// distance against, deterministically, with no fallback guessing beyond
// the three rules below.
package distance

import "github.com/shacharon/searchcore/types"

// ResolveInput is the input to Resolve (spec §4.4).
type ResolveInput struct {
	Intent       types.IntentDecision
	CityCenter   *types.LatLng // mapping.cityCenter, resolved by the route mapper/geocoder
	UserLocation *types.LatLng
}

// Origin is the resolved distance anchor for a single search (spec §4.4).
type Origin struct {
	Kind       types.DistanceOrigin
	RefLatLng  *types.LatLng
	CityText   string
}

// Resolve applies the §4.4 priority rules: an explicit city mention with a
// resolved city center always wins, even over a present user location;
// otherwise fall back to the user's GPS location; otherwise NONE.
func Resolve(in ResolveInput) Origin {
	if in.Intent.Reason == types.IntentExplicitCityMentioned && in.Intent.CityText != "" && in.CityCenter != nil {
		return Origin{Kind: types.DistanceOriginCity, RefLatLng: in.CityCenter, CityText: in.Intent.CityText}
	}
	if in.UserLocation != nil {
		return Origin{Kind: types.DistanceOriginUser, RefLatLng: in.UserLocation}
	}
	return Origin{Kind: types.DistanceOriginNone}
}
