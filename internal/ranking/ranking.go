// Package ranking is the deterministic scoring engine (SPEC_FULL.md §4.5,
// C11): weighted rating/reviews/distance/open-now signals, summed and
// sorted with a stable tie-break on the input order.
package ranking

import (
	"math"
	"sort"

	"github.com/shacharon/searchcore/types"
)

// ProfileName is the closed set of ranking profiles (spec §4.5). GOOGLE is
// the fallback used when the rankingProfile LLM call fails or is disabled
// (internal/config.RankingConfig.LLMEnabled=false) — it preserves the
// provider's own input order rather than scoring.
type ProfileName string

const (
	ProfileQualityFocused  ProfileName = "QUALITY_FOCUSED"
	ProfileDistanceFocused ProfileName = "DISTANCE_FOCUSED"
	ProfileBalanced        ProfileName = "BALANCED"
	ProfileGoogle          ProfileName = "GOOGLE"
)

// Weights is the per-signal weight vector a profile carries (spec §4.5).
type Weights struct {
	Rating    float64
	Reviews   float64
	Distance  float64
	OpenBoost float64
}

// Profile pairs a name with its weight vector.
type Profile struct {
	Name    ProfileName
	Weights Weights
}

// openBoostValue is the fixed bonus for currently-open places (spec §4.5).
const openBoostValue = 0.1

// Profiles is the closed set of named profiles the rankingProfile LLM
// stage picks from (spec §4.5 "QUALITY_FOCUSED, DISTANCE_FOCUSED,
// BALANCED"). Weight vectors were chosen to keep each profile's namesake
// signal dominant while still letting the other three break ties.
var Profiles = map[ProfileName]Profile{
	ProfileQualityFocused:  {Name: ProfileQualityFocused, Weights: Weights{Rating: 0.5, Reviews: 0.3, Distance: 0.1, OpenBoost: 0.1}},
	ProfileDistanceFocused: {Name: ProfileDistanceFocused, Weights: Weights{Rating: 0.15, Reviews: 0.15, Distance: 0.6, OpenBoost: 0.1}},
	ProfileBalanced:        {Name: ProfileBalanced, Weights: Weights{Rating: 0.3, Reviews: 0.25, Distance: 0.35, OpenBoost: 0.1}},
}

// Rank scores and sorts places by profile's weight vector. refLatLng nil
// means distance contributes 0 to every place's score (spec §4.5). GOOGLE
// mode skips scoring entirely and returns the input order unchanged
// (still annotating DistanceMeters when refLatLng is available, for
// observability — see §4.5's ranking_score_breakdown event).
func Rank(places []types.Place, profile Profile, refLatLng *types.LatLng) []types.Place {
	out := make([]types.Place, len(places))
	copy(out, places)

	annotateDistances(out, refLatLng)
	if profile.Name == ProfileGoogle {
		return out
	}

	maxCount := maxUserRatingCount(out)
	maxMeters := maxDistanceMeters(out)

	for i := range out {
		out[i].Score = score(out[i], profile.Weights, maxCount, maxMeters, refLatLng != nil)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func score(p types.Place, w Weights, maxCount int, maxMeters float64, haveDistance bool) float64 {
	ratingScore := p.Rating / 5
	reviewsScore := normalizedReviews(p.UserRatingCount, maxCount)

	var distanceScore float64
	if haveDistance && p.DistanceMeters != nil {
		distanceScore = normalizedDistance(*p.DistanceMeters, maxMeters)
	}

	var openBoost float64
	if p.OpenNow != nil && *p.OpenNow {
		openBoost = openBoostValue
	}

	return w.Rating*ratingScore + w.Reviews*reviewsScore + w.Distance*distanceScore + w.OpenBoost*openBoost
}

func normalizedReviews(count, maxCount int) float64 {
	if maxCount <= 0 {
		return 0
	}
	return math.Log10(1+float64(count)) / math.Log10(1+float64(maxCount))
}

func normalizedDistance(meters, maxMeters float64) float64 {
	if maxMeters <= 0 {
		return 1
	}
	return math.Max(0, 1-meters/maxMeters)
}

func annotateDistances(places []types.Place, refLatLng *types.LatLng) {
	if refLatLng == nil {
		for i := range places {
			places[i].DistanceMeters = nil
		}
		return
	}
	for i := range places {
		meters := haversineMeters(*refLatLng, places[i].Coordinate)
		places[i].DistanceMeters = &meters
	}
}

func maxUserRatingCount(places []types.Place) int {
	max := 0
	for _, p := range places {
		if p.UserRatingCount > max {
			max = p.UserRatingCount
		}
	}
	return max
}

func maxDistanceMeters(places []types.Place) float64 {
	max := 0.0
	for _, p := range places {
		if p.DistanceMeters != nil && *p.DistanceMeters > max {
			max = *p.DistanceMeters
		}
	}
	return max
}

const earthRadiusMeters = 6371000

// haversineMeters returns the great-circle distance between a and b.
func haversineMeters(a, b types.LatLng) float64 {
	lat1, lat2 := degToRad(a.Lat), degToRad(b.Lat)
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMeters * c
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
