// Package dedup computes the idempotency fingerprint and applies the
// reuse decision matrix (SPEC_FULL.md §4.9, C13) on top of internal/jobstore.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/shacharon/searchcore/types"
)

// coordinatePrecision is how many decimal places a user coordinate is
// rounded to before it enters the fingerprint (spec §3.2 "rounded user
// coordinate") — the spec names rounding but not a precision. 3 decimal
// places is ~111m at the equator: close enough that a user standing
// still but drifting a few meters between retries still dedups, while
// someone who has actually moved to a different part of town does not.
const coordinatePrecision = 3

// Compute derives the stable fingerprint for req (spec §3.2): normalized
// query text, rounded user coordinate, region, session identifier.
// uiLanguage and traceId are deliberately excluded — they carry no
// search-affecting information (mirrors the same exclusion rule C4's
// text-search cache key applies, internal/places.textSearchCacheKey).
func Compute(req types.SearchRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "q=%s|loc=%s|region=%s|session=%s",
		normalizeQuery(req.Query), coordinateKey(req.UserLocation), req.RegionCode, req.SessionID)
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(q))), " ")
}

func coordinateKey(loc *types.LatLng) string {
	if loc == nil {
		return "none"
	}
	return fmt.Sprintf("%.*f,%.*f", coordinatePrecision, round(loc.Lat, coordinatePrecision), coordinatePrecision, round(loc.Lng, coordinatePrecision))
}

func round(v float64, precision int) float64 {
	mult := math.Pow(10, float64(precision))
	return math.Round(v*mult) / mult
}
