package places

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shacharon/searchcore/types"
)

// textSearchCacheKey builds the cache key per spec §4.2: derived ONLY from
// textQuery, languageCode (the search language, never assistant/UI/intent
// language), regionCode, bias, fieldMask and the pipeline version. Any
// other field folded in here would let two pipelines with a different
// assistant language collide on, or miss, the same cached result.
func textSearchCacheKey(p TextSearchParams, pipelineVersion string) string {
	h := sha256.New()
	fmt.Fprintf(h, "v=%s|q=%s|lang=%s|region=%s|mask=%s|bias=%s",
		pipelineVersion, p.TextQuery, p.LanguageCode, p.RegionCode, p.FieldMask, biasKey(p.Bias))
	return hex.EncodeToString(h.Sum(nil))
}

func biasKey(b *types.Bias) string {
	if b == nil {
		return "none"
	}
	return fmt.Sprintf("%.5f,%.5f,%d", b.Center.Lat, b.Center.Lng, b.RadiusMeters)
}

// geocodeCacheKey matches §6.4's `geocode:{cityText}|{region}` literal
// layout (no hashing needed: both components are already compact).
func geocodeCacheKey(cityText, regionCode string) string {
	return cityText + "|" + regionCode
}
