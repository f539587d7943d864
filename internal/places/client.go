// Package places wraps the place-provider SDK (text search + geocoding)
// behind a narrow interface, with an in-process cache in front of both
// operations (SPEC_FULL.md §4.2, C4).
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/config"
	"github.com/shacharon/searchcore/types"
)

// TextSearchParams is the input to a single text-search call (spec §4.2).
type TextSearchParams struct {
	TextQuery    string
	RegionCode   string
	LanguageCode string
	Bias         *types.Bias
	FieldMask    string
}

// Client is the place-provider seam used by the pipeline orchestrator. The
// provider itself is an external collaborator (spec §1); this type owns
// only the timeout/retry/cache behavior this service is responsible for.
type Client struct {
	http   *http.Client
	cfg    config.PlacesConfig
	logger *zap.Logger

	searchCache  *ttlCache[[]types.Place]
	geocodeCache *ttlCache[types.LatLng]
}

// New builds a places Client. httpClient may be nil, in which case a client
// scoped to cfg.RequestTimeout is built.
func New(cfg config.PlacesConfig, logger *zap.Logger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{
		http:         httpClient,
		cfg:          cfg,
		logger:       logger,
		searchCache:  newTTLCache[[]types.Place](cfg.SearchCacheTTL),
		geocodeCache: newTTLCache[types.LatLng](cfg.GeocodeTTL),
	}
}

// TextSearch returns up to N=30 candidate places (spec §4.2), truncating
// the provider response to poolSize and serving from the in-process cache
// when the cache key (query, language, region, bias, field mask, pipeline
// version — never assistant/UI/intent language) has a live entry.
func (c *Client) TextSearch(ctx context.Context, params TextSearchParams, poolSize int) ([]types.Place, error) {
	key := textSearchCacheKey(params, c.cfg.PipelineVersion)
	if cached, ok := c.searchCache.get(key); ok {
		return truncate(cached, poolSize), nil
	}

	places, err := c.callTextSearchWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}
	c.searchCache.set(key, places)
	return truncate(places, poolSize), nil
}

// callTextSearchWithRetry retries exactly once on a provider 5xx and
// surfaces 4xx immediately (spec §4.2 failure model).
func (c *Client) callTextSearchWithRetry(ctx context.Context, params TextSearchParams) ([]types.Place, error) {
	places, status, err := c.callTextSearch(ctx, params)
	if err == nil {
		return places, nil
	}
	if status < 500 {
		return nil, classifyPlacesError(err, status)
	}
	c.logger.Warn("places text search retrying after provider 5xx", zap.Int("status", status), zap.Error(err))

	places, status, err = c.callTextSearch(ctx, params)
	if err != nil {
		return nil, classifyPlacesError(err, status)
	}
	return places, nil
}

func (c *Client) callTextSearch(ctx context.Context, params TextSearchParams) ([]types.Place, int, error) {
	body, err := json.Marshal(providerTextSearchRequest{
		TextQuery:    params.TextQuery,
		RegionCode:   params.RegionCode,
		LanguageCode: params.LanguageCode,
		LocationBias: providerBiasFromBias(params.Bias),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("places: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("places: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Goog-FieldMask", params.FieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("places: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("places: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("places: provider returned %d: %s", resp.StatusCode, raw)
	}

	var parsed providerTextSearchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("places: decode response: %w", err)
	}
	return parsed.places(), resp.StatusCode, nil
}

// Geocode resolves a city string + region code to a coordinate, through the
// process-local geocode cache (spec §4.2, §6.4). Failure is returned as-is;
// the caller (the distance-origin resolver, §4.4) decides the fallback.
func (c *Client) Geocode(ctx context.Context, cityText, regionCode string) (types.LatLng, error) {
	key := geocodeCacheKey(cityText, regionCode)
	if cached, ok := c.geocodeCache.get(key); ok {
		return cached, nil
	}

	coord, status, err := c.callGeocode(ctx, cityText, regionCode)
	if err != nil {
		return types.LatLng{}, classifyPlacesError(err, status)
	}
	c.geocodeCache.set(key, coord)
	return coord, nil
}

func (c *Client) callGeocode(ctx context.Context, cityText, regionCode string) (types.LatLng, int, error) {
	reqURL := fmt.Sprintf("%s/geocode?address=%s&region=%s&key=%s",
		c.cfg.BaseURL, url.QueryEscape(cityText), url.QueryEscape(regionCode), url.QueryEscape(c.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.LatLng{}, 0, fmt.Errorf("geocode: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return types.LatLng{}, 0, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.LatLng{}, resp.StatusCode, fmt.Errorf("geocode: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return types.LatLng{}, resp.StatusCode, fmt.Errorf("geocode: provider returned %d: %s", resp.StatusCode, raw)
	}

	var parsed providerGeocodeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return types.LatLng{}, resp.StatusCode, fmt.Errorf("geocode: decode response: %w", err)
	}
	return parsed.latLng(), resp.StatusCode, nil
}

func classifyPlacesError(err error, status int) error {
	switch {
	case status == 0:
		return apperr.Wrap(apperr.CodeProviderUnavailable, "places provider unreachable", err).WithHTTPStatus(502)
	case status >= 500:
		return apperr.Wrap(apperr.CodeProviderUnavailable, "places provider error", err).WithHTTPStatus(502).WithRetryable(true)
	default:
		return apperr.Wrap(apperr.CodeInvalidRequest, "places provider rejected request", err).WithHTTPStatus(400)
	}
}

func truncate(places []types.Place, poolSize int) []types.Place {
	if poolSize <= 0 || len(places) <= poolSize {
		return places
	}
	return places[:poolSize]
}
