package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/config"
)

func testConfig(baseURL string) config.PlacesConfig {
	return config.PlacesConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		FieldMask:       "places.id",
		RequestTimeout:  time.Second,
		GeocodeTTL:      time.Minute,
		SearchCacheTTL:  time.Minute,
		PipelineVersion: "v1",
	}
}

func TestTextSearch_ReturnsAndTruncatesToPoolSize(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		resp := providerTextSearchResponse{Places: []providerPlace{
			{ID: "1", DisplayName: providerDisplayName{Text: "A"}},
			{ID: "2", DisplayName: providerDisplayName{Text: "B"}},
			{ID: "3", DisplayName: providerDisplayName{Text: "C"}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop(), srv.Client())
	places, err := c.TextSearch(context.Background(), TextSearchParams{TextQuery: "pizza", RegionCode: "IL", LanguageCode: "he", FieldMask: "places.id"}, 2)
	require.NoError(t, err)
	assert.Len(t, places, 2)
	assert.Equal(t, 1, calls)
}

func TestTextSearch_ServesSecondCallFromCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(providerTextSearchResponse{Places: []providerPlace{{ID: "1"}}})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop(), srv.Client())
	params := TextSearchParams{TextQuery: "sushi", RegionCode: "IL", LanguageCode: "he", FieldMask: "places.id"}

	_, err := c.TextSearch(context.Background(), params, 30)
	require.NoError(t, err)
	_, err = c.TextSearch(context.Background(), params, 30)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestTextSearch_Retries5xxOnceThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(providerTextSearchResponse{Places: []providerPlace{{ID: "1"}}})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop(), srv.Client())
	places, err := c.TextSearch(context.Background(), TextSearchParams{TextQuery: "pizza", RegionCode: "IL", LanguageCode: "he", FieldMask: "places.id"}, 30)
	require.NoError(t, err)
	assert.Len(t, places, 1)
	assert.Equal(t, 2, calls)
}

func TestTextSearch_4xxSurfacedImmediatelyNoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop(), srv.Client())
	_, err := c.TextSearch(context.Background(), TextSearchParams{TextQuery: "pizza", RegionCode: "IL", LanguageCode: "he", FieldMask: "places.id"}, 30)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidRequest, apperr.GetCode(err))
	assert.Equal(t, 1, calls)
}

func TestGeocode_CachesAcrossCalls(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"geometry":{"location":{"latitude":32.08,"longitude":34.78}}}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop(), srv.Client())
	coord, err := c.Geocode(context.Background(), "Tel Aviv", "IL")
	require.NoError(t, err)
	assert.InDelta(t, 32.08, coord.Lat, 0.001)

	_, err = c.Geocode(context.Background(), "Tel Aviv", "IL")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGeocode_PropagatesFailureToCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop(), srv.Client())
	_, err := c.Geocode(context.Background(), "Nowhereville", "IL")
	require.Error(t, err)
}
