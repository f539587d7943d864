package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/cache"
	"github.com/shacharon/searchcore/internal/config"
	"github.com/shacharon/searchcore/internal/dedup"
	"github.com/shacharon/searchcore/internal/jobstore"
	"github.com/shacharon/searchcore/internal/llmclient"
	"github.com/shacharon/searchcore/internal/places"
	"github.com/shacharon/searchcore/internal/pubsub"
	"github.com/shacharon/searchcore/types"
)

// fakeLLM answers every Invoke call with a canned response keyed by
// purpose, or an error when the purpose is listed in failPurposes.
type fakeLLM struct {
	responses    map[llmclient.Purpose]any
	failPurposes map[llmclient.Purpose]bool
}

func (f *fakeLLM) Invoke(ctx context.Context, purpose llmclient.Purpose, prompt string, schema *types.JSONSchema, opts llmclient.InvokeOptions, out any) error {
	if f.failPurposes[purpose] {
		return assert.AnError
	}
	resp, ok := f.responses[purpose]
	if !ok {
		return assert.AnError
	}
	return copyInto(resp, out)
}

// copyInto assigns src onto *out via a type switch on the pointer types
// the orchestrator actually passes — this avoids pulling in encoding/json
// purely to fan a few fixed shapes into their destination pointers.
func copyInto(src, out any) error {
	switch o := out.(type) {
	case *gateResult:
		*o = src.(gateResult)
	case *types.IntentDecision:
		*o = src.(types.IntentDecision)
	case *baseFiltersResult:
		*o = src.(baseFiltersResult)
	case *types.RouteMapping:
		*o = src.(types.RouteMapping)
	case *cuisineEnforcerResult:
		*o = src.(cuisineEnforcerResult)
	case *types.AssistantMessage:
		*o = src.(types.AssistantMessage)
	case *struct {
		Profile string `json:"profile"`
	}:
		*o = src.(struct {
			Profile string `json:"profile"`
		})
	default:
		return assert.AnError
	}
	return nil
}

type fakePlaces struct {
	places    []types.Place
	err       error
	geocodeAt types.LatLng
}

func (f *fakePlaces) TextSearch(ctx context.Context, params places.TextSearchParams, poolSize int) ([]types.Place, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.places, nil
}

func (f *fakePlaces) Geocode(ctx context.Context, cityText, regionCode string) (types.LatLng, error) {
	return f.geocodeAt, nil
}

func newTestOrchestrator(t *testing.T, llm llmInvoker, ps placeSearcher) (*miniredis.Miniredis, *Orchestrator) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	mgr, err := cache.NewManager(cache.Config{URL: "redis://" + mr.Addr(), DefaultTTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)

	store := jobstore.New(mgr, 24*time.Hour, zap.NewNop())
	dedupCfg := config.DedupConfig{RunningMaxAge: 90 * time.Second, SuccessFreshWindow: 5 * time.Second, JobTTL: 24 * time.Hour}
	resolver := dedup.New(store, dedupCfg, zap.NewNop())
	registry := pubsub.New(config.PushConfig{BacklogCapacity: 32, CoalesceInterval: 10 * time.Millisecond}, zap.NewNop())

	o := New(Deps{
		LLM:       llm,
		Places:    ps,
		Jobs:      store,
		Pubsub:    registry,
		Dedup:     resolver,
		Ranking:   config.RankingConfig{LLMEnabled: true, CandidatePoolSize: 20, DisplayResultsSize: 10},
		FieldMask: "places.id,places.displayName",
		Logger:    zap.NewNop(),
	})
	return mr, o
}

func baseRequest() types.SearchRequest {
	return types.SearchRequest{
		Query:      "sushi in tel aviv",
		RegionCode: "IL",
		UILanguage: "en",
		SessionID:  "session-1",
		UserID:     "user-1",
	}
}

func awaitTerminal(t *testing.T, store *jobstore.Store, requestID string) *types.JobRecord {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		record, err := store.GetJob(context.Background(), requestID)
		require.NoError(t, err)
		if record.Status.IsTerminal() {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal status")
	return nil
}

func TestSubmit_GateFailShortCircuitsWithoutProviderCall(t *testing.T) {
	llm := &fakeLLM{responses: map[llmclient.Purpose]any{
		llmclient.PurposeGate:      gateResult{IsFoodPlaceQuery: false, Reason: "not_food"},
		llmclient.PurposeAssistant: types.AssistantMessage{Kind: types.AssistantKindGateFail, Text: "not a food query", BlocksSearch: true},
	}}
	ps := &fakePlaces{err: assert.AnError}
	mr, o := newTestOrchestrator(t, llm, ps)
	defer mr.Close()

	result, err := o.Submit(context.Background(), baseRequest())
	require.NoError(t, err)

	record := awaitTerminal(t, o.jobs, result.RequestID)
	assert.Equal(t, types.StatusDoneSuccess, record.Status)
	require.NotNil(t, record.Result)
	assert.Equal(t, types.AssistantKindGateFail, record.Result.Assistant.Kind)
	assert.Empty(t, record.Result.Places)
}

func TestSubmit_IntentBlocksSearchShortCircuits(t *testing.T) {
	llm := &fakeLLM{responses: map[llmclient.Purpose]any{
		llmclient.PurposeGate:      gateResult{IsFoodPlaceQuery: true},
		llmclient.PurposeIntent:    types.IntentDecision{Reason: types.IntentAmbiguous, BlocksSearch: true},
		llmclient.PurposeAssistant: types.AssistantMessage{Kind: types.AssistantKindClarify, Text: "need more info", BlocksSearch: true},
	}}
	ps := &fakePlaces{err: assert.AnError}
	mr, o := newTestOrchestrator(t, llm, ps)
	defer mr.Close()

	result, err := o.Submit(context.Background(), baseRequest())
	require.NoError(t, err)

	record := awaitTerminal(t, o.jobs, result.RequestID)
	assert.Equal(t, types.StatusDoneSuccess, record.Status)
	assert.Equal(t, types.AssistantKindClarify, record.Result.Assistant.Kind)
}

func TestSubmit_HappyPathRunsAllStagesAndRanks(t *testing.T) {
	llm := &fakeLLM{responses: map[llmclient.Purpose]any{
		llmclient.PurposeGate:   gateResult{IsFoodPlaceQuery: true},
		llmclient.PurposeIntent: types.IntentDecision{Reason: types.IntentDefaultTextSearch},
		llmclient.PurposeBaseFilters: baseFiltersResult{OpenState: "ANY", Language: "en", PriceIntent: "ANY", MinRatingBucket: 0},
		llmclient.PurposeRouteMapper: types.RouteMapping{
			ProviderMethod: types.ProviderMethodTextSearch,
			TextQuery:      "sushi tel aviv",
			Region:         "IL",
			Language:       types.LanguageEnglish,
			RequiredTerms:  nil,
			PreferredTerms: nil,
			Strictness:     types.StrictnessRelaxIfEmpty,
			TypeHint:       types.TypeHintRestaurant,
		},
		llmclient.PurposeRankingProfile: struct {
			Profile string `json:"profile"`
		}{Profile: "QUALITY_FOCUSED"},
		llmclient.PurposeAssistant: types.AssistantMessage{Kind: types.AssistantKindSummary, Text: "found 2 places", BlocksSearch: false},
	}}
	ps := &fakePlaces{places: []types.Place{
		{ID: "p1", Name: "Sushi Place", Rating: 4.8, UserRatingCount: 500, Coordinate: types.LatLng{Lat: 32.08, Lng: 34.78}},
		{ID: "p2", Name: "Another Sushi", Rating: 3.9, UserRatingCount: 50, Coordinate: types.LatLng{Lat: 32.09, Lng: 34.79}},
	}}
	mr, o := newTestOrchestrator(t, llm, ps)
	defer mr.Close()

	result, err := o.Submit(context.Background(), baseRequest())
	require.NoError(t, err)

	record := awaitTerminal(t, o.jobs, result.RequestID)
	assert.Equal(t, types.StatusDoneSuccess, record.Status)
	require.Len(t, record.Result.Places, 2)
	assert.Equal(t, "p1", record.Result.Places[0].ID, "higher rating should rank first under QUALITY_FOCUSED")
	assert.Equal(t, 2, record.Result.Meta.FetchedCount)
	assert.Equal(t, "QUALITY_FOCUSED", record.Result.Meta.RankingProfile)
}

func TestSubmit_ProviderFailureFailsJob(t *testing.T) {
	llm := &fakeLLM{responses: map[llmclient.Purpose]any{
		llmclient.PurposeGate:   gateResult{IsFoodPlaceQuery: true},
		llmclient.PurposeIntent: types.IntentDecision{Reason: types.IntentDefaultTextSearch},
		llmclient.PurposeRouteMapper: types.RouteMapping{
			TextQuery: "sushi tel aviv", Region: "IL", Language: types.LanguageEnglish,
			Strictness: types.StrictnessRelaxIfEmpty, TypeHint: types.TypeHintRestaurant,
		},
	}}
	ps := &fakePlaces{err: assert.AnError}
	mr, o := newTestOrchestrator(t, llm, ps)
	defer mr.Close()

	result, err := o.Submit(context.Background(), baseRequest())
	require.NoError(t, err)

	record := awaitTerminal(t, o.jobs, result.RequestID)
	assert.Equal(t, types.StatusDoneFailed, record.Status)
	require.NotNil(t, record.Error)
	assert.Equal(t, "PROVIDER_UNAVAILABLE", record.Error.Code)
}

func TestSubmit_DedupReusesExistingJobInsteadOfRunningAgain(t *testing.T) {
	llm := &fakeLLM{responses: map[llmclient.Purpose]any{
		llmclient.PurposeGate:      gateResult{IsFoodPlaceQuery: false},
		llmclient.PurposeAssistant: types.AssistantMessage{Kind: types.AssistantKindGateFail, BlocksSearch: true},
	}}
	ps := &fakePlaces{}
	mr, o := newTestOrchestrator(t, llm, ps)
	defer mr.Close()

	req := baseRequest()
	first, err := o.Submit(context.Background(), req)
	require.NoError(t, err)
	awaitTerminal(t, o.jobs, first.RequestID)

	second, err := o.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.RequestID, second.RequestID)
}
