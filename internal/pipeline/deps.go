// Package pipeline is the stage orchestrator (SPEC_FULL.md §4.6, C12):
// gate -> intent -> baseFilters -> routeMapping -> providerCall ->
// cuisineEnforcement -> postConstraints -> ranking -> assistantMessage ->
// finalize. It wires C3 (llmclient), C4 (places), C9 (langctx), C10
// (distance), C11 (ranking) together, writes through C5 (jobstore) and
// pushes progress through C8 (pubsub), with C13 (dedup) deciding whether a
// submission gets a new run at all.
package pipeline

import (
	"context"

	"github.com/shacharon/searchcore/internal/llmclient"
	"github.com/shacharon/searchcore/internal/places"
	"github.com/shacharon/searchcore/types"
)

// llmInvoker is the slice of internal/llmclient.Client the orchestrator
// needs (spec §4.1). Defined locally so stage tests can substitute a fake
// without constructing a real Anthropic-backed Client.
type llmInvoker interface {
	Invoke(ctx context.Context, purpose llmclient.Purpose, prompt string, schema *types.JSONSchema, opts llmclient.InvokeOptions, out any) error
}

// placeSearcher is the slice of internal/places.Client the orchestrator
// needs (spec §4.2). Defined locally for the same reason: tests substitute
// a fake instead of making real HTTP calls to the provider.
type placeSearcher interface {
	TextSearch(ctx context.Context, params places.TextSearchParams, poolSize int) ([]types.Place, error)
	Geocode(ctx context.Context, cityText, regionCode string) (types.LatLng, error)
}

// internal/jobstore.Store and internal/pubsub.Registry are used directly
// (not behind an interface): neither makes a network call in tests —
// jobstore runs against miniredis, pubsub is pure in-process — so there is
// nothing to fake, matching how internal/dedup's own tests exercise a
// real *jobstore.Store rather than a mock.
