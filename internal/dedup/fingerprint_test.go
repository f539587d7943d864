package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shacharon/searchcore/types"
)

func TestCompute_SameInputsSameFingerprint(t *testing.T) {
	req := types.SearchRequest{Query: "Pizza Near Me", RegionCode: "IL", SessionID: "s1"}
	assert.Equal(t, Compute(req), Compute(req))
}

func TestCompute_NormalizesQueryWhitespaceAndCase(t *testing.T) {
	a := types.SearchRequest{Query: "  Pizza   Near Me  ", RegionCode: "IL", SessionID: "s1"}
	b := types.SearchRequest{Query: "pizza near me", RegionCode: "IL", SessionID: "s1"}
	assert.Equal(t, Compute(a), Compute(b))
}

func TestCompute_DifferentSessionDifferentFingerprint(t *testing.T) {
	a := types.SearchRequest{Query: "pizza", RegionCode: "IL", SessionID: "s1"}
	b := types.SearchRequest{Query: "pizza", RegionCode: "IL", SessionID: "s2"}
	assert.NotEqual(t, Compute(a), Compute(b))
}

func TestCompute_CoordinateRoundingCollapsesNearbyPoints(t *testing.T) {
	a := types.SearchRequest{Query: "pizza", RegionCode: "IL", SessionID: "s1", UserLocation: &types.LatLng{Lat: 32.08001, Lng: 34.78001}}
	b := types.SearchRequest{Query: "pizza", RegionCode: "IL", SessionID: "s1", UserLocation: &types.LatLng{Lat: 32.08004, Lng: 34.78004}}
	assert.Equal(t, Compute(a), Compute(b))
}

func TestCompute_DistinctCoordinatesDifferentFingerprint(t *testing.T) {
	a := types.SearchRequest{Query: "pizza", RegionCode: "IL", SessionID: "s1", UserLocation: &types.LatLng{Lat: 32.08, Lng: 34.78}}
	b := types.SearchRequest{Query: "pizza", RegionCode: "IL", SessionID: "s1", UserLocation: &types.LatLng{Lat: 31.77, Lng: 35.21}}
	assert.NotEqual(t, Compute(a), Compute(b))
}

func TestCompute_NilVsPresentLocationDifferentFingerprint(t *testing.T) {
	a := types.SearchRequest{Query: "pizza", RegionCode: "IL", SessionID: "s1"}
	b := types.SearchRequest{Query: "pizza", RegionCode: "IL", SessionID: "s1", UserLocation: &types.LatLng{Lat: 0, Lng: 0}}
	assert.NotEqual(t, Compute(a), Compute(b))
}
