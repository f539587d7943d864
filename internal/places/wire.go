package places

import "github.com/shacharon/searchcore/types"

// providerTextSearchRequest/response mirror the provider's own wire shape
// (a Google Places v1-style text search). Only the fields the pipeline
// needs are decoded; everything else is dropped on the floor.
type providerTextSearchRequest struct {
	TextQuery    string         `json:"textQuery"`
	RegionCode   string         `json:"regionCode,omitempty"`
	LanguageCode string         `json:"languageCode,omitempty"`
	LocationBias *providerBias  `json:"locationBias,omitempty"`
}

type providerBias struct {
	Circle providerCircle `json:"circle"`
}

type providerCircle struct {
	Center providerLatLng `json:"center"`
	Radius int            `json:"radius"`
}

type providerLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func providerBiasFromBias(b *types.Bias) *providerBias {
	if b == nil {
		return nil
	}
	return &providerBias{Circle: providerCircle{
		Center: providerLatLng{Latitude: b.Center.Lat, Longitude: b.Center.Lng},
		Radius: b.RadiusMeters,
	}}
}

type providerTextSearchResponse struct {
	Places []providerPlace `json:"places"`
}

type providerPlace struct {
	ID                   string              `json:"id"`
	DisplayName          providerDisplayName `json:"displayName"`
	Rating               float64             `json:"rating"`
	UserRatingCount      int                 `json:"userRatingCount"`
	FormattedAddress     string              `json:"formattedAddress"`
	Types                []string            `json:"types"`
	Location             providerLatLng      `json:"location"`
	PriceLevel           int                 `json:"priceLevel"`
	CurrentOpeningHours  *providerOpeningHours `json:"currentOpeningHours,omitempty"`
}

type providerDisplayName struct {
	Text string `json:"text"`
}

type providerOpeningHours struct {
	OpenNow *bool `json:"openNow,omitempty"`
}

func (r providerTextSearchResponse) places() []types.Place {
	out := make([]types.Place, 0, len(r.Places))
	for _, p := range r.Places {
		place := types.Place{
			ID:              p.ID,
			Name:            p.DisplayName.Text,
			Rating:          p.Rating,
			UserRatingCount: p.UserRatingCount,
			Address:         p.FormattedAddress,
			Types:           p.Types,
			Coordinate:      types.LatLng{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
			PriceLevel:      p.PriceLevel,
		}
		if p.CurrentOpeningHours != nil {
			place.OpenNow = p.CurrentOpeningHours.OpenNow
		}
		out = append(out, place)
	}
	return out
}

type providerGeocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location providerLatLng `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (r providerGeocodeResponse) latLng() types.LatLng {
	if len(r.Results) == 0 {
		return types.LatLng{}
	}
	loc := r.Results[0].Geometry.Location
	return types.LatLng{Lat: loc.Latitude, Lng: loc.Longitude}
}
