package maps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"googlemaps.github.io/maps"

	"dinecall/internal/types"
)

// ProviderName tags venues returned by the Places service.
const ProviderName = "google_places"

// PlaceQuery holds the refinement parameters for a restaurant text search.
type PlaceQuery struct {
	Cuisine string
	Origin  types.Point
	// RadiusMeters biases results around Origin; 0 disables the bias.
	RadiusMeters uint
	// MinPrice and MaxPrice are Places price levels 0..4; -1 leaves the bound open.
	MinPrice int
	MaxPrice int
	OpenNow  bool
}

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client   *maps.Client
	language string
	region   string
}

func NewPlacesService(client *maps.Client, language, region string) *PlacesService {
	return &PlacesService{client: client, language: language, region: region}
}

// SearchRestaurants runs a text search for the cuisine around the origin.
// Results keep provider order; no filtering happens here.
func (s *PlacesService) SearchRestaurants(ctx context.Context, q PlaceQuery) ([]types.Venue, error) {
	query := strings.TrimSpace(q.Cuisine)
	if !strings.Contains(strings.ToLower(query), "restaurant") {
		query += " restaurant"
	}

	r := &maps.TextSearchRequest{
		Query:    query,
		OpenNow:  q.OpenNow,
		Type:     maps.PlaceTypeRestaurant,
		Language: s.language,
		Region:   s.region,
	}
	if !q.Origin.IsZero() && q.RadiusMeters > 0 {
		r.Location = &maps.LatLng{Lat: q.Origin.Lat, Lng: q.Origin.Lng}
		r.Radius = q.RadiusMeters
	}
	if q.MinPrice >= 0 {
		r.MinPrice = maps.PriceLevel(strconv.Itoa(q.MinPrice))
	}
	if q.MaxPrice >= 0 {
		r.MaxPrice = maps.PriceLevel(strconv.Itoa(q.MaxPrice))
	}

	resp, err := s.client.TextSearch(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	venues := make([]types.Venue, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.PermanentlyClosed || result.BusinessStatus == "CLOSED_PERMANENTLY" {
			continue
		}
		price := result.PriceLevel
		if price == 0 {
			price = -1
		}
		venues = append(venues, types.Venue{
			ID:         result.PlaceID,
			Provider:   ProviderName,
			Name:       result.Name,
			Address:    result.FormattedAddress,
			Tags:       result.Types,
			Rating:     float64(result.Rating),
			Reviews:    result.UserRatingsTotal,
			PriceLevel: price,
			Location:   types.Point{Lat: result.Geometry.Location.Lat, Lng: result.Geometry.Location.Lng},
		})
	}
	return venues, nil
}
